//go:build integration

package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"eam/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *Redis
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestCountsWithinOneWindow() {
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		n, err := s.store.RecordFailure(ctx, "alice|10.0.0.1", time.Minute)
		s.Require().NoError(err)
		s.Equal(i, n)
	}

	n, resetAt, err := s.store.Failures(ctx, "alice|10.0.0.1")
	s.Require().NoError(err)
	s.Equal(3, n)
	s.WithinDuration(time.Now().Add(time.Minute), resetAt, 5*time.Second)

	ttl, err := s.redis.Client.PTTL(ctx, keyPrefix+"alice|10.0.0.1").Result()
	s.Require().NoError(err)
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisStoreSuite) TestMissingKeyHasNoFailures() {
	n, resetAt, err := s.store.Failures(context.Background(), "nobody|10.0.0.1")
	s.Require().NoError(err)
	s.Zero(n)
	s.True(resetAt.IsZero())
}

func (s *RedisStoreSuite) TestClear() {
	ctx := context.Background()
	_, err := s.store.RecordFailure(ctx, "alice|10.0.0.1", time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Clear(ctx, "alice|10.0.0.1"))

	n, _, err := s.store.Failures(ctx, "alice|10.0.0.1")
	s.Require().NoError(err)
	s.Zero(n)
}
