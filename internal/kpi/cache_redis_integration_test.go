//go:build integration

package kpi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"eam/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = NewRedisCache(s.redis.Client)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTripUnderPrefix() {
	ctx := context.Background()
	_, ok, err := s.cache.Get(ctx, "portfolio")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.cache.Set(ctx, "portfolio", []byte(`{"applications":2}`), time.Minute))

	raw, ok, err := s.cache.Get(ctx, "portfolio")
	s.Require().NoError(err)
	s.True(ok)
	s.JSONEq(`{"applications":2}`, string(raw))

	ttl, err := s.redis.Client.TTL(ctx, "eam:kpi:portfolio").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "application:x", []byte(`{}`), 50*time.Millisecond))
	s.Eventually(func() bool {
		_, ok, err := s.cache.Get(ctx, "application:x")
		return err == nil && !ok
	}, 2*time.Second, 20*time.Millisecond)
}
