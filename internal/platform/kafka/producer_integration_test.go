//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"eam/internal/platform/config"
	"eam/internal/platform/logger"
	"eam/pkg/testutil/containers"
)

func TestProducerPublishes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := config.KafkaConfig{Brokers: rp.Brokers, HistoryTopic: "eam.history.test"}
	p, err := NewProducer(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, p)
	defer func() { _ = p.Close(context.Background()) }()

	require.NoError(t, p.EnsureTopic(ctx, 1, 1))
	require.NoError(t, p.EnsureTopic(ctx, 1, 1), "existing topic is not an error")
	require.NoError(t, p.Publish(ctx, []byte("app-1"), []byte(`{"change":"+"}`)))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(cfg.HistoryTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, "app-1", string(records[0].Key))
	assert.JSONEq(t, `{"change":"+"}`, string(records[0].Value))
}
