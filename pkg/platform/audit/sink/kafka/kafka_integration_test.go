//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "istr/pkg/platform/audit"
	"istr/pkg/platform/audit/sink/kafka"
	"istr/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaSinkSuite) TestPublishRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "istr.runs.test"
	sink, err := kafka.New(kafka.Config{Brokers: []string{s.broker.Broker}, Topic: topic})
	s.Require().NoError(err)
	defer sink.Close()

	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1), "second call tolerates an existing topic")
	s.Require().NoError(sink.Health(ctx))

	event := audit.Event{
		ID:       "evt-1",
		Action:   string(audit.EventBatchRunCompleted),
		Category: audit.CategoryOperations,
		RunID:    "run-1",
		Function: "cusip.check",
		Rows:     2,
	}
	s.Require().NoError(sink.Publish(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal("run-1", string(records[0].Key))
	s.Equal(event.Function, got.Function)
	s.Equal(event.Rows, got.Rows)
}
