//go:build integration

package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"muster/internal/event"
	"muster/internal/platform/kafka"
	id "muster/pkg/domain"
	"muster/pkg/testutil/containers"
)

type PublisherRedpandaSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	brokers  []string
	producer *kafka.Producer
}

func (s *PublisherRedpandaSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.brokers = s.redpanda.Brokers

	producer, err := kafka.NewProducer(s.brokers)
	s.Require().NoError(err)
	s.Require().NotNil(producer)
	s.producer = producer
}

func (s *PublisherRedpandaSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func TestPublisherRedpandaSuite(t *testing.T) {
	suite.Run(t, new(PublisherRedpandaSuite))
}

func (s *PublisherRedpandaSuite) TestPublishReachesTopic() {
	topic := fmt.Sprintf("muster-events-%s", uuid.NewString())
	s.redpanda.CreateTopic(s.T(), topic)

	publisher := NewPublisher(s.producer, topic, NewSampler(0), nil, slog.Default())

	clusterID := id.ClusterID(uuid.New())
	e := &event.Event{
		ID:           id.NewEventID(),
		Timestamp:    time.Now(),
		ObjID:        "node-42",
		ObjType:      event.ObjTypeNode,
		ObjName:      "web-node",
		Action:       event.ActionNodeCreate,
		Status:       event.StatusFailed,
		StatusReason: "quota exceeded",
		Level:        event.LevelError,
		ClusterID:    clusterID,
		Project:      "project-a",
		User:         "engine",
	}
	publisher.Publish(context.Background(), e)

	record := s.consumeOne(topic)
	s.Equal("node-42", string(record.Key), "records are keyed by owning object")

	var msg streamEvent
	s.Require().NoError(json.Unmarshal(record.Value, &msg))
	s.Equal(e.ID.String(), msg.ID)
	s.Equal(event.ActionNodeCreate, msg.Action)
	s.Equal("ERROR", msg.Level)
	s.Equal("quota exceeded", msg.StatusReason)
	s.Equal(clusterID.String(), msg.ClusterID)
	s.Equal("project-a", msg.Project)
}

func (s *PublisherRedpandaSuite) TestSampledOutEventNeverReachesTopic() {
	topic := fmt.Sprintf("muster-events-%s", uuid.NewString())
	s.redpanda.CreateTopic(s.T(), topic)

	publisher := NewPublisher(s.producer, topic, NewSampler(0), nil, slog.Default())
	publisher.Publish(context.Background(), &event.Event{
		ID:        id.NewEventID(),
		Timestamp: time.Now(),
		ObjID:     "node-1",
		ObjType:   event.ObjTypeNode,
		Action:    event.ActionNodeUpdate,
		Status:    event.StatusStart,
		Level:     event.LevelDebug,
		Project:   "project-a",
	})

	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	fetches := client.PollFetches(ctx)
	s.Empty(fetches.Records(), "debug event should have been sampled out")
}

// consumeOne reads a single record from the topic, failing after a timeout.
func (s *PublisherRedpandaSuite) consumeOne(topic string) *kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		fetches := client.PollFetches(ctx)
		cancel()
		if records := fetches.Records(); len(records) > 0 {
			return records[0]
		}
	}
	s.FailNow("timed out waiting for a record on " + topic)
	return nil
}
