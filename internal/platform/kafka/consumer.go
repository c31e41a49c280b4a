package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"watchtower/internal/platform/config"
)

// Message is the transport-level view of a consumed record handed to
// handlers. Offsets are committed only after the handler returns, giving
// at-least-once delivery.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// Handler processes one consumed message. A non-nil error leaves the offset
// uncommitted for this poll; the consumer logs and moves on, so handlers own
// any retry behavior they need beyond redelivery-on-restart.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Consumer runs a poll loop for a single topic within a consumer group.
// Each job family gets its own Consumer so slow handlers (webhooks,
// retention deletes) never stall audit persistence.
type Consumer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewConsumer joins the group for one topic. The group is suffixed with the
// topic so partition assignment stays independent per job family.
func NewConsumer(cfg config.KafkaConfig, topic string, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup+"."+topic),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer for %s: %w", topic, err)
	}
	return &Consumer{client: client, topic: topic, logger: logger}, nil
}

// Run polls until the context is cancelled, invoking the handler for every
// record and committing afterwards. Handler errors are logged; the record is
// still committed because bounded retries already happened inside the
// handler runner and redelivering a poisoned job forever would stall the
// partition.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if fetches.IsClientClosed() {
			return errors.New("kafka client closed")
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var processed []*kgo.Record
		fetches.EachRecord(func(record *kgo.Record) {
			msg := &Message{Topic: record.Topic, Key: record.Key, Value: record.Value}
			if err := handler.Handle(ctx, msg); err != nil {
				c.logger.Error("handler failed, committing anyway",
					"topic", record.Topic,
					"key", string(record.Key),
					"error", err,
				)
			}
			processed = append(processed, record)
		})

		if len(processed) > 0 {
			if err := c.client.CommitRecords(ctx, processed...); err != nil {
				c.logger.Error("commit records", "topic", c.topic, "error", err)
			}
		}
	}
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}
