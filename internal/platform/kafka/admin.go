package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"watchtower/internal/platform/config"
)

// EnsureTopics creates the job topics on a fresh broker so the pipeline
// works out of the box. Existing topics are left untouched. Topics that
// must be processed serially (retention deletes) are created with a single
// partition.
func EnsureTopics(ctx context.Context, cfg config.KafkaConfig, serialTopics map[string]bool, topics ...string) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...))
	if err != nil {
		return fmt.Errorf("create kafka admin client: %w", err)
	}
	defer client.Close()

	admin := kadm.NewClient(client)
	for _, topic := range topics {
		partitions := cfg.TopicPartitions
		if serialTopics[topic] {
			partitions = 1
		}
		_, err := admin.CreateTopic(ctx, partitions, -1, nil, topic)
		if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, err)
		}
	}
	return nil
}
