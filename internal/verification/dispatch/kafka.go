package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"veriterra/internal/verification/models"
)

// Topic names for the downstream consumers.
const (
	TopicMintRequests = "verification.mint-requests"
	TopicReviewQueue  = "verification.review-queue"
	TopicRejections   = "verification.rejections"
)

// KafkaDispatcher publishes verdict outcomes to Kafka. Messages are
// keyed by project ID so per-project ordering holds across partitions.
type KafkaDispatcher struct {
	client *kgo.Client
}

// NewKafka connects a producer to the given brokers.
func NewKafka(brokers []string) (*KafkaDispatcher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka producer: %w", err)
	}
	return &KafkaDispatcher{client: client}, nil
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, verdict *models.Verdict) error {
	_, payload, err := route(verdict)
	if err != nil {
		return err
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode dispatch payload: %w", err)
	}

	record := &kgo.Record{
		Topic: topicFor(verdict.OverallStatus),
		Key:   []byte(verdict.ProjectID.String()),
		Value: value,
	}
	if err := d.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", record.Topic, err)
	}
	return nil
}

// Close flushes buffered records and closes the producer.
func (d *KafkaDispatcher) Close() {
	d.client.Close()
}

func topicFor(status models.VerdictStatus) string {
	switch status {
	case models.VerdictVerified:
		return TopicMintRequests
	case models.VerdictRejected:
		return TopicRejections
	default:
		return TopicReviewQueue
	}
}
