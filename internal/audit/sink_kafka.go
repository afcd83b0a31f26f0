package audit

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"trialgate/internal/platform/kafka/producer"
)

// DefaultKafkaTopic is where trial-log entries land when a broker is configured.
const DefaultKafkaTopic = "trialgate.trial-log"

// KafkaSink fans trial-log entries out to Kafka for downstream analytics.
// Delivery is fire-and-forget: the durable trial log on disk stays the
// source of truth and broker trouble never touches the request path.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
	logger   *slog.Logger
}

// NewKafkaSink wraps a producer as a Publisher sink.
func NewKafkaSink(p *producer.Producer, topic string, logger *slog.Logger) *KafkaSink {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &KafkaSink{producer: p, topic: topic, logger: logger}
}

func (s *KafkaSink) Publish(entry Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Error("failed to encode trial log entry for kafka", "error", err)
		return
	}

	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(strconv.FormatInt(entry.UserID, 10)),
		Value: payload,
	}
	if err := s.producer.ProduceAsync(msg); err != nil {
		s.logger.Warn("kafka trial log publish failed", "error", err)
	}
}
