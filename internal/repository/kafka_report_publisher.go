package repository

import (
	"context"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/repository"
	pkgkafka "AnalystCouncil/pkg/kafka"
)

// KafkaReportPublisher fans completed reports out to Kafka, keyed by
// symbol so per-symbol ordering is preserved.
type KafkaReportPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaReportPublisher creates a Kafka report publisher.
func NewKafkaReportPublisher(producer *pkgkafka.Producer, topic string) repository.ReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) Publish(ctx context.Context, r *models.CouncilReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Request.Symbol), r)
}

func (p *KafkaReportPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
