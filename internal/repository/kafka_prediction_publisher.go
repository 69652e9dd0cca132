package repository

import (
	"context"

	"CandleNet/internal/domain/models"
	pkgkafka "CandleNet/pkg/kafka"
)

// KafkaPredictionPublisher implements PredictionPublisher for Kafka.
type KafkaPredictionPublisher struct {
	producer *pkgkafka.Producer
}

func NewKafkaPredictionPublisher(producer *pkgkafka.Producer) *KafkaPredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer}
}

// Publish keys messages by identity so predictions for one model stay ordered.
func (p *KafkaPredictionPublisher) Publish(ctx context.Context, pr *models.Prediction) error {
	return p.producer.PublishJSON(ctx, pr.Identity.Key(), pr)
}

func (p *KafkaPredictionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops predictions; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *models.Prediction) error { return nil }
func (NopPublisher) Close() error                                      { return nil }
