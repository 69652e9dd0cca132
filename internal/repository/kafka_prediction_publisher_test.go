package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"

	"CandleNet/internal/domain/models"
	pkgkafka "CandleNet/pkg/kafka"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error { return nil }

func TestKafkaPredictionPublisher(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaPredictionPublisher(pkgkafka.NewProducerWithWriter(w, "candlenet.predictions"))

	pr := &models.Prediction{Identity: models.Identity{Symbol: "BTCUSDT", Partition: "15m", Horizon: "8"}, Value: 0.0042}
	if err := p.Publish(context.Background(), pr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "BTCUSDT/15m/8" {
		t.Fatalf("unexpected key %s", w.msgs[0].Key)
	}
	var got models.Prediction
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Value != 0.0042 {
		t.Fatalf("unexpected value %v", got.Value)
	}
}
