package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON documents to a single topic. Messages are hashed
// by key, so one key always lands on one partition.
type Producer struct {
	writer MessageWriter
	topic  string
}

// NewProducer creates a synchronous producer for topic.
func NewProducer(topic string, opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: brokers are required")
	}
	codec, err := ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  codec,
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: cfg.BatchTimeout,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
	return NewProducerWithWriter(writer, topic), nil
}

// NewProducerWithWriter wraps a writer already bound to topic.
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	initProducerMetricsOnce()
	return &Producer{writer: w, topic: topic}
}

func (p *Producer) Topic() string { return p.topic }

// PublishJSON encodes value and writes it under key.
func (p *Producer) PublishJSON(ctx context.Context, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", p.topic, err)
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   body,
		Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
		Time:    start,
	})
	observeProducerMetrics(p.topic, len(body), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
