// Package stream publishes committed decision log entries to Kafka so audit
// consumers (reporting, archival) can follow the ledger without polling it.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"fitgap/internal/decisionlog/models"
)

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher writes one record per entry, keyed by assessment ID so every
// assessment's entries land on one partition in ledger order.
type Publisher struct {
	producer Producer
	topic    string
	breaker  *Breaker
}

type Option func(*Publisher)

// WithBreaker guards the producer with b. Without it every publish reaches
// the broker.
func WithBreaker(b *Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

func NewPublisher(producer Producer, topic string, opts ...Option) *Publisher {
	p := &Publisher{producer: producer, topic: topic}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, entry *models.Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry %s: %w", entry.ID, err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(entry.AssessmentID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(entry.Action)},
			{Key: "entity_type", Value: []byte(entry.EntityType)},
		},
		Timestamp: entry.Timestamp,
	}
	if p.breaker != nil && !p.breaker.Allow() {
		return fmt.Errorf("produce entry %s: %w", entry.ID, ErrCircuitOpen)
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		if p.breaker != nil {
			p.breaker.RecordFailure()
		}
		return fmt.Errorf("produce entry %s: %w", entry.ID, err)
	}
	if p.breaker != nil {
		p.breaker.RecordSuccess()
	}
	return nil
}
