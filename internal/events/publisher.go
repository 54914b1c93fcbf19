// Package events publishes report lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/johnrirwin/fieldreport/internal/models"
)

// TypeReportSubmitted is the event_type header of ReportSubmittedEvent messages.
const TypeReportSubmitted = "report.submitted"

// Publisher delivers report events.
type Publisher interface {
	PublishReportSubmitted(ctx context.Context, event models.ReportSubmittedEvent) error
	Close() error
}

// messageWriter is the slice of kafka-go's Writer that KafkaPublisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher produces events to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a producer for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}
}

// PublishReportSubmitted writes one event keyed by user, so a user's reports
// stay ordered within a partition.
func (p *KafkaPublisher) PublishReportSubmitted(ctx context.Context, event models.ReportSubmittedEvent) error {
	msg, err := serializeReportSubmitted(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TypeReportSubmitted, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeReportSubmitted(event models.ReportSubmittedEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.UserID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(TypeReportSubmitted)},
			{Key: "report_id", Value: []byte(event.ReportID)},
			{Key: "submitted_at", Value: []byte(event.SubmittedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}

// Noop discards events. Used when no brokers are configured.
type Noop struct{}

func (Noop) PublishReportSubmitted(context.Context, models.ReportSubmittedEvent) error { return nil }
func (Noop) Close() error                                                              { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = Noop{}
)
