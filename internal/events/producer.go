package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Producer writes messages asynchronously through an inbox goroutine so a
// slow broker never sits on the request path.
type Producer struct {
	w       *kafka.Writer
	name    string
	inbox   chan kafka.Message
	closeCh chan struct{}
}

// NewProducer builds a producer for one topic. name identifies this service
// in the envelope's producer field.
func NewProducer(brokers []string, topic, name string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		name:    name,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				close(p.inbox)
				for m := range p.inbox {
					_ = p.w.WriteMessages(context.Background(), m)
				}
				_ = p.w.Close()
				close(p.closeCh)
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					close(p.closeCh)
					return
				}
				_ = p.w.WriteMessages(context.Background(), m)
			}
		}
	}()
}

// PublishOrder wraps the payload in a versioned envelope keyed by order id.
// Nil receivers are allowed so callers can skip the wiring when Kafka is
// not configured.
func (p *Producer) PublishOrder(eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.name,
		CorrelationID: orderID,
		Payload:       MustMarshal(payload),
	}
	p.inbox <- kafka.Message{
		Key:   PartitionKey(orderID),
		Value: MustMarshal(env),
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}
}

// Close stops the inbox so the goroutine flushes what is left and exits.
func (p *Producer) Close() {
	if p == nil {
		return
	}
	close(p.inbox)
}

func (p *Producer) WaitClosed() {
	if p == nil {
		return
	}
	<-p.closeCh
}
