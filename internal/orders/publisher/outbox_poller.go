package publisher

import (
	"context"
	"log"
	"time"

	"github.com/mscykler/storefront/internal/orders"
	"github.com/segmentio/kafka-go"
)

const topic = "order-events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxPoller drains unpublished order events to Kafka. Events stay in the
// outbox until the publish and the processed-mark both succeed, so a crash
// between the two re-delivers rather than drops.
type OutboxPoller struct {
	tick   time.Duration
	batch  int
	repo   orders.RepoInterface
	writer messageWriter
}

func NewOutboxPoller(repo orders.RepoInterface, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{tick: time.Second, batch: 100, repo: repo, writer: w}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batch)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publish(ctx, event); errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			log.Printf("failed to mark event as processed id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *orders.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id for per-order ordering
		Value: event.Payload,             // already JSON from the outbox row
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
