package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mscykler/storefront/internal/domain"
	"github.com/mscykler/storefront/internal/orders"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	events       []*orders.OutboxEvent
	fetchErr     error
	markErr      error
	processedIDs []int64
}

func (m *mockRepo) CreateOrder(context.Context, *domain.Order) error { return nil }

func (m *mockRepo) GetOrderBySessionID(context.Context, string) (*domain.Order, error) {
	return nil, orders.ErrOrderNotFound
}

func (m *mockRepo) CompleteOrder(context.Context, uuid.UUID) error { return nil }

func (m *mockRepo) GetUnprocessedEvents(context.Context, int) ([]*orders.OutboxEvent, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.events, nil
}

func (m *mockRepo) MarkEventAsProcessed(_ context.Context, id int64) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.processedIDs = append(m.processedIDs, id)
	return nil
}

func (m *mockRepo) Close() error { return nil }

type mockWriter struct {
	messages []kafka.Message
	err      error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func newTestPoller(repo orders.RepoInterface, writer messageWriter) *OutboxPoller {
	return &OutboxPoller{tick: time.Second, batch: 100, repo: repo, writer: writer}
}

func outboxEvent(id int64, eventType string) *orders.OutboxEvent {
	return &orders.OutboxEvent{
		ID:          id,
		AggregateID: "7e7f9e49-08ee-4a92-b2ef-6a1e8f3f9f01",
		EventType:   eventType,
		Payload:     json.RawMessage(`{"order_id":"7e7f9e49-08ee-4a92-b2ef-6a1e8f3f9f01","total_amount":8999}`),
		CreatedAt:   time.Now(),
	}
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	repo := &mockRepo{events: []*orders.OutboxEvent{
		outboxEvent(1, orders.EventTypeOrderCreated),
		outboxEvent(2, orders.EventTypeOrderCompleted),
	}}
	writer := &mockWriter{}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, []int64{1, 2}, repo.processedIDs)

	msg := writer.messages[0]
	assert.Equal(t, "7e7f9e49-08ee-4a92-b2ef-6a1e8f3f9f01", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, orders.EventTypeOrderCreated, string(msg.Headers[0].Value))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, 8999.0, payload["total_amount"])
}

func TestProcessUnpublishedEvents_PublishFailureLeavesEventUnmarked(t *testing.T) {
	repo := &mockRepo{events: []*orders.OutboxEvent{outboxEvent(1, orders.EventTypeOrderCreated)}}
	writer := &mockWriter{err: errors.New("broker unavailable")}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, repo.processedIDs, "event must stay unprocessed for redelivery")
}

func TestProcessUnpublishedEvents_MarkFailureDoesNotStopBatch(t *testing.T) {
	repo := &mockRepo{
		events:  []*orders.OutboxEvent{outboxEvent(1, orders.EventTypeOrderCreated), outboxEvent(2, orders.EventTypeOrderCreated)},
		markErr: errors.New("deadlock"),
	}
	writer := &mockWriter{}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	// both events still get published even though marking fails
	assert.Len(t, writer.messages, 2)
}

func TestProcessUnpublishedEvents_FetchFailure(t *testing.T) {
	repo := &mockRepo{fetchErr: errors.New("database gone")}
	writer := &mockWriter{}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.messages)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := &mockRepo{}
	poller := &OutboxPoller{tick: 10 * time.Millisecond, batch: 100, repo: repo, writer: &mockWriter{}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
