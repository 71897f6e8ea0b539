package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketplace-escrow-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutbox struct {
	mu        sync.Mutex
	pending   []models.OutboxEvent
	delivered []string
	failures  map[string]int
	purged    int
}

func newFakeOutbox(ids ...string) *fakeOutbox {
	f := &fakeOutbox{failures: map[string]int{}}
	for _, id := range ids {
		f.pending = append(f.pending, models.OutboxEvent{Id: id, EventType: models.EventDeposit, AggregateId: "agg-" + id})
	}
	return f
}

func (f *fakeOutbox) FetchPendingEvents(_ context.Context, limit int) ([]models.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) < limit {
		limit = len(f.pending)
	}
	return append([]models.OutboxEvent(nil), f.pending[:limit]...), nil
}

func (f *fakeOutbox) MarkEventDelivered(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, id)
	f.remove(id)
	return nil
}

func (f *fakeOutbox) MarkEventFailed(_ context.Context, id, _ string, maxAttempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[id]++
	if f.failures[id] >= maxAttempts {
		f.remove(id)
	}
	return nil
}

func (f *fakeOutbox) PurgeDeliveredEvents(context.Context, time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged++
	return 0, nil
}

func (f *fakeOutbox) remove(id string) {
	for i, e := range f.pending {
		if e.Id == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

type recordingSink struct {
	mu     sync.Mutex
	seen   []string
	failOn map[string]bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, event models.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[event.Id] {
		return errors.New("sink unavailable")
	}
	s.seen = append(s.seen, event.Id)
	return nil
}

func TestDrainDeliversAllBatches(t *testing.T) {
	outbox := newFakeOutbox("e1", "e2", "e3", "e4", "e5")
	sink := &recordingSink{}
	r := NewRelay(RelayConfig{Store: outbox, Sinks: []Sink{sink}, BatchSize: 2})

	delivered, err := r.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, delivered)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4", "e5"}, sink.seen)
	assert.Empty(t, outbox.pending)
}

func TestDrainParksEventAfterMaxAttempts(t *testing.T) {
	outbox := newFakeOutbox("ok", "bad")
	sink := &recordingSink{failOn: map[string]bool{"bad": true}}
	r := NewRelay(RelayConfig{Store: outbox, Sinks: []Sink{sink}, BatchSize: 10, MaxAttempts: 2})

	delivered, err := r.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, outbox.failures["bad"])

	delivered, err = r.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Equal(t, 2, outbox.failures["bad"])
	assert.Empty(t, outbox.pending, "event parked after max attempts")
	assert.Equal(t, []string{"ok"}, outbox.delivered)
}

func TestStartRequiresSinks(t *testing.T) {
	r := NewRelay(RelayConfig{Store: newFakeOutbox(), PollingInterval: time.Second, CleanupInterval: time.Second})
	assert.Error(t, r.Start(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	outbox := newFakeOutbox("e1")
	sink := &recordingSink{}
	r := NewRelay(RelayConfig{
		Store:           outbox,
		Sinks:           []Sink{sink, LogSink{}},
		PollingInterval: 10 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
		Retention:       time.Hour,
	})

	require.NoError(t, r.Start(context.Background()))
	assert.Eventually(t, func() bool {
		outbox.mu.Lock()
		defer outbox.mu.Unlock()
		return len(outbox.delivered) == 1 && outbox.purged > 0
	}, time.Second, 5*time.Millisecond)
	r.Stop()
}

func TestKafkaMessage(t *testing.T) {
	event := models.OutboxEvent{
		Id:          "evt-1",
		EventType:   models.EventReservationSettled,
		AggregateId: "res-1",
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	msg, err := kafkaMessage(event)
	require.NoError(t, err)
	assert.Equal(t, []byte("res-1"), msg.Key)
	assert.Equal(t, event.CreatedAt, msg.Time)
	assert.Contains(t, string(msg.Value), `"eventType":"reservation.settled"`)

	_, err = NewKafkaSink(models.KafkaConfig{Topic: "escrow"})
	assert.Error(t, err)
}
