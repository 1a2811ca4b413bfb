package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/testutil"
)

type recordingSink struct {
	mu     sync.Mutex
	name   string
	err    error
	events []services.Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, ev services.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) received() []services.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]services.Event(nil), s.events...)
}

func sampleEvent(id string, t services.EventType) services.Event {
	return services.Event{
		ID:            id,
		Type:          t,
		ReservationID: 7,
		UserID:        3,
		OccurredAt:    time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcherDeliversToEverySink(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("broker down")}
	healthy := &recordingSink{name: "healthy"}

	d := NewDispatcher(8, failing, healthy)
	d.Start()

	d.Notify(sampleEvent("a", services.EventReservationCreated))
	d.Notify(sampleEvent("b", services.EventPreorderRegistered))
	d.Stop()

	require.Len(t, healthy.received(), 2)
	assert.Equal(t, "a", healthy.received()[0].ID)
	assert.Equal(t, "b", healthy.received()[1].ID)
	assert.Len(t, failing.received(), 2, "a failing sink does not stop delivery")
}

func TestDispatcherNotifyNeverBlocks(t *testing.T) {
	sink := &recordingSink{name: "slow"}
	d := NewDispatcher(1, sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(sampleEvent("x", services.EventReservationCancelled))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	d.Stop()
	assert.Len(t, sink.received(), 1, "only the buffered event survives")
}

func TestStoreSinkPersistsNotification(t *testing.T) {
	db := testutil.NewDB(t)
	sink := NewStoreSink(db)

	when := time.Date(2030, 5, 1, 19, 30, 0, 0, time.UTC)
	ev := sampleEvent("evt-1", services.EventReservationCreated)
	ev.ReservationTime = &when
	ev.RestaurantName = "La Cocina"

	require.NoError(t, sink.Deliver(context.Background(), ev))

	var stored models.Notification
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, "evt-1", stored.EventID)
	assert.Equal(t, "reservation.created", stored.EventType)
	assert.Equal(t, uint(7), stored.ReservationID)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, uint(3), *stored.UserID)
	assert.Equal(t, "Reservation confirmed for 2030-05-01 19:30 in La Cocina.", stored.Message)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSinkEnvelope(t *testing.T) {
	writer := &fakeWriter{}
	sink := &KafkaSink{writer: writer}

	ev := sampleEvent("evt-2", services.EventReservationCancelled)
	require.NoError(t, sink.Deliver(context.Background(), ev))
	require.Len(t, writer.msgs, 1)

	msg := writer.msgs[0]
	assert.Equal(t, "7", string(msg.Key))

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "evt-2", env["id"])
	assert.Equal(t, "reservation", env["entity"])
	assert.Equal(t, "cancelled", env["action"])
	assert.Equal(t, "7", env["resourceId"])
	assert.Equal(t, "reservation.cancelled", env["metadata"].(map[string]interface{})["type"])
	assert.Equal(t, float64(7), env["data"].(map[string]interface{})["reservation_id"])
}

func TestEventMessages(t *testing.T) {
	ev := sampleEvent("c", services.EventReservationCancelled)
	assert.Equal(t, "Reservation #7 has been cancelled.", ev.Message())

	ev = sampleEvent("p", services.EventPreorderRegistered)
	ev.PreorderCount = 3
	assert.Equal(t, "3 dishes pre-ordered for your reservation.", ev.Message())
}
