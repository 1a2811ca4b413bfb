package notifications

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/realtime"
	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/utils"
	"gorm.io/gorm"
)

// LogSink prints one line per event.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Deliver(_ context.Context, ev services.Event) error {
	utils.InfoLogger.WithFields(map[string]interface{}{
		"event_id":       ev.ID,
		"event_type":     ev.Type,
		"reservation_id": ev.ReservationID,
	}).Infof("Notification: %s", ev.Message())
	return nil
}

// StoreSink persists events so they can be listed later.
type StoreSink struct {
	DB *gorm.DB
}

func NewStoreSink(db *gorm.DB) *StoreSink {
	return &StoreSink{DB: db}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Deliver(ctx context.Context, ev services.Event) error {
	n := models.Notification{
		EventID:       ev.ID,
		EventType:     string(ev.Type),
		ReservationID: ev.ReservationID,
		Message:       ev.Message(),
	}
	if ev.UserID != 0 {
		uid := ev.UserID
		n.UserID = &uid
	}
	return s.DB.WithContext(ctx).Create(&n).Error
}

// HubSink pushes events to websocket subscribers.
type HubSink struct {
	Hub *realtime.Hub
}

func NewHubSink(hub *realtime.Hub) *HubSink {
	return &HubSink{Hub: hub}
}

func (s *HubSink) Name() string { return "websocket" }

func (s *HubSink) Deliver(_ context.Context, ev services.Event) error {
	_, err := s.Hub.Broadcast(realtime.Message{Event: string(ev.Type), Data: ev})
	return err
}

// Envelope is the message published to Kafka.
type Envelope struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId"`
	Metadata   map[string]string `json:"metadata"`
	Data       services.Event    `json:"data"`
}

func NewEnvelope(ev services.Event) Envelope {
	return Envelope{
		ID:         ev.ID,
		Entity:     "reservation",
		Action:     actionFor(ev.Type),
		ResourceID: strconv.FormatUint(uint64(ev.ReservationID), 10),
		Metadata: map[string]string{
			"type":        string(ev.Type),
			"occurred_at": ev.OccurredAt.Format(time.RFC3339),
		},
		Data: ev,
	}
}

func actionFor(t services.EventType) string {
	switch t {
	case services.EventReservationCreated:
		return "created"
	case services.EventReservationCancelled:
		return "cancelled"
	case services.EventPreorderRegistered:
		return "preorder_registered"
	}
	return "unknown"
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes envelopes keyed by reservation id so events for one
// reservation stay on one partition.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, ev services.Event) error {
	env := NewEnvelope(ev)
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.ResourceID),
		Value: value,
		Time:  ev.OccurredAt,
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
