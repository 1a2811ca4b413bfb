package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-reservations/models"
)

type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventPreorderRegistered   EventType = "reservation.preorder_registered"
)

// Event describes something that already happened to a committed reservation.
type Event struct {
	ID              string     `json:"id"`
	Type            EventType  `json:"type"`
	ReservationID   uint       `json:"reservation_id"`
	UserID          uint       `json:"user_id,omitempty"`
	RestaurantName  string     `json:"restaurant_name,omitempty"`
	ReservationTime *time.Time `json:"reservation_time,omitempty"`
	PreorderCount   int        `json:"preorder_count,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// Message renders the human-readable notification text for the event.
func (e Event) Message() string {
	switch e.Type {
	case EventReservationCreated:
		when := ""
		if e.ReservationTime != nil {
			when = e.ReservationTime.UTC().Format("2006-01-02 15:04")
		}
		return fmt.Sprintf("Reservation confirmed for %s in %s.", when, e.RestaurantName)
	case EventReservationCancelled:
		return fmt.Sprintf("Reservation #%d has been cancelled.", e.ReservationID)
	case EventPreorderRegistered:
		return fmt.Sprintf("%d dishes pre-ordered for your reservation.", e.PreorderCount)
	}
	return string(e.Type)
}

// Notifier receives events after the reservation change has been committed.
// Implementations must not block the caller.
type Notifier interface {
	Notify(Event)
}

type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

func newEvent(t EventType, r *models.Reservation, at time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          t,
		ReservationID: r.ID,
		UserID:        r.UserID,
		OccurredAt:    at.UTC(),
	}
}

func reservationCreatedEvent(r *models.Reservation, restaurantName string, at time.Time) Event {
	ev := newEvent(EventReservationCreated, r, at)
	when := r.ReservationTime.UTC()
	ev.ReservationTime = &when
	ev.RestaurantName = restaurantName
	return ev
}

func reservationCancelledEvent(r *models.Reservation, at time.Time) Event {
	return newEvent(EventReservationCancelled, r, at)
}

func preorderRegisteredEvent(r *models.Reservation, at time.Time) Event {
	ev := newEvent(EventPreorderRegistered, r, at)
	ev.PreorderCount = len(r.PreorderedMenuItems)
	return ev
}
