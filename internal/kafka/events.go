package kafka

import (
	"fmt"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/google/uuid"
)

const (
	EventStatusChanged           = "booking_status_changed"
	EventConsumptionsRegenerated = "consumptions_regenerated"
)

type BookingEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	BookingID      int64     `json:"booking_id"`
	CenterID       int64     `json:"center_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Price          string    `json:"price"`
	Consumptions   int       `json:"consumptions,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, booking *domain.Booking) BookingEvent {
	return BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		BookingID:  booking.ID,
		CenterID:   booking.CenterID,
		Status:     string(booking.Status),
		Price:      booking.Price.String(),
		OccurredAt: time.Now().UTC(),
	}
}

// Task handlers.
const (
	TaskAssignUnits = "booking.assign.units"
)

// TaskMessage is a deferred job. Key identifies the job: scheduling the same key twice
// before it runs yields a single execution.
type TaskMessage struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Handler   string    `json:"handler"`
	BookingID int64     `json:"booking_id"`
	RunAt     time.Time `json:"run_at"`
}

func AssignUnitsKey(bookingID int64) string {
	return fmt.Sprintf("%s.%d", TaskAssignUnits, bookingID)
}

func NewAssignUnitsTask(bookingID int64, runAt time.Time) TaskMessage {
	return TaskMessage{
		ID:        uuid.NewString(),
		Key:       AssignUnitsKey(bookingID),
		Handler:   TaskAssignUnits,
		BookingID: bookingID,
		RunAt:     runAt,
	}
}
