package models

import "time"

// EventType identifies a domain event emitted by the booking core.
// Downstream notification/audit systems subscribe to these; the core
// never sends email or SMS itself.
type EventType string

const (
	EventBookingCreated    EventType = "booking_created"
	EventBookingConfirmed  EventType = "booking_confirmed"
	EventBookingCancelled  EventType = "booking_cancelled"
	EventPaymentCompleted  EventType = "payment_completed"
	EventPaymentRefunded   EventType = "payment_refunded"
	EventScheduleCancelled EventType = "schedule_cancelled"
	EventScheduleCompleted EventType = "schedule_completed"
)

// Actor is the authenticated principal plus request metadata, threaded
// explicitly into every core call instead of read from ambient state.
type Actor struct {
	UserID    string
	Role      string
	IPAddress string
	UserAgent string
}

// DomainEvent is a persisted record of something that happened in the
// booking core, for notification and audit consumers.
type DomainEvent struct {
	ID            string    `json:"id" db:"id"`
	EventType     EventType `json:"event_type" db:"event_type"`
	BookingID     *string   `json:"booking_id,omitempty" db:"booking_id"`
	BookingNumber *string   `json:"booking_number,omitempty" db:"booking_number"`
	ScheduleID    *string   `json:"schedule_id,omitempty" db:"schedule_id"`
	PaymentID     *string   `json:"payment_id,omitempty" db:"payment_id"`
	Amount        *float64  `json:"amount,omitempty" db:"amount"`
	Reason        *string   `json:"reason,omitempty" db:"reason"`
	ActorUserID   *string   `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole     *string   `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress     *string   `json:"ip_address,omitempty" db:"ip_address"`
	DeviceType    *string   `json:"device_type,omitempty" db:"device_type"`
	DeviceOS      *string   `json:"device_os,omitempty" db:"device_os"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
