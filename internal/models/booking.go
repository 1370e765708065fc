package models

import (
	"errors"
	"time"
)

// ModificationWindow is the cutoff before a schedule's start after which
// a booking can no longer be changed.
const ModificationWindow = 24 * time.Hour

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusRefunded  BookingStatus = "refunded"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// Booking is a reservation of participant spots on one tour schedule.
// Bookings are never hard-deleted; cancellation is a status transition.
type Booking struct {
	ID                 string        `json:"id" db:"id"`
	BookingNumber      string        `json:"booking_number" db:"booking_number"`
	UserID             string        `json:"user_id" db:"user_id"`
	ScheduleID         string        `json:"schedule_id" db:"schedule_id"`
	ParticipantsCount  int           `json:"participants_count" db:"participants_count"`
	PricePerPerson     float64       `json:"price_per_person" db:"price_per_person"`
	TotalAmount        float64       `json:"total_amount" db:"total_amount"`
	CommissionRate     float64       `json:"commission_rate" db:"commission_rate"`
	CommissionAmount   float64       `json:"commission_amount" db:"commission_amount"`
	Status             BookingStatus `json:"status" db:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentMethod      *string       `json:"payment_method,omitempty" db:"payment_method"`
	PaymentReference   *string       `json:"payment_reference,omitempty" db:"payment_reference"`
	ContactName        string        `json:"contact_name" db:"contact_name"`
	ContactPhone       *string       `json:"contact_phone,omitempty" db:"contact_phone"`
	ContactEmail       *string       `json:"contact_email,omitempty" db:"contact_email"`
	EmergencyContact   *string       `json:"emergency_contact,omitempty" db:"emergency_contact"`
	EmergencyPhone     *string       `json:"emergency_phone,omitempty" db:"emergency_phone"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty" db:"confirmed_at"`
	PaidAt             *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the booking reached a final state
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRefunded, BookingStatusNoShow:
		return true
	}
	return false
}

// CanBeCancelled checks if the booking can be cancelled
func (b *Booking) CanBeCancelled() bool {
	switch b.Status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusPaid:
		return true
	}
	return false
}

// CanBeConfirmed checks if the booking is waiting for confirmation
func (b *Booking) CanBeConfirmed() bool {
	return b.Status == BookingStatusPending
}

// HasReservedSpots reports whether the booking currently holds schedule
// capacity. Spots are committed at confirmation, not at creation.
func (b *Booking) HasReservedSpots() bool {
	switch b.Status {
	case BookingStatusConfirmed, BookingStatusPaid:
		return true
	}
	return false
}

// CanBeModified checks the modification window against the schedule start
func (b *Booking) CanBeModified(scheduleStart, now time.Time) bool {
	if b.IsTerminal() {
		return false
	}
	return scheduleStart.Sub(now) >= ModificationWindow
}

// IsPaid checks if the booking has been paid
func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusPaid
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	ScheduleID        string  `json:"schedule_id" binding:"required"`
	ParticipantsCount int     `json:"participants_count" binding:"required,min=1"`
	ContactName       string  `json:"contact_name" binding:"required"`
	ContactPhone      *string `json:"contact_phone,omitempty"`
	ContactEmail      *string `json:"contact_email,omitempty"`
	EmergencyContact  *string `json:"emergency_contact,omitempty"`
	EmergencyPhone    *string `json:"emergency_phone,omitempty"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if r.ParticipantsCount < 1 {
		return errors.New("participants_count must be at least 1")
	}

	return nil
}

// UpdateBookingRequest represents the request to modify a booking
type UpdateBookingRequest struct {
	ParticipantsCount *int    `json:"participants_count,omitempty"`
	ScheduleID        *string `json:"schedule_id,omitempty"`
	ContactName       *string `json:"contact_name,omitempty"`
	ContactPhone      *string `json:"contact_phone,omitempty"`
	ContactEmail      *string `json:"contact_email,omitempty"`
	EmergencyContact  *string `json:"emergency_contact,omitempty"`
	EmergencyPhone    *string `json:"emergency_phone,omitempty"`
}

// Validate validates the update booking request
func (r *UpdateBookingRequest) Validate() error {
	if r.ParticipantsCount != nil && *r.ParticipantsCount < 1 {
		return errors.New("participants_count must be at least 1")
	}

	return nil
}

// CancelBookingRequest represents the request to cancel a booking
type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty"`
}
