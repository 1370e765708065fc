package models

import (
	"errors"
	"time"
)

// ScheduleStatus represents the status of a tour schedule
type ScheduleStatus string

const (
	ScheduleStatusAvailable ScheduleStatus = "available"
	ScheduleStatusFull      ScheduleStatus = "full"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
	ScheduleStatusCompleted ScheduleStatus = "completed"
)

// TourSchedule is a specific dated occurrence of a tour that can be booked.
// Invariant: 0 <= BookedSpots <= AvailableSpots, and status is full exactly
// when no spots remain (unless the schedule was cancelled or completed).
type TourSchedule struct {
	ID            string         `json:"id" db:"id"`
	TourID        string         `json:"tour_id" db:"tour_id"`
	Date          time.Time      `json:"date" db:"date"`
	StartTime     string         `json:"start_time" db:"start_time"` // HH:MM, 24h
	EndTime       string         `json:"end_time" db:"end_time"`
	AvailableSpots int           `json:"available_spots" db:"available_spots"`
	BookedSpots   int            `json:"booked_spots" db:"booked_spots"`
	Status        ScheduleStatus `json:"status" db:"status"`
	PriceOverride *float64       `json:"price_override,omitempty" db:"price_override"`
	GuideName     *string        `json:"guide_name,omitempty" db:"guide_name"`
	WeatherNote   *string        `json:"weather_note,omitempty" db:"weather_note"`
	Notes         *string        `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// RemainingSpots returns the free capacity on the schedule, floored at zero
func (s *TourSchedule) RemainingSpots() int {
	remaining := s.AvailableSpots - s.BookedSpots
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StartDateTime combines the schedule date with its start time
func (s *TourSchedule) StartDateTime() time.Time {
	start := s.Date
	if t, err := time.Parse("15:04", s.StartTime); err == nil {
		start = time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(),
			t.Hour(), t.Minute(), 0, 0, s.Date.Location())
	}
	return start
}

// IsPast reports whether the schedule has already started
func (s *TourSchedule) IsPast(now time.Time) bool {
	return s.StartDateTime().Before(now)
}

// CanBeBooked reports whether new bookings may target this schedule
func (s *TourSchedule) CanBeBooked(now time.Time) bool {
	return s.Status == ScheduleStatusAvailable && s.RemainingSpots() > 0 && !s.IsPast(now)
}

// EffectivePricePerPerson returns the override price when set, else the tour price
func (s *TourSchedule) EffectivePricePerPerson(tour *Tour) float64 {
	if s.PriceOverride != nil {
		return *s.PriceOverride
	}
	return tour.PricePerPerson
}

// CreateScheduleRequest represents the request to create a tour schedule
type CreateScheduleRequest struct {
	Date           string   `json:"date" binding:"required"` // YYYY-MM-DD
	StartTime      string   `json:"start_time" binding:"required"`
	EndTime        string   `json:"end_time" binding:"required"`
	AvailableSpots int      `json:"available_spots" binding:"required,min=1"`
	PriceOverride  *float64 `json:"price_override,omitempty"`
	GuideName      *string  `json:"guide_name,omitempty"`
}

// Validate validates the create schedule request
func (r *CreateScheduleRequest) Validate() error {
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return errors.New("date must be in YYYY-MM-DD format")
	}

	if _, err := time.Parse("15:04", r.StartTime); err != nil {
		return errors.New("start_time must be in HH:MM format")
	}

	if _, err := time.Parse("15:04", r.EndTime); err != nil {
		return errors.New("end_time must be in HH:MM format")
	}

	if r.PriceOverride != nil && *r.PriceOverride <= 0 {
		return errors.New("price_override must be positive")
	}

	return nil
}

// CancelScheduleRequest represents the request to cancel a schedule
type CancelScheduleRequest struct {
	Reason *string `json:"reason,omitempty"`
}
