package models

import "time"

// CommissionStatus represents the payout status of a commission record
type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

// Commission is the platform's cut of a paid booking. Created at payment
// time; immutable afterwards except for the payout status.
type Commission struct {
	ID          string           `json:"id" db:"id"`
	BookingID   string           `json:"booking_id" db:"booking_id"`
	TourID      string           `json:"tour_id" db:"tour_id"`
	Amount      float64          `json:"amount" db:"amount"`
	Rate        float64          `json:"rate" db:"rate"`
	Status      CommissionStatus `json:"status" db:"status"`
	PeriodMonth int              `json:"period_month" db:"period_month"`
	PeriodYear  int              `json:"period_year" db:"period_year"`
	PaidAt      *time.Time       `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// TourCommissionSummary aggregates commissions for one tour within a report
type TourCommissionSummary struct {
	TourID      string  `json:"tour_id" db:"tour_id"`
	TourName    string  `json:"tour_name" db:"tour_name"`
	TotalAmount float64 `json:"total_amount" db:"total_amount"`
	Count       int     `json:"count" db:"count"`
}

// CommissionReport is an aggregation of commission records over a period
type CommissionReport struct {
	PeriodYear    int                     `json:"period_year,omitempty"`
	PeriodMonth   int                     `json:"period_month,omitempty"`
	StartDate     *time.Time              `json:"start_date,omitempty"`
	EndDate       *time.Time              `json:"end_date,omitempty"`
	TotalAmount   float64                 `json:"total_amount"`
	Count         int                     `json:"count"`
	AverageAmount float64                 `json:"average_amount"`
	PendingAmount float64                 `json:"pending_amount"`
	PaidAmount    float64                 `json:"paid_amount"`
	ByTour        []TourCommissionSummary `json:"by_tour"`
}

// MarkCommissionsPaidRequest represents the bulk payout request
type MarkCommissionsPaidRequest struct {
	CommissionIDs []string `json:"commission_ids" binding:"required,min=1"`
}
