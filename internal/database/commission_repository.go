package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/andesviajes/tours-backend/internal/models"
)

// CommissionRepository handles database operations for the commissions table
type CommissionRepository struct {
	db *sqlx.DB
}

// NewCommissionRepository creates a new CommissionRepository
func NewCommissionRepository(db *sqlx.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// Create inserts a commission record inside the caller's transaction
func (r *CommissionRepository) Create(q sqlx.Ext, commission *models.Commission) error {
	query := `
		INSERT INTO commissions (
			id, booking_id, tour_id, amount, rate, status, period_month, period_year
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at
	`

	if commission.ID == "" {
		commission.ID = uuid.New().String()
	}

	return q.QueryRowx(
		query,
		commission.ID, commission.BookingID, commission.TourID,
		commission.Amount, commission.Rate, commission.Status,
		commission.PeriodMonth, commission.PeriodYear,
	).Scan(&commission.CreatedAt)
}

// GetByID retrieves a commission by ID
func (r *CommissionRepository) GetByID(commissionID string) (*models.Commission, error) {
	query := `
		SELECT id, booking_id, tour_id, amount, rate, status,
			   period_month, period_year, paid_at, created_at
		FROM commissions
		WHERE id = $1
	`
	return r.scanCommission(r.db.QueryRow(query, commissionID))
}

// GetByBookingID retrieves the commission created for a booking
func (r *CommissionRepository) GetByBookingID(bookingID string) (*models.Commission, error) {
	query := `
		SELECT id, booking_id, tour_id, amount, rate, status,
			   period_month, period_year, paid_at, created_at
		FROM commissions
		WHERE booking_id = $1
	`
	return r.scanCommission(r.db.QueryRow(query, bookingID))
}

// MarkAsPaid marks pending commissions as paid. Already-paid rows are
// skipped by the status filter so repeated calls settle nothing twice.
// Returns the number of rows actually transitioned.
func (r *CommissionRepository) MarkAsPaid(commissionIDs []string) (int64, error) {
	query := `
		UPDATE commissions
		SET status = 'paid', paid_at = NOW()
		WHERE id = ANY($1)
		  AND status = 'pending'
	`

	result, err := r.db.Exec(query, pq.Array(commissionIDs))
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetReport builds the commission report for one calendar month
func (r *CommissionRepository) GetReport(year, month int) (*models.CommissionReport, error) {
	report := &models.CommissionReport{PeriodYear: year, PeriodMonth: month}

	err := r.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0),
			   COUNT(*),
			   COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
			   COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0)
		FROM commissions
		WHERE period_year = $1 AND period_month = $2`,
		year, month,
	).Scan(&report.TotalAmount, &report.Count, &report.PendingAmount, &report.PaidAmount)
	if err != nil {
		return nil, err
	}

	if report.Count > 0 {
		report.AverageAmount = report.TotalAmount / float64(report.Count)
	}

	byTour, err := r.tourBreakdown(`WHERE c.period_year = $1 AND c.period_month = $2`, year, month)
	if err != nil {
		return nil, err
	}
	report.ByTour = byTour

	return report, nil
}

// GetYearlyReport builds the commission report for a whole year
func (r *CommissionRepository) GetYearlyReport(year int) (*models.CommissionReport, error) {
	report := &models.CommissionReport{PeriodYear: year}

	err := r.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0),
			   COUNT(*),
			   COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
			   COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0)
		FROM commissions
		WHERE period_year = $1`,
		year,
	).Scan(&report.TotalAmount, &report.Count, &report.PendingAmount, &report.PaidAmount)
	if err != nil {
		return nil, err
	}

	if report.Count > 0 {
		report.AverageAmount = report.TotalAmount / float64(report.Count)
	}

	byTour, err := r.tourBreakdown(`WHERE c.period_year = $1`, year)
	if err != nil {
		return nil, err
	}
	report.ByTour = byTour

	return report, nil
}

// GetReportByDateRange builds the commission report between two instants
func (r *CommissionRepository) GetReportByDateRange(start, end time.Time) (*models.CommissionReport, error) {
	report := &models.CommissionReport{StartDate: &start, EndDate: &end}

	err := r.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0),
			   COUNT(*),
			   COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
			   COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0)
		FROM commissions
		WHERE created_at >= $1 AND created_at < $2`,
		start, end,
	).Scan(&report.TotalAmount, &report.Count, &report.PendingAmount, &report.PaidAmount)
	if err != nil {
		return nil, err
	}

	if report.Count > 0 {
		report.AverageAmount = report.TotalAmount / float64(report.Count)
	}

	byTour, err := r.tourBreakdown(`WHERE c.created_at >= $1 AND c.created_at < $2`, start, end)
	if err != nil {
		return nil, err
	}
	report.ByTour = byTour

	return report, nil
}

func (r *CommissionRepository) tourBreakdown(where string, args ...interface{}) ([]models.TourCommissionSummary, error) {
	query := `
		SELECT c.tour_id, t.name AS tour_name, SUM(c.amount) AS total_amount, COUNT(*) AS count
		FROM commissions c
		JOIN tours t ON t.id = c.tour_id
		` + where + `
		GROUP BY c.tour_id, t.name
		ORDER BY total_amount DESC
	`

	summaries := []models.TourCommissionSummary{}
	if err := r.db.Select(&summaries, query, args...); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *CommissionRepository) scanCommission(row scanner) (*models.Commission, error) {
	commission := &models.Commission{}
	var paidAt sql.NullTime

	err := row.Scan(
		&commission.ID, &commission.BookingID, &commission.TourID,
		&commission.Amount, &commission.Rate, &commission.Status,
		&commission.PeriodMonth, &commission.PeriodYear, &paidAt, &commission.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paidAt.Valid {
		commission.PaidAt = &paidAt.Time
	}

	return commission, nil
}
