package services

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/models"
)

// CommissionService is the ledger of platform commissions. One record is
// written per paid booking; payouts flip records to paid exactly once.
type CommissionService struct {
	commissionRepo *database.CommissionRepository
	logger         *logrus.Logger
	now            func() time.Time
}

// NewCommissionService creates a new commission service
func NewCommissionService(commissionRepo *database.CommissionRepository, logger *logrus.Logger) *CommissionService {
	return &CommissionService{
		commissionRepo: commissionRepo,
		logger:         logger,
		now:            time.Now,
	}
}

// RecordCommission writes the commission row for a paid booking inside the
// caller's transaction. The period is the payment month, not the tour date.
func (s *CommissionService) RecordCommission(q sqlx.Ext, booking *models.Booking, tourID string) (*models.Commission, error) {
	now := s.now()

	commission := &models.Commission{
		BookingID:   booking.ID,
		TourID:      tourID,
		Amount:      booking.CommissionAmount,
		Rate:        booking.CommissionRate,
		Status:      models.CommissionStatusPending,
		PeriodMonth: int(now.Month()),
		PeriodYear:  now.Year(),
	}

	if err := s.commissionRepo.Create(q, commission); err != nil {
		return nil, fmt.Errorf("failed to record commission: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"commission_id": commission.ID,
		"booking_id":    booking.ID,
		"amount":        commission.Amount,
		"period":        fmt.Sprintf("%04d-%02d", commission.PeriodYear, commission.PeriodMonth),
	}).Info("Commission recorded")

	return commission, nil
}

// MarkAsPaid settles pending commissions in bulk. Repeating the call with
// the same IDs is harmless: already-paid records are skipped, and the
// returned count covers only the records settled by this call.
func (s *CommissionService) MarkAsPaid(commissionIDs []string) (int64, error) {
	if len(commissionIDs) == 0 {
		return 0, models.NewDomainError(models.ErrInvalidInput, "commission_ids must not be empty")
	}

	settled, err := s.commissionRepo.MarkAsPaid(commissionIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to mark commissions paid: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"requested": len(commissionIDs),
		"settled":   settled,
	}).Info("Commissions marked paid")

	return settled, nil
}

// GetMonthlyReport aggregates commissions for one calendar month
func (s *CommissionService) GetMonthlyReport(year, month int) (*models.CommissionReport, error) {
	if month < 1 || month > 12 {
		return nil, models.NewDomainError(models.ErrInvalidInput, "month must be between 1 and 12")
	}

	return s.commissionRepo.GetReport(year, month)
}

// GetYearlyReport aggregates commissions for a whole year
func (s *CommissionService) GetYearlyReport(year int) (*models.CommissionReport, error) {
	return s.commissionRepo.GetYearlyReport(year)
}

// GetReportByDateRange aggregates commissions created between two instants
func (s *CommissionService) GetReportByDateRange(start, end time.Time) (*models.CommissionReport, error) {
	if !end.After(start) {
		return nil, models.NewDomainError(models.ErrInvalidInput, "end date must be after start date")
	}

	return s.commissionRepo.GetReportByDateRange(start, end)
}
