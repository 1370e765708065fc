package services

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/models"
)

// ScheduleInventoryService owns schedule capacity. Every spot reservation or
// release runs as a locked read-modify-write on the schedule row, so two
// concurrent confirmations can never jointly overbook.
type ScheduleInventoryService struct {
	db           *sqlx.DB
	scheduleRepo *database.ScheduleRepository
	bookingRepo  *database.BookingRepository
	tourRepo     *database.TourRepository
	events       *EventService
	logger       *logrus.Logger
	now          func() time.Time
}

// NewScheduleInventoryService creates a new inventory service
func NewScheduleInventoryService(
	db *sqlx.DB,
	scheduleRepo *database.ScheduleRepository,
	bookingRepo *database.BookingRepository,
	tourRepo *database.TourRepository,
	events *EventService,
	logger *logrus.Logger,
) *ScheduleInventoryService {
	return &ScheduleInventoryService{
		db:           db,
		scheduleRepo: scheduleRepo,
		bookingRepo:  bookingRepo,
		tourRepo:     tourRepo,
		events:       events,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateSchedule creates a new bookable occurrence of a tour
func (s *ScheduleInventoryService) CreateSchedule(tourID string, req *models.CreateScheduleRequest) (*models.TourSchedule, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewDomainError(models.ErrInvalidInput, "%s", err.Error())
	}

	tour, err := s.tourRepo.GetByID(tourID)
	if err != nil {
		return nil, models.NewDomainError(models.ErrNotFound, "tour not found")
	}
	if !tour.IsActive {
		return nil, models.NewDomainError(models.ErrScheduleUnavailable, "tour is not active")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, models.NewDomainError(models.ErrInvalidInput, "date must be in YYYY-MM-DD format")
	}

	schedule := &models.TourSchedule{
		TourID:         tourID,
		Date:           date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		AvailableSpots: req.AvailableSpots,
		BookedSpots:    0,
		Status:         models.ScheduleStatusAvailable,
		PriceOverride:  req.PriceOverride,
		GuideName:      req.GuideName,
	}

	if schedule.IsPast(s.now()) {
		return nil, models.NewDomainError(models.ErrPastDate, "schedule date is in the past")
	}

	if err := s.scheduleRepo.Create(schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id":     schedule.ID,
		"tour_id":         tourID,
		"date":            req.Date,
		"available_spots": req.AvailableSpots,
	}).Info("Schedule created")

	return schedule, nil
}

// GetSchedule retrieves a schedule by ID
func (s *ScheduleInventoryService) GetSchedule(scheduleID string) (*models.TourSchedule, error) {
	schedule, err := s.scheduleRepo.GetByID(scheduleID)
	if err != nil {
		return nil, models.NewDomainError(models.ErrNotFound, "schedule not found")
	}
	return schedule, nil
}

// ListByTour retrieves all schedules of a tour
func (s *ScheduleInventoryService) ListByTour(tourID string) ([]models.TourSchedule, error) {
	return s.scheduleRepo.GetByTourID(tourID)
}

// SearchByDateRange retrieves bookable schedules within a date range
func (s *ScheduleInventoryService) SearchByDateRange(start, end time.Time) ([]models.TourSchedule, error) {
	return s.scheduleRepo.GetByDateRange(start, end)
}

// ValidateAvailability checks that a schedule can absorb the requested
// participant count. excludeBookingID discounts a booking's own reserved
// spots when re-validating a modification.
func (s *ScheduleInventoryService) ValidateAvailability(scheduleID string, participants int, excludeBookingID *string) error {
	schedule, err := s.scheduleRepo.GetByID(scheduleID)
	if err != nil {
		return models.NewDomainError(models.ErrNotFound, "schedule not found")
	}

	return s.checkAvailability(schedule, participants, excludeBookingID)
}

func (s *ScheduleInventoryService) checkAvailability(schedule *models.TourSchedule, participants int, excludeBookingID *string) error {
	if schedule.IsPast(s.now()) {
		return models.NewDomainError(models.ErrPastDate, "schedule has already started")
	}

	if schedule.Status != models.ScheduleStatusAvailable && schedule.Status != models.ScheduleStatusFull {
		return models.NewDomainError(models.ErrScheduleUnavailable, "schedule is %s", schedule.Status)
	}

	remaining := schedule.RemainingSpots()

	if excludeBookingID != nil {
		booking, err := s.bookingRepo.GetByID(*excludeBookingID)
		if err == nil && booking.ScheduleID == schedule.ID && booking.HasReservedSpots() {
			remaining += booking.ParticipantsCount
		}
	}

	if schedule.Status == models.ScheduleStatusFull && remaining <= 0 {
		return models.NewDomainError(models.ErrScheduleUnavailable, "schedule is full")
	}

	if remaining < participants {
		return models.ErrInsufficientCapacityf(remaining)
	}

	return nil
}

// ReserveSpots commits participant spots on a schedule inside the caller's
// transaction. The row lock taken here serializes concurrent confirmations;
// callers past capacity fail deterministically instead of overbooking.
func (s *ScheduleInventoryService) ReserveSpots(q sqlx.Ext, scheduleID string, count int) (*models.TourSchedule, error) {
	schedule, err := s.scheduleRepo.GetByIDForUpdate(q, scheduleID)
	if err != nil {
		if isSerializationFailure(err) {
			return nil, models.NewDomainError(models.ErrConcurrencyConflict, "schedule is busy, retry the request")
		}
		return nil, fmt.Errorf("failed to lock schedule: %w", err)
	}

	if schedule.IsPast(s.now()) {
		return nil, models.NewDomainError(models.ErrPastDate, "schedule has already started")
	}

	if schedule.Status != models.ScheduleStatusAvailable {
		return nil, models.NewDomainError(models.ErrScheduleUnavailable, "schedule is %s", schedule.Status)
	}

	remaining := schedule.RemainingSpots()
	if remaining < count {
		return nil, models.ErrInsufficientCapacityf(remaining)
	}

	schedule.BookedSpots += count
	if schedule.RemainingSpots() == 0 {
		schedule.Status = models.ScheduleStatusFull
	}

	if err := s.scheduleRepo.UpdateSpots(q, schedule.ID, schedule.BookedSpots, schedule.Status); err != nil {
		return nil, fmt.Errorf("failed to reserve spots: %w", err)
	}

	return schedule, nil
}

// ReleaseSpots returns previously reserved spots to a schedule inside the
// caller's transaction. A full schedule with freed capacity reopens.
func (s *ScheduleInventoryService) ReleaseSpots(q sqlx.Ext, scheduleID string, count int) (*models.TourSchedule, error) {
	schedule, err := s.scheduleRepo.GetByIDForUpdate(q, scheduleID)
	if err != nil {
		if isSerializationFailure(err) {
			return nil, models.NewDomainError(models.ErrConcurrencyConflict, "schedule is busy, retry the request")
		}
		return nil, fmt.Errorf("failed to lock schedule: %w", err)
	}

	schedule.BookedSpots -= count
	if schedule.BookedSpots < 0 {
		schedule.BookedSpots = 0
	}
	if schedule.Status == models.ScheduleStatusFull && schedule.RemainingSpots() > 0 {
		schedule.Status = models.ScheduleStatusAvailable
	}

	if err := s.scheduleRepo.UpdateSpots(q, schedule.ID, schedule.BookedSpots, schedule.Status); err != nil {
		return nil, fmt.Errorf("failed to release spots: %w", err)
	}

	return schedule, nil
}

// CancelSchedule cancels a schedule and cascades the cancellation to all of
// its pending and confirmed bookings in one transaction
func (s *ScheduleInventoryService) CancelSchedule(scheduleID string, reason *string, actor models.Actor) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	schedule, err := s.scheduleRepo.GetByIDForUpdate(tx, scheduleID)
	if err != nil {
		if isSerializationFailure(err) {
			return models.NewDomainError(models.ErrConcurrencyConflict, "schedule is busy, retry the request")
		}
		return models.NewDomainError(models.ErrNotFound, "schedule not found")
	}

	if schedule.Status == models.ScheduleStatusCancelled || schedule.Status == models.ScheduleStatusCompleted {
		return models.NewDomainError(models.ErrScheduleUnavailable, "schedule is already %s", schedule.Status)
	}

	cancelled, err := s.bookingRepo.CancelActiveBySchedule(tx, scheduleID, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel schedule bookings: %w", err)
	}

	if err := s.scheduleRepo.Cancel(tx, scheduleID, reason); err != nil {
		return fmt.Errorf("failed to cancel schedule: %w", err)
	}

	event := &models.DomainEvent{
		EventType:  models.EventScheduleCancelled,
		ScheduleID: &scheduleID,
		Reason:     reason,
	}
	if err := s.events.Publish(tx, event, actor); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id":        scheduleID,
		"cancelled_bookings": cancelled,
	}).Info("Schedule cancelled")

	return nil
}

// MarkCompleted marks a past schedule completed and cascades to its
// confirmed and paid bookings
func (s *ScheduleInventoryService) MarkCompleted(scheduleID string, actor models.Actor) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	schedule, err := s.scheduleRepo.GetByIDForUpdate(tx, scheduleID)
	if err != nil {
		if isSerializationFailure(err) {
			return models.NewDomainError(models.ErrConcurrencyConflict, "schedule is busy, retry the request")
		}
		return models.NewDomainError(models.ErrNotFound, "schedule not found")
	}

	if schedule.Status == models.ScheduleStatusCancelled || schedule.Status == models.ScheduleStatusCompleted {
		return models.NewDomainError(models.ErrScheduleUnavailable, "schedule is already %s", schedule.Status)
	}

	completed, err := s.bookingRepo.CompleteActiveBySchedule(tx, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to complete schedule bookings: %w", err)
	}

	if err := s.scheduleRepo.UpdateStatus(tx, scheduleID, models.ScheduleStatusCompleted); err != nil {
		return fmt.Errorf("failed to complete schedule: %w", err)
	}

	event := &models.DomainEvent{
		EventType:  models.EventScheduleCompleted,
		ScheduleID: &scheduleID,
	}
	if err := s.events.Publish(tx, event, actor); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id":        scheduleID,
		"completed_bookings": completed,
	}).Info("Schedule marked completed")

	return nil
}

// CloseFinishedSchedules marks every schedule whose date has passed as
// completed, cascading to its bookings. Used by the nightly sweep; returns
// the number of schedules closed.
func (s *ScheduleInventoryService) CloseFinishedSchedules() (int, error) {
	today := s.now().Truncate(24 * time.Hour)

	schedules, err := s.scheduleRepo.ListFinishedOpen(today)
	if err != nil {
		return 0, fmt.Errorf("failed to list finished schedules: %w", err)
	}

	actor := models.Actor{Role: "system"}

	closed := 0
	for _, schedule := range schedules {
		if err := s.MarkCompleted(schedule.ID, actor); err != nil {
			s.logger.WithError(err).WithField("schedule_id", schedule.ID).Warn("Failed to close finished schedule")
			continue
		}
		closed++
	}

	return closed, nil
}

// isSerializationFailure classifies Postgres lock and serialization errors
// that are safe for the client to retry
func isSerializationFailure(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return true
		}
	}
	return false
}
