package services

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/models"
)

// BookingService orchestrates the booking lifecycle:
// pending -> confirmed -> paid -> completed, with cancel and refund exits.
// Capacity is only committed at confirmation; a pending booking holds no
// spots and can lose them to a faster customer.
type BookingService struct {
	db           *sqlx.DB
	bookingRepo  *database.BookingRepository
	tourRepo     *database.TourRepository
	inventory    *ScheduleInventoryService
	pricing      *PricingService
	payments     *PaymentService
	commissions  *CommissionService
	events       *EventService
	logger       *logrus.Logger
	now          func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	db *sqlx.DB,
	bookingRepo *database.BookingRepository,
	tourRepo *database.TourRepository,
	inventory *ScheduleInventoryService,
	pricing *PricingService,
	payments *PaymentService,
	commissions *CommissionService,
	events *EventService,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		db:          db,
		bookingRepo: bookingRepo,
		tourRepo:    tourRepo,
		inventory:   inventory,
		pricing:     pricing,
		payments:    payments,
		commissions: commissions,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateBooking validates availability, derives amounts, and persists a
// pending booking. Spots are NOT reserved here; the hold is optimistic
// until ConfirmBooking commits capacity.
func (s *BookingService) CreateBooking(actor models.Actor, req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewDomainError(models.ErrInvalidInput, "%s", err.Error())
	}

	schedule, err := s.inventory.GetSchedule(req.ScheduleID)
	if err != nil {
		return nil, err
	}

	if err := s.inventory.ValidateAvailability(schedule.ID, req.ParticipantsCount, nil); err != nil {
		return nil, err
	}

	tour, err := s.tourRepo.GetByID(schedule.TourID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tour: %w", err)
	}

	if tour.MaxParticipants > 0 && req.ParticipantsCount > tour.MaxParticipants {
		return nil, models.NewDomainError(models.ErrInvalidInput,
			"tour allows at most %d participants per booking", tour.MaxParticipants)
	}

	amounts := s.pricing.CalculateAmounts(schedule.EffectivePricePerPerson(tour), req.ParticipantsCount, tour.Category)

	bookingNumber, err := s.bookingRepo.GenerateBookingNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking number: %w", err)
	}

	booking := &models.Booking{
		BookingNumber:     bookingNumber,
		UserID:            actor.UserID,
		ScheduleID:        schedule.ID,
		ParticipantsCount: req.ParticipantsCount,
		PricePerPerson:    schedule.EffectivePricePerPerson(tour),
		TotalAmount:       amounts.TotalAmount,
		CommissionRate:    amounts.CommissionRate,
		CommissionAmount:  amounts.CommissionAmount,
		Status:            models.BookingStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
		ContactName:       req.ContactName,
		ContactPhone:      req.ContactPhone,
		ContactEmail:      req.ContactEmail,
		EmergencyContact:  req.EmergencyContact,
		EmergencyPhone:    req.EmergencyPhone,
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.bookingRepo.Create(tx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	event := &models.DomainEvent{
		EventType:     models.EventBookingCreated,
		BookingID:     &booking.ID,
		BookingNumber: &booking.BookingNumber,
		ScheduleID:    &booking.ScheduleID,
		Amount:        &booking.TotalAmount,
	}
	if err := s.events.Publish(tx, event, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
		"schedule_id":    booking.ScheduleID,
		"participants":   booking.ParticipantsCount,
		"total_amount":   booking.TotalAmount,
	}).Info("Booking created")

	return booking, nil
}

// GetBooking retrieves a booking by ID
func (s *BookingService) GetBooking(bookingID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, models.NewDomainError(models.ErrNotFound, "booking not found")
	}
	return booking, nil
}

// GetBookingByNumber retrieves a booking by its external reference
func (s *BookingService) GetBookingByNumber(bookingNumber string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByNumber(bookingNumber)
	if err != nil {
		return nil, models.NewDomainError(models.ErrNotFound, "booking not found")
	}
	return booking, nil
}

// ListUserBookings retrieves all bookings of a user, newest first
func (s *BookingService) ListUserBookings(userID string) ([]models.Booking, error) {
	return s.bookingRepo.GetByUserID(userID)
}

// UpdateBooking modifies a pending or confirmed booking. Changes to the
// participant count or target schedule re-validate availability (discounting
// the booking's own held spots) and recompute amounts; a confirmed booking's
// reservation is moved atomically.
func (s *BookingService) UpdateBooking(actor models.Actor, bookingID string, req *models.UpdateBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewDomainError(models.ErrInvalidInput, "%s", err.Error())
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		if isSerializationFailure(err) {
			return nil, models.NewDomainError(models.ErrConcurrencyConflict, "booking is busy, retry the request")
		}
		return nil, models.NewDomainError(models.ErrNotFound, "booking not found")
	}

	if booking.IsTerminal() {
		return nil, models.NewDomainError(models.ErrNotModifiable, "booking is %s and can no longer be changed", booking.Status)
	}

	currentSchedule, err := s.inventory.GetSchedule(booking.ScheduleID)
	if err != nil {
		return nil, err
	}

	if !booking.CanBeModified(currentSchedule.StartDateTime(), s.now()) {
		return nil, models.NewDomainError(models.ErrNotModifiable,
			"bookings can only be changed up to %s before the tour starts", models.ModificationWindow)
	}

	targetScheduleID := booking.ScheduleID
	if req.ScheduleID != nil {
		targetScheduleID = *req.ScheduleID
	}
	targetCount := booking.ParticipantsCount
	if req.ParticipantsCount != nil {
		targetCount = *req.ParticipantsCount
	}

	capacityChanged := targetScheduleID != booking.ScheduleID || targetCount != booking.ParticipantsCount

	if capacityChanged {
		if err := s.inventory.ValidateAvailability(targetScheduleID, targetCount, &booking.ID); err != nil {
			return nil, err
		}

		// A confirmed booking holds spots; move them under lock
		if booking.HasReservedSpots() {
			if _, err := s.inventory.ReleaseSpots(tx, booking.ScheduleID, booking.ParticipantsCount); err != nil {
				return nil, err
			}
			if _, err := s.inventory.ReserveSpots(tx, targetScheduleID, targetCount); err != nil {
				return nil, err
			}
		}

		targetSchedule, err := s.inventory.GetSchedule(targetScheduleID)
		if err != nil {
			return nil, err
		}
		tour, err := s.tourRepo.GetByID(targetSchedule.TourID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tour: %w", err)
		}

		amounts := s.pricing.CalculateAmounts(targetSchedule.EffectivePricePerPerson(tour), targetCount, tour.Category)

		booking.ScheduleID = targetScheduleID
		booking.ParticipantsCount = targetCount
		booking.PricePerPerson = targetSchedule.EffectivePricePerPerson(tour)
		booking.TotalAmount = amounts.TotalAmount
		booking.CommissionRate = amounts.CommissionRate
		booking.CommissionAmount = amounts.CommissionAmount
	}

	if req.ContactName != nil {
		booking.ContactName = *req.ContactName
	}
	if req.ContactPhone != nil {
		booking.ContactPhone = req.ContactPhone
	}
	if req.ContactEmail != nil {
		booking.ContactEmail = req.ContactEmail
	}
	if req.EmergencyContact != nil {
		booking.EmergencyContact = req.EmergencyContact
	}
	if req.EmergencyPhone != nil {
		booking.EmergencyPhone = req.EmergencyPhone
	}

	if err := s.bookingRepo.Update(tx, booking); err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"schedule_id":  booking.ScheduleID,
		"participants": booking.ParticipantsCount,
	}).Info("Booking updated")

	return booking, nil
}

// ConfirmBooking commits the booking's spots on its schedule. Returns false
// without mutating the booking when capacity ran out between creation and
// confirmation; the caller surfaces the conflict to the user.
func (s *BookingService) ConfirmBooking(actor models.Actor, bookingID string) (bool, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		if isSerializationFailure(err) {
			return false, models.NewDomainError(models.ErrConcurrencyConflict, "booking is busy, retry the request")
		}
		return false, models.NewDomainError(models.ErrNotFound, "booking not found")
	}

	if !booking.CanBeConfirmed() {
		return false, models.NewDomainError(models.ErrNotModifiable, "only pending bookings can be confirmed, booking is %s", booking.Status)
	}

	if _, err := s.inventory.ReserveSpots(tx, booking.ScheduleID, booking.ParticipantsCount); err != nil {
		// The pending booking stays untouched; the tx rollback discards the lock
		return false, err
	}

	confirmedAt := s.now()
	booking.Status = models.BookingStatusConfirmed
	booking.ConfirmedAt = &confirmedAt

	if err := s.bookingRepo.Update(tx, booking); err != nil {
		return false, fmt.Errorf("failed to confirm booking: %w", err)
	}

	event := &models.DomainEvent{
		EventType:     models.EventBookingConfirmed,
		BookingID:     &booking.ID,
		BookingNumber: &booking.BookingNumber,
		ScheduleID:    &booking.ScheduleID,
	}
	if err := s.events.Publish(tx, event, actor); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
		"participants":   booking.ParticipantsCount,
	}).Info("Booking confirmed")

	return true, nil
}

// CancelBooking cancels a pending, confirmed, or paid booking and releases
// any spots it held. A paid booking keeps its payment until refunded.
func (s *BookingService) CancelBooking(actor models.Actor, bookingID string, reason *string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		if isSerializationFailure(err) {
			return models.NewDomainError(models.ErrConcurrencyConflict, "booking is busy, retry the request")
		}
		return models.NewDomainError(models.ErrNotFound, "booking not found")
	}

	if !booking.CanBeCancelled() {
		return models.NewDomainError(models.ErrNotCancellable, "booking is %s and cannot be cancelled", booking.Status)
	}

	if booking.HasReservedSpots() {
		if _, err := s.inventory.ReleaseSpots(tx, booking.ScheduleID, booking.ParticipantsCount); err != nil {
			return err
		}
	}

	cancelledAt := s.now()
	booking.Status = models.BookingStatusCancelled
	booking.CancelledAt = &cancelledAt
	booking.CancellationReason = reason

	if err := s.bookingRepo.Update(tx, booking); err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	event := &models.DomainEvent{
		EventType:     models.EventBookingCancelled,
		BookingID:     &booking.ID,
		BookingNumber: &booking.BookingNumber,
		ScheduleID:    &booking.ScheduleID,
		Reason:        reason,
	}
	if err := s.events.Publish(tx, event, actor); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
	}).Info("Booking cancelled")

	return nil
}

// ProcessPayment charges a confirmed booking through the gateway stub and
// records the commission in the same transaction
func (s *BookingService) ProcessPayment(actor models.Actor, bookingID string, req *models.ProcessPaymentRequest) (*models.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewDomainError(models.ErrInvalidInput, "%s", err.Error())
	}

	method := models.PaymentMethod(req.Method)
	if !method.IsValid() {
		return nil, models.NewDomainError(models.ErrUnsupportedPaymentMethod, "payment method %q is not supported", req.Method)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		if isSerializationFailure(err) {
			return nil, models.NewDomainError(models.ErrConcurrencyConflict, "booking is busy, retry the request")
		}
		return nil, models.NewDomainError(models.ErrNotFound, "booking not found")
	}

	if booking.IsPaid() {
		return nil, models.NewDomainError(models.ErrAlreadyPaid, "booking %s is already paid", booking.BookingNumber)
	}

	if booking.Status != models.BookingStatusConfirmed {
		return nil, models.NewDomainError(models.ErrNotModifiable, "booking must be confirmed before payment, booking is %s", booking.Status)
	}

	payment, err := s.payments.Charge(tx, booking, method, req.Details)
	if err != nil {
		return nil, err
	}

	schedule, err := s.inventory.GetSchedule(booking.ScheduleID)
	if err != nil {
		return nil, err
	}

	if _, err := s.commissions.RecordCommission(tx, booking, schedule.TourID); err != nil {
		return nil, err
	}

	paidAt := s.now()
	methodStr := string(method)
	booking.Status = models.BookingStatusPaid
	booking.PaymentStatus = models.PaymentStatusPaid
	booking.PaymentMethod = &methodStr
	booking.PaymentReference = payment.GatewayTransactionID
	booking.PaidAt = &paidAt

	if err := s.bookingRepo.Update(tx, booking); err != nil {
		return nil, fmt.Errorf("failed to mark booking paid: %w", err)
	}

	event := &models.DomainEvent{
		EventType:     models.EventPaymentCompleted,
		BookingID:     &booking.ID,
		BookingNumber: &booking.BookingNumber,
		PaymentID:     &payment.ID,
		Amount:        &payment.Amount,
	}
	if err := s.events.Publish(tx, event, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
		"payment_id":     payment.ID,
		"amount":         payment.Amount,
	}).Info("Payment processed")

	return payment, nil
}

// RefundPayment reverses a completed payment and flips its booking to
// refunded. The booking's held spots, if any, are released.
func (s *BookingService) RefundPayment(actor models.Actor, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}

	if !payment.CanBeRefunded() {
		return nil, models.NewDomainError(models.ErrNotRefundable, "payment is %s and cannot be refunded", payment.Status)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, payment.BookingID)
	if err != nil {
		if isSerializationFailure(err) {
			return nil, models.NewDomainError(models.ErrConcurrencyConflict, "booking is busy, retry the request")
		}
		return nil, models.NewDomainError(models.ErrNotFound, "booking not found")
	}

	if err := s.payments.Refund(tx, payment); err != nil {
		return nil, err
	}

	if booking.HasReservedSpots() {
		if _, err := s.inventory.ReleaseSpots(tx, booking.ScheduleID, booking.ParticipantsCount); err != nil {
			return nil, err
		}
	}

	booking.Status = models.BookingStatusRefunded
	booking.PaymentStatus = models.PaymentStatusRefunded

	if err := s.bookingRepo.Update(tx, booking); err != nil {
		return nil, fmt.Errorf("failed to mark booking refunded: %w", err)
	}

	event := &models.DomainEvent{
		EventType:     models.EventPaymentRefunded,
		BookingID:     &booking.ID,
		BookingNumber: &booking.BookingNumber,
		PaymentID:     &payment.ID,
		Amount:        &payment.Amount,
	}
	if err := s.events.Publish(tx, event, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": payment.ID,
		"amount":     payment.Amount,
	}).Info("Payment refunded")

	return payment, nil
}

// MarkNoShow flags a confirmed or paid booking whose participants did not
// show up. Terminal; spots are not released since the tour already ran.
func (s *BookingService) MarkNoShow(actor models.Actor, bookingID string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		if isSerializationFailure(err) {
			return models.NewDomainError(models.ErrConcurrencyConflict, "booking is busy, retry the request")
		}
		return models.NewDomainError(models.ErrNotFound, "booking not found")
	}

	if booking.Status != models.BookingStatusConfirmed && booking.Status != models.BookingStatusPaid {
		return models.NewDomainError(models.ErrNotModifiable, "only confirmed or paid bookings can be marked no-show, booking is %s", booking.Status)
	}

	booking.Status = models.BookingStatusNoShow

	if err := s.bookingRepo.Update(tx, booking); err != nil {
		return fmt.Errorf("failed to mark booking no-show: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
	}).Info("Booking marked no-show")

	return nil
}

// ValidateAvailability checks a schedule without creating anything
func (s *BookingService) ValidateAvailability(scheduleID string, participants int, excludeBookingID *string) error {
	return s.inventory.ValidateAvailability(scheduleID, participants, excludeBookingID)
}
