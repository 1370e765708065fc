package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/andesviajes/tours-backend/internal/models"
)

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, booking_number, user_id, schedule_id, participants_count,
	   price_per_person, total_amount, commission_rate, commission_amount,
	   status, payment_status, payment_method, payment_reference,
	   contact_name, contact_phone, contact_email, emergency_contact, emergency_phone,
	   cancellation_reason, confirmed_at, paid_at, cancelled_at, created_at, updated_at`

// GenerateBookingNumber generates a unique booking number.
// Format: TB-YYYYMMDD-XXXXXX (6 char hex)
// Example: TB-20260830-A1B2C3
func (r *BookingRepository) GenerateBookingNumber() (string, error) {
	todayStr := time.Now().Format("20060102")

	for attempts := 0; attempts < 10; attempts++ {
		randomBytes := make([]byte, 3)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		randomStr := strings.ToUpper(hex.EncodeToString(randomBytes))

		newNumber := fmt.Sprintf("TB-%s-%s", todayStr, randomStr)

		var count int
		err := r.db.Get(&count, `SELECT COUNT(*) FROM bookings WHERE booking_number = $1`, newNumber)
		if err != nil {
			return "", fmt.Errorf("failed to check booking number uniqueness: %w", err)
		}

		if count == 0 {
			return newNumber, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique booking number after 10 attempts")
}

// Create creates a new booking
func (r *BookingRepository) Create(q sqlx.Ext, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, booking_number, user_id, schedule_id, participants_count,
			price_per_person, total_amount, commission_rate, commission_amount,
			status, payment_status,
			contact_name, contact_phone, contact_email, emergency_contact, emergency_phone
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING created_at, updated_at
	`

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	return q.QueryRowx(
		query,
		booking.ID, booking.BookingNumber, booking.UserID, booking.ScheduleID, booking.ParticipantsCount,
		booking.PricePerPerson, booking.TotalAmount, booking.CommissionRate, booking.CommissionAmount,
		booking.Status, booking.PaymentStatus,
		booking.ContactName, booking.ContactPhone, booking.ContactEmail,
		booking.EmergencyContact, booking.EmergencyPhone,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.scanBooking(r.db.QueryRow(query, bookingID))
}

// GetByIDForUpdate retrieves a booking by ID holding a row lock inside the
// caller's transaction
func (r *BookingRepository) GetByIDForUpdate(q sqlx.Ext, bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return r.scanBooking(q.QueryRowx(query, bookingID))
}

// GetByNumber retrieves a booking by its external booking number
func (r *BookingRepository) GetByNumber(bookingNumber string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_number = $1`
	return r.scanBooking(r.db.QueryRow(query, bookingNumber))
}

// GetByUserID retrieves all bookings for a user
func (r *BookingRepository) GetByUserID(userID string) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// GetByScheduleID retrieves all non-cancelled bookings for a schedule
func (r *BookingRepository) GetByScheduleID(scheduleID string) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE schedule_id = $1
		  AND status != 'cancelled'
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// Update writes the mutable lifecycle fields of a booking
func (r *BookingRepository) Update(q sqlx.Ext, booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET schedule_id = $2, participants_count = $3,
			price_per_person = $4, total_amount = $5,
			commission_rate = $6, commission_amount = $7,
			status = $8, payment_status = $9,
			payment_method = $10, payment_reference = $11,
			contact_name = $12, contact_phone = $13, contact_email = $14,
			emergency_contact = $15, emergency_phone = $16,
			cancellation_reason = $17, confirmed_at = $18, paid_at = $19, cancelled_at = $20,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	return q.QueryRowx(
		query,
		booking.ID, booking.ScheduleID, booking.ParticipantsCount,
		booking.PricePerPerson, booking.TotalAmount,
		booking.CommissionRate, booking.CommissionAmount,
		booking.Status, booking.PaymentStatus,
		booking.PaymentMethod, booking.PaymentReference,
		booking.ContactName, booking.ContactPhone, booking.ContactEmail,
		booking.EmergencyContact, booking.EmergencyPhone,
		booking.CancellationReason, booking.ConfirmedAt, booking.PaidAt, booking.CancelledAt,
	).Scan(&booking.UpdatedAt)
}

// CancelActiveBySchedule cancels all pending and confirmed bookings of a
// schedule, used when the schedule itself is cancelled
func (r *BookingRepository) CancelActiveBySchedule(q sqlx.Ext, scheduleID string, reason *string) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled',
			cancellation_reason = COALESCE($2, cancellation_reason),
			cancelled_at = NOW(),
			updated_at = NOW()
		WHERE schedule_id = $1
		  AND status IN ('pending', 'confirmed')
	`

	result, err := q.Exec(query, scheduleID, reason)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// CompleteActiveBySchedule marks confirmed and paid bookings of a schedule
// completed, used when the schedule is marked completed post-event
func (r *BookingRepository) CompleteActiveBySchedule(q sqlx.Ext, scheduleID string) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', updated_at = NOW()
		WHERE schedule_id = $1
		  AND status IN ('confirmed', 'paid')
	`

	result, err := q.Exec(query, scheduleID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *BookingRepository) scanBooking(row scanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var paymentMethod sql.NullString
	var paymentReference sql.NullString
	var contactPhone sql.NullString
	var contactEmail sql.NullString
	var emergencyContact sql.NullString
	var emergencyPhone sql.NullString
	var cancellationReason sql.NullString
	var confirmedAt sql.NullTime
	var paidAt sql.NullTime
	var cancelledAt sql.NullTime

	err := row.Scan(
		&booking.ID, &booking.BookingNumber, &booking.UserID, &booking.ScheduleID, &booking.ParticipantsCount,
		&booking.PricePerPerson, &booking.TotalAmount, &booking.CommissionRate, &booking.CommissionAmount,
		&booking.Status, &booking.PaymentStatus, &paymentMethod, &paymentReference,
		&booking.ContactName, &contactPhone, &contactEmail, &emergencyContact, &emergencyPhone,
		&cancellationReason, &confirmedAt, &paidAt, &cancelledAt, &booking.CreatedAt, &booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paymentMethod.Valid {
		booking.PaymentMethod = &paymentMethod.String
	}
	if paymentReference.Valid {
		booking.PaymentReference = &paymentReference.String
	}
	if contactPhone.Valid {
		booking.ContactPhone = &contactPhone.String
	}
	if contactEmail.Valid {
		booking.ContactEmail = &contactEmail.String
	}
	if emergencyContact.Valid {
		booking.EmergencyContact = &emergencyContact.String
	}
	if emergencyPhone.Valid {
		booking.EmergencyPhone = &emergencyPhone.String
	}
	if cancellationReason.Valid {
		booking.CancellationReason = &cancellationReason.String
	}
	if confirmedAt.Valid {
		booking.ConfirmedAt = &confirmedAt.Time
	}
	if paidAt.Valid {
		booking.PaidAt = &paidAt.Time
	}
	if cancelledAt.Valid {
		booking.CancelledAt = &cancelledAt.Time
	}

	return booking, nil
}

func (r *BookingRepository) scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	bookings := []models.Booking{}

	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}

	return bookings, rows.Err()
}
