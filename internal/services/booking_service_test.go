package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/andesviajes/tours-backend/internal/config"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/models"
)

var bookingTestColumns = []string{
	"id", "booking_number", "user_id", "schedule_id", "participants_count",
	"price_per_person", "total_amount", "commission_rate", "commission_amount",
	"status", "payment_status", "payment_method", "payment_reference",
	"contact_name", "contact_phone", "contact_email", "emergency_contact", "emergency_phone",
	"cancellation_reason", "confirmed_at", "paid_at", "cancelled_at", "created_at", "updated_at",
}

func bookingRow(id string, participants int, status models.BookingStatus, payStatus models.PaymentStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingTestColumns).AddRow(
		id, "TB-20260901-ABC123", "user-1", "sched-1", participants,
		150.0, 300.0, 0.15, 45.0,
		status, payStatus, nil, nil,
		"Ana Quispe", nil, nil, nil, nil,
		nil, nil, nil, nil, now, now,
	)
}

func newBookingService(db *sqlx.DB) *BookingService {
	logger := testLogger()
	eventService := NewEventService(database.NewEventRepository(db), logger)
	inventory := newInventoryService(db)
	svc := NewBookingService(
		db,
		database.NewBookingRepository(db),
		database.NewTourRepository(db),
		inventory,
		NewPricingService(),
		NewPaymentService(database.NewPaymentRepository(db), config.PaymentConfig{Environment: "sandbox"}, logger),
		NewCommissionService(database.NewCommissionRepository(db), logger),
		eventService,
		logger,
	)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func testActor() models.Actor {
	return models.Actor{
		UserID:    "user-1",
		Role:      "tourist",
		IPAddress: "10.0.0.1",
		UserAgent: "tours-app/2.1",
	}
}

func TestConfirmBooking(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 2, models.BookingStatusPending, models.PaymentStatusPending))
		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusAvailable))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs("sched-1", 7, models.ScheduleStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`UPDATE bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
		mock.ExpectQuery(`INSERT INTO domain_events`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		confirmed, err := svc.ConfirmBooking(testActor(), "book-1")
		require.NoError(t, err)
		assert.True(t, confirmed)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Capacity Exhausted Between Create And Confirm", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 4, models.BookingStatusPending, models.PaymentStatusPending))
		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(8, models.ScheduleStatusAvailable))
		mock.ExpectRollback()

		confirmed, err := svc.ConfirmBooking(testActor(), "book-1")
		assert.False(t, confirmed)
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrInsufficientCapacity, domainErr.Kind)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Confirmed", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 2, models.BookingStatusConfirmed, models.PaymentStatusPending))
		mock.ExpectRollback()

		confirmed, err := svc.ConfirmBooking(testActor(), "book-1")
		assert.False(t, confirmed)
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrNotModifiable, domainErr.Kind)
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("Pending Booking Leaves Schedule Untouched", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		// No schedule lock or spot update: a pending booking holds no capacity
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 2, models.BookingStatusPending, models.PaymentStatusPending))
		mock.ExpectQuery(`UPDATE bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
		mock.ExpectQuery(`INSERT INTO domain_events`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		err := svc.CancelBooking(testActor(), "book-1", nil)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Confirmed Booking Releases Spots", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 2, models.BookingStatusConfirmed, models.PaymentStatusPending))
		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(7, models.ScheduleStatusAvailable))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs("sched-1", 5, models.ScheduleStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`UPDATE bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
		mock.ExpectQuery(`INSERT INTO domain_events`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		reason := "change of plans"
		err := svc.CancelBooking(testActor(), "book-1", &reason)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Completed Booking Not Cancellable", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 2, models.BookingStatusCompleted, models.PaymentStatusPaid))
		mock.ExpectRollback()

		err := svc.CancelBooking(testActor(), "book-1", nil)
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrNotCancellable, domainErr.Kind)
	})
}

func TestCreateBooking(t *testing.T) {
	tourColumns := []string{
		"id", "operator_id", "name", "description", "department", "category",
		"price_per_person", "currency", "min_participants", "max_participants",
		"is_active", "created_at", "updated_at",
	}

	tourRow := func() *sqlmock.Rows {
		now := time.Now()
		return sqlmock.NewRows(tourColumns).AddRow(
			"tour-1", "op-1", "Salar de Uyuni 3D", nil, "Potosi", "premium",
			150.0, "BOB", 1, 12,
			true, now, now,
		)
	}

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusAvailable))
		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusAvailable))
		mock.ExpectQuery(`FROM tours WHERE id = \$1`).
			WithArgs("tour-1").
			WillReturnRows(tourRow())
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE booking_number`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
		mock.ExpectQuery(`INSERT INTO domain_events`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		booking, err := svc.CreateBooking(testActor(), &models.CreateBookingRequest{
			ScheduleID:        "sched-1",
			ParticipantsCount: 2,
			ContactName:       "Ana Quispe",
		})
		require.NoError(t, err)

		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
		assert.Equal(t, 300.0, booking.TotalAmount)
		assert.Equal(t, 0.15, booking.CommissionRate)
		assert.Equal(t, 45.0, booking.CommissionAmount)
		assert.Contains(t, booking.BookingNumber, "TB-")

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Past Schedule", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)
		svc.inventory.now = func() time.Time { return time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC) }

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusAvailable))
		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusAvailable))

		_, err := svc.CreateBooking(testActor(), &models.CreateBookingRequest{
			ScheduleID:        "sched-1",
			ParticipantsCount: 2,
			ContactName:       "Ana Quispe",
		})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrPastDate, domainErr.Kind)
	})

	t.Run("Exceeds Tour Limit", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		bigScheduleRow := func() *sqlmock.Rows {
			return sqlmock.NewRows(scheduleTestColumns).AddRow(
				"sched-1", "tour-1", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), "08:00", "17:00",
				100, 0, models.ScheduleStatusAvailable, nil, nil, nil, nil, time.Now(), time.Now(),
			)
		}
		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(bigScheduleRow())
		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(bigScheduleRow())
		mock.ExpectQuery(`FROM tours WHERE id = \$1`).
			WithArgs("tour-1").
			WillReturnRows(tourRow())

		_, err := svc.CreateBooking(testActor(), &models.CreateBookingRequest{
			ScheduleID:        "sched-1",
			ParticipantsCount: 13,
			ContactName:       "Ana Quispe",
		})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrInvalidInput, domainErr.Kind)
	})
}

func TestProcessPayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 2, models.BookingStatusConfirmed, models.PaymentStatusPending))
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))
		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(7, models.ScheduleStatusAvailable))
		mock.ExpectQuery(`INSERT INTO commissions`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectQuery(`UPDATE bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
		mock.ExpectQuery(`INSERT INTO domain_events`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		payment, err := svc.ProcessPayment(testActor(), "book-1", &models.ProcessPaymentRequest{
			Method: "qr",
			Details: models.PaymentDetails{
				WalletPhone: "+59171234567",
			},
		})
		require.NoError(t, err)

		assert.Equal(t, models.TransactionStatusCompleted, payment.Status)
		assert.Equal(t, 300.0, payment.Amount)
		assert.Equal(t, 45.0, payment.CommissionAmount)
		assert.Equal(t, 255.0, payment.OperatorAmount)
		require.NotNil(t, payment.GatewayTransactionID)
		assert.Contains(t, *payment.GatewayTransactionID, "PAY-")

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Paid", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 2, models.BookingStatusPaid, models.PaymentStatusPaid))
		mock.ExpectRollback()

		_, err := svc.ProcessPayment(testActor(), "book-1", &models.ProcessPaymentRequest{
			Method:  "qr",
			Details: models.PaymentDetails{WalletPhone: "+59171234567"},
		})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrAlreadyPaid, domainErr.Kind)
	})

	t.Run("Unsupported Method", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := newBookingService(db)

		_, err := svc.ProcessPayment(testActor(), "book-1", &models.ProcessPaymentRequest{
			Method: "crypto",
		})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrUnsupportedPaymentMethod, domainErr.Kind)
	})

	t.Run("Pending Booking Rejected", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newBookingService(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 2, models.BookingStatusPending, models.PaymentStatusPending))
		mock.ExpectRollback()

		_, err := svc.ProcessPayment(testActor(), "book-1", &models.ProcessPaymentRequest{
			Method:  "qr",
			Details: models.PaymentDetails{WalletPhone: "+59171234567"},
		})
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrNotModifiable, domainErr.Kind)
	})
}
