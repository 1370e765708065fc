package services

import (
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/models"
)

var scheduleTestColumns = []string{
	"id", "tour_id", "date", "start_time", "end_time",
	"available_spots", "booked_spots", "status", "price_override",
	"guide_name", "weather_note", "notes", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newInventoryService(db *sqlx.DB) *ScheduleInventoryService {
	logger := testLogger()
	svc := NewScheduleInventoryService(
		db,
		database.NewScheduleRepository(db),
		database.NewBookingRepository(db),
		database.NewTourRepository(db),
		NewEventService(database.NewEventRepository(db), logger),
		logger,
	)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func scheduleRow(booked int, status models.ScheduleStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(scheduleTestColumns).AddRow(
		"sched-1", "tour-1", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), "08:00", "17:00",
		10, booked, status, nil,
		nil, nil, nil, now, now,
	)
}

func TestReserveSpots(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusAvailable))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs("sched-1", 8, models.ScheduleStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))

		schedule, err := svc.ReserveSpots(db, "sched-1", 3)
		require.NoError(t, err)
		assert.Equal(t, 8, schedule.BookedSpots)
		assert.Equal(t, models.ScheduleStatusAvailable, schedule.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Fills To Capacity", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusAvailable))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs("sched-1", 10, models.ScheduleStatusFull).
			WillReturnResult(sqlmock.NewResult(0, 1))

		schedule, err := svc.ReserveSpots(db, "sched-1", 5)
		require.NoError(t, err)
		assert.Equal(t, models.ScheduleStatusFull, schedule.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insufficient Capacity", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(8, models.ScheduleStatusAvailable))

		_, err := svc.ReserveSpots(db, "sched-1", 3)
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrInsufficientCapacity, domainErr.Kind)
		assert.Equal(t, "only 2 spots remain", domainErr.Message)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancelled Schedule", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusCancelled))

		_, err := svc.ReserveSpots(db, "sched-1", 1)
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrScheduleUnavailable, domainErr.Kind)
	})

	t.Run("Past Schedule", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)
		svc.now = func() time.Time { return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC) }

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusAvailable))

		_, err := svc.ReserveSpots(db, "sched-1", 1)
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrPastDate, domainErr.Kind)
	})
}

func TestReleaseSpots(t *testing.T) {
	t.Run("Reopens Full Schedule", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(10, models.ScheduleStatusFull))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs("sched-1", 7, models.ScheduleStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))

		schedule, err := svc.ReleaseSpots(db, "sched-1", 3)
		require.NoError(t, err)
		assert.Equal(t, 7, schedule.BookedSpots)
		assert.Equal(t, models.ScheduleStatusAvailable, schedule.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Floors At Zero", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1 FOR UPDATE`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(2, models.ScheduleStatusAvailable))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs("sched-1", 0, models.ScheduleStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))

		schedule, err := svc.ReleaseSpots(db, "sched-1", 5)
		require.NoError(t, err)
		assert.Equal(t, 0, schedule.BookedSpots)
	})
}

func TestValidateAvailability(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(5, models.ScheduleStatusAvailable))

		assert.NoError(t, svc.ValidateAvailability("sched-1", 5, nil))
	})

	t.Run("Excludes Own Reservation", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)

		// Schedule is full, but 4 of the booked spots belong to the booking
		// being modified
		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(10, models.ScheduleStatusFull))
		mock.ExpectQuery(`FROM bookings WHERE id = \$1`).
			WithArgs("book-1").
			WillReturnRows(bookingRow("book-1", 4, models.BookingStatusConfirmed, models.PaymentStatusPending))

		excludeID := "book-1"
		assert.NoError(t, svc.ValidateAvailability("sched-1", 4, &excludeID))
	})

	t.Run("Capacity Error Reports Remaining", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := newInventoryService(db)

		mock.ExpectQuery(`FROM tour_schedules WHERE id = \$1`).
			WithArgs("sched-1").
			WillReturnRows(scheduleRow(7, models.ScheduleStatusAvailable))

		err := svc.ValidateAvailability("sched-1", 5, nil)
		require.Error(t, err)

		domainErr, ok := models.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, models.ErrInsufficientCapacity, domainErr.Kind)
		assert.Equal(t, "only 3 spots remain", domainErr.Message)
	})
}
