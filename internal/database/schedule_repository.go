package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/andesviajes/tours-backend/internal/models"
)

// ScheduleRepository handles database operations for the tour_schedules table
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, tour_id, date, start_time, end_time,
	   available_spots, booked_spots, status, price_override,
	   guide_name, weather_note, notes, created_at, updated_at`

// Create creates a new tour schedule
func (r *ScheduleRepository) Create(schedule *models.TourSchedule) error {
	query := `
		INSERT INTO tour_schedules (
			id, tour_id, date, start_time, end_time,
			available_spots, booked_spots, status, price_override, guide_name
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING created_at, updated_at
	`

	if schedule.ID == "" {
		schedule.ID = uuid.New().String()
	}

	return r.db.QueryRow(
		query,
		schedule.ID, schedule.TourID, schedule.Date, schedule.StartTime, schedule.EndTime,
		schedule.AvailableSpots, schedule.BookedSpots, schedule.Status,
		schedule.PriceOverride, schedule.GuideName,
	).Scan(&schedule.CreatedAt, &schedule.UpdatedAt)
}

// GetByID retrieves a schedule by ID
func (r *ScheduleRepository) GetByID(scheduleID string) (*models.TourSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM tour_schedules WHERE id = $1`
	return r.scanSchedule(r.db.QueryRow(query, scheduleID))
}

// GetByIDForUpdate retrieves a schedule by ID holding a row lock for the
// duration of the caller's transaction. Every reserve/release goes through
// this lock so concurrent confirmations serialize per schedule.
func (r *ScheduleRepository) GetByIDForUpdate(q sqlx.Ext, scheduleID string) (*models.TourSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM tour_schedules WHERE id = $1 FOR UPDATE`
	return r.scanSchedule(q.QueryRowx(query, scheduleID))
}

// GetByTourID retrieves all schedules for a tour
func (r *ScheduleRepository) GetByTourID(tourID string) ([]models.TourSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM tour_schedules
		WHERE tour_id = $1
		ORDER BY date, start_time
	`

	rows, err := r.db.Query(query, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSchedules(rows)
}

// GetByDateRange retrieves bookable schedules within a date range
func (r *ScheduleRepository) GetByDateRange(start, end time.Time) ([]models.TourSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM tour_schedules
		WHERE date >= $1 AND date <= $2
		  AND status IN ('available', 'full')
		ORDER BY date, start_time
	`

	rows, err := r.db.Query(query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSchedules(rows)
}

// ListFinishedOpen retrieves schedules whose date has passed but which are
// still open for booking, candidates for the close-out sweep
func (r *ScheduleRepository) ListFinishedOpen(before time.Time) ([]models.TourSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM tour_schedules
		WHERE date < $1
		  AND status IN ('available', 'full')
		ORDER BY date
	`

	rows, err := r.db.Query(query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSchedules(rows)
}

// UpdateSpots writes the new occupancy counter and derived status
func (r *ScheduleRepository) UpdateSpots(q sqlx.Ext, scheduleID string, bookedSpots int, status models.ScheduleStatus) error {
	result, err := q.Exec(`
		UPDATE tour_schedules
		SET booked_spots = $2, status = $3, updated_at = NOW()
		WHERE id = $1`,
		scheduleID, bookedSpots, status,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("schedule not found")
	}

	return nil
}

// UpdateStatus updates the schedule status
func (r *ScheduleRepository) UpdateStatus(q sqlx.Ext, scheduleID string, status models.ScheduleStatus) error {
	result, err := q.Exec(`
		UPDATE tour_schedules
		SET status = $2, updated_at = NOW()
		WHERE id = $1`,
		scheduleID, status,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("schedule not found")
	}

	return nil
}

// Cancel marks the schedule cancelled, appending the reason to its notes
func (r *ScheduleRepository) Cancel(q sqlx.Ext, scheduleID string, reason *string) error {
	query := `
		UPDATE tour_schedules
		SET status = 'cancelled',
			notes = CASE
				WHEN $2::text IS NULL THEN notes
				WHEN notes IS NULL THEN $2::text
				ELSE notes || E'\n' || $2::text
			END,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := q.Exec(query, scheduleID, reason)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("schedule not found")
	}

	return nil
}

func (r *ScheduleRepository) scanSchedule(row scanner) (*models.TourSchedule, error) {
	schedule := &models.TourSchedule{}
	var priceOverride sql.NullFloat64
	var guideName sql.NullString
	var weatherNote sql.NullString
	var notes sql.NullString

	err := row.Scan(
		&schedule.ID, &schedule.TourID, &schedule.Date, &schedule.StartTime, &schedule.EndTime,
		&schedule.AvailableSpots, &schedule.BookedSpots, &schedule.Status, &priceOverride,
		&guideName, &weatherNote, &notes, &schedule.CreatedAt, &schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if priceOverride.Valid {
		schedule.PriceOverride = &priceOverride.Float64
	}
	if guideName.Valid {
		schedule.GuideName = &guideName.String
	}
	if weatherNote.Valid {
		schedule.WeatherNote = &weatherNote.String
	}
	if notes.Valid {
		schedule.Notes = &notes.String
	}

	return schedule, nil
}

func (r *ScheduleRepository) scanSchedules(rows *sql.Rows) ([]models.TourSchedule, error) {
	schedules := []models.TourSchedule{}

	for rows.Next() {
		schedule, err := r.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *schedule)
	}

	return schedules, rows.Err()
}
