package database

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/andesviajes/tours-backend/internal/models"
)

// TourRepository handles database operations for the tours table
type TourRepository struct {
	db DB
}

// NewTourRepository creates a new TourRepository
func NewTourRepository(db DB) *TourRepository {
	return &TourRepository{db: db}
}

const tourColumns = `id, operator_id, name, description, department, category,
	   price_per_person, currency, min_participants, max_participants,
	   is_active, created_at, updated_at`

// Create creates a new tour
func (r *TourRepository) Create(tour *models.Tour) error {
	query := `
		INSERT INTO tours (
			id, operator_id, name, description, department, category,
			price_per_person, currency, min_participants, max_participants, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING created_at, updated_at
	`

	if tour.ID == "" {
		tour.ID = uuid.New().String()
	}

	return r.db.QueryRow(
		query,
		tour.ID, tour.OperatorID, tour.Name, tour.Description, tour.Department, tour.Category,
		tour.PricePerPerson, tour.Currency, tour.MinParticipants, tour.MaxParticipants, tour.IsActive,
	).Scan(&tour.CreatedAt, &tour.UpdatedAt)
}

// GetByID retrieves a tour by ID
func (r *TourRepository) GetByID(tourID string) (*models.Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours WHERE id = $1`
	return r.scanTour(r.db.QueryRow(query, tourID))
}

// GetByScheduleID retrieves the tour that owns a given schedule
func (r *TourRepository) GetByScheduleID(scheduleID string) (*models.Tour, error) {
	query := `
		SELECT t.id, t.operator_id, t.name, t.description, t.department, t.category,
			   t.price_per_person, t.currency, t.min_participants, t.max_participants,
			   t.is_active, t.created_at, t.updated_at
		FROM tours t
		JOIN tour_schedules s ON s.tour_id = t.id
		WHERE s.id = $1
	`
	return r.scanTour(r.db.QueryRow(query, scheduleID))
}

// ListActive retrieves all active tours
func (r *TourRepository) ListActive() ([]models.Tour, error) {
	query := `
		SELECT ` + tourColumns + `
		FROM tours
		WHERE is_active = TRUE
		ORDER BY name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanTours(rows)
}

// ListByDepartment retrieves active tours in a department
func (r *TourRepository) ListByDepartment(department string) ([]models.Tour, error) {
	query := `
		SELECT ` + tourColumns + `
		FROM tours
		WHERE is_active = TRUE AND department = $1
		ORDER BY name
	`

	rows, err := r.db.Query(query, department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanTours(rows)
}

// Deactivate marks a tour as inactive
func (r *TourRepository) Deactivate(tourID string) error {
	result, err := r.db.Exec(`UPDATE tours SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, tourID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *TourRepository) scanTour(row scanner) (*models.Tour, error) {
	tour := &models.Tour{}
	var description sql.NullString

	err := row.Scan(
		&tour.ID, &tour.OperatorID, &tour.Name, &description, &tour.Department, &tour.Category,
		&tour.PricePerPerson, &tour.Currency, &tour.MinParticipants, &tour.MaxParticipants,
		&tour.IsActive, &tour.CreatedAt, &tour.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		tour.Description = &description.String
	}

	return tour, nil
}

func (r *TourRepository) scanTours(rows *sql.Rows) ([]models.Tour, error) {
	tours := []models.Tour{}

	for rows.Next() {
		tour, err := r.scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, *tour)
	}

	return tours, rows.Err()
}
