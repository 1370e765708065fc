package database

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/andesviajes/tours-backend/internal/models"
)

// EventRepository handles database operations for the domain_events table
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends a domain event inside the caller's transaction so the
// event commits or rolls back together with the state change it records
func (r *EventRepository) Insert(q sqlx.Ext, event *models.DomainEvent) error {
	query := `
		INSERT INTO domain_events (
			id, event_type, booking_id, booking_number, schedule_id, payment_id,
			amount, reason, actor_user_id, actor_role, ip_address, device_type, device_os
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING created_at
	`

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	return q.QueryRowx(
		query,
		event.ID, event.EventType, event.BookingID, event.BookingNumber,
		event.ScheduleID, event.PaymentID, event.Amount, event.Reason,
		event.ActorUserID, event.ActorRole, event.IPAddress,
		event.DeviceType, event.DeviceOS,
	).Scan(&event.CreatedAt)
}

// GetByBookingID retrieves all events recorded for a booking, oldest first
func (r *EventRepository) GetByBookingID(bookingID string) ([]models.DomainEvent, error) {
	query := `
		SELECT id, event_type, booking_id, booking_number, schedule_id, payment_id,
			   amount, reason, actor_user_id, actor_role, ip_address, device_type, device_os,
			   created_at
		FROM domain_events
		WHERE booking_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.DomainEvent{}
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	return events, rows.Err()
}

func (r *EventRepository) scanEvent(row scanner) (*models.DomainEvent, error) {
	event := &models.DomainEvent{}
	var bookingID sql.NullString
	var bookingNumber sql.NullString
	var scheduleID sql.NullString
	var paymentID sql.NullString
	var amount sql.NullFloat64
	var reason sql.NullString
	var actorUserID sql.NullString
	var actorRole sql.NullString
	var ipAddress sql.NullString
	var deviceType sql.NullString
	var deviceOS sql.NullString

	err := row.Scan(
		&event.ID, &event.EventType, &bookingID, &bookingNumber, &scheduleID, &paymentID,
		&amount, &reason, &actorUserID, &actorRole, &ipAddress, &deviceType, &deviceOS,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bookingID.Valid {
		event.BookingID = &bookingID.String
	}
	if bookingNumber.Valid {
		event.BookingNumber = &bookingNumber.String
	}
	if scheduleID.Valid {
		event.ScheduleID = &scheduleID.String
	}
	if paymentID.Valid {
		event.PaymentID = &paymentID.String
	}
	if amount.Valid {
		event.Amount = &amount.Float64
	}
	if reason.Valid {
		event.Reason = &reason.String
	}
	if actorUserID.Valid {
		event.ActorUserID = &actorUserID.String
	}
	if actorRole.Valid {
		event.ActorRole = &actorRole.String
	}
	if ipAddress.Valid {
		event.IPAddress = &ipAddress.String
	}
	if deviceType.Valid {
		event.DeviceType = &deviceType.String
	}
	if deviceOS.Valid {
		event.DeviceOS = &deviceOS.String
	}

	return event, nil
}
