package services

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/models"
	"github.com/andesviajes/tours-backend/internal/utils"
)

// EventService records domain events for downstream notification and audit
// consumers. Events are inserted in the same transaction as the state change
// they describe, so an event never exists without its mutation.
type EventService struct {
	eventRepo *database.EventRepository
	logger    *logrus.Logger
}

// NewEventService creates a new event service
func NewEventService(eventRepo *database.EventRepository, logger *logrus.Logger) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		logger:    logger,
	}
}

// Publish stamps the event with the acting principal and persists it inside
// the caller's transaction
func (s *EventService) Publish(q sqlx.Ext, event *models.DomainEvent, actor models.Actor) error {
	applyActor(event, actor)

	if err := s.eventRepo.Insert(q, event); err != nil {
		return fmt.Errorf("failed to record %s event: %w", event.EventType, err)
	}

	s.logger.WithFields(logrus.Fields{
		"event_type": event.EventType,
		"booking_id": stringOrEmpty(event.BookingID),
		"actor_id":   stringOrEmpty(event.ActorUserID),
	}).Debug("Domain event recorded")

	return nil
}

// GetBookingHistory retrieves the recorded events of a booking
func (s *EventService) GetBookingHistory(bookingID string) ([]models.DomainEvent, error) {
	return s.eventRepo.GetByBookingID(bookingID)
}

// applyActor copies the acting principal and its parsed device metadata
// onto the event
func applyActor(event *models.DomainEvent, actor models.Actor) {
	if actor.UserID != "" {
		event.ActorUserID = &actor.UserID
	}
	if actor.Role != "" {
		event.ActorRole = &actor.Role
	}
	if actor.IPAddress != "" {
		event.IPAddress = &actor.IPAddress
	}
	if actor.UserAgent != "" {
		device := utils.ParseUserAgent(actor.UserAgent)
		event.DeviceType = &device.DeviceType
		event.DeviceOS = &device.OS
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
