package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/database"
	"github.com/andesviajes/tours-backend/internal/models"
)

// TourService handles the tour catalog managed by operators
type TourService struct {
	tourRepo *database.TourRepository
	logger   *logrus.Logger
}

// NewTourService creates a new tour service
func NewTourService(tourRepo *database.TourRepository, logger *logrus.Logger) *TourService {
	return &TourService{
		tourRepo: tourRepo,
		logger:   logger,
	}
}

// CreateTour registers a new tour for an operator
func (s *TourService) CreateTour(operatorID string, req *models.CreateTourRequest) (*models.Tour, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewDomainError(models.ErrInvalidInput, "%s", err.Error())
	}

	currency := req.Currency
	if currency == "" {
		currency = "BOB"
	}

	tour := &models.Tour{
		OperatorID:      operatorID,
		Name:            req.Name,
		Description:     req.Description,
		Department:      req.Department,
		Category:        models.TourCategory(req.Category),
		PricePerPerson:  req.PricePerPerson,
		Currency:        currency,
		MinParticipants: req.MinParticipants,
		MaxParticipants: req.MaxParticipants,
		IsActive:        true,
	}

	if err := s.tourRepo.Create(tour); err != nil {
		return nil, fmt.Errorf("failed to create tour: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tour_id":     tour.ID,
		"operator_id": operatorID,
		"category":    tour.Category,
		"department":  tour.Department,
	}).Info("Tour created")

	return tour, nil
}

// GetTour retrieves a tour by ID
func (s *TourService) GetTour(tourID string) (*models.Tour, error) {
	tour, err := s.tourRepo.GetByID(tourID)
	if err != nil {
		return nil, models.NewDomainError(models.ErrNotFound, "tour not found")
	}
	return tour, nil
}

// ListTours retrieves active tours, optionally filtered by department
func (s *TourService) ListTours(department string) ([]models.Tour, error) {
	if department != "" {
		return s.tourRepo.ListByDepartment(department)
	}
	return s.tourRepo.ListActive()
}

// DeactivateTour removes a tour from the catalog without deleting it
func (s *TourService) DeactivateTour(tourID string) error {
	if err := s.tourRepo.Deactivate(tourID); err != nil {
		return models.NewDomainError(models.ErrNotFound, "tour not found")
	}

	s.logger.WithField("tour_id", tourID).Info("Tour deactivated")
	return nil
}
