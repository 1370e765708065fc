package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/middleware"
	"github.com/andesviajes/tours-backend/internal/models"
	"github.com/andesviajes/tours-backend/internal/services"
)

// TourHandler exposes the tour catalog over HTTP
type TourHandler struct {
	tourService *services.TourService
	logger      *logrus.Logger
}

// NewTourHandler creates a new tour handler
func NewTourHandler(tourService *services.TourService, logger *logrus.Logger) *TourHandler {
	return &TourHandler{
		tourService: tourService,
		logger:      logger,
	}
}

// CreateTour registers a new tour for the authenticated operator
// POST /api/v1/tours
func (h *TourHandler) CreateTour(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateTourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	tour, err := h.tourService.CreateTour(userCtx.UserID.String(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tour)
}

// GetTour retrieves a tour by ID
// GET /api/v1/tours/:id
func (h *TourHandler) GetTour(c *gin.Context) {
	tour, err := h.tourService.GetTour(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tour)
}

// ListTours retrieves active tours, optionally filtered by department
// GET /api/v1/tours?department=La+Paz
func (h *TourHandler) ListTours(c *gin.Context) {
	tours, err := h.tourService.ListTours(c.Query("department"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list tours")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to fetch tours"})
		return
	}

	c.JSON(http.StatusOK, tours)
}

// DeactivateTour removes a tour from the catalog
// DELETE /api/v1/tours/:id
func (h *TourHandler) DeactivateTour(c *gin.Context) {
	if err := h.tourService.DeactivateTour(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deactivated": true})
}
