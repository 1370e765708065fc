package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/middleware"
	"github.com/andesviajes/tours-backend/internal/models"
	"github.com/andesviajes/tours-backend/internal/services"
)

// ScheduleHandler exposes schedule inventory over HTTP
type ScheduleHandler struct {
	inventoryService *services.ScheduleInventoryService
	logger           *logrus.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(inventoryService *services.ScheduleInventoryService, logger *logrus.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// CreateSchedule creates a bookable occurrence of a tour
// POST /api/v1/tours/:id/schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	schedule, err := h.inventoryService.CreateSchedule(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

// GetSchedule retrieves a schedule with its remaining capacity
// GET /api/v1/schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.inventoryService.GetSchedule(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedule":        schedule,
		"remaining_spots": schedule.RemainingSpots(),
	})
}

// ListTourSchedules retrieves all schedules of a tour
// GET /api/v1/tours/:id/schedules
func (h *ScheduleHandler) ListTourSchedules(c *gin.Context) {
	schedules, err := h.inventoryService.ListByTour(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list schedules")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to fetch schedules"})
		return
	}

	c.JSON(http.StatusOK, schedules)
}

// SearchSchedules retrieves bookable schedules within a date range
// GET /api/v1/schedules?from=2026-09-01&to=2026-09-30
func (h *ScheduleHandler) SearchSchedules(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "from must be in YYYY-MM-DD format"})
		return
	}

	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "to must be in YYYY-MM-DD format"})
		return
	}

	schedules, err := h.inventoryService.SearchByDateRange(from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to search schedules")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to search schedules"})
		return
	}

	c.JSON(http.StatusOK, schedules)
}

// CancelSchedule cancels a schedule and all of its active bookings
// POST /api/v1/schedules/:id/cancel
func (h *ScheduleHandler) CancelSchedule(c *gin.Context) {
	var req models.CancelScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	if err := h.inventoryService.CancelSchedule(c.Param("id"), req.Reason, middleware.ActorFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// CompleteSchedule marks a schedule completed after the tour ran
// POST /api/v1/schedules/:id/complete
func (h *ScheduleHandler) CompleteSchedule(c *gin.Context) {
	if err := h.inventoryService.MarkCompleted(c.Param("id"), middleware.ActorFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"completed": true})
}
