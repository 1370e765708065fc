package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/middleware"
	"github.com/andesviajes/tours-backend/internal/models"
	"github.com/andesviajes/tours-backend/internal/services"
)

// BookingHandler exposes the booking lifecycle over HTTP
type BookingHandler struct {
	bookingService *services.BookingService
	eventService   *services.EventService
	rateLimits     *services.RateLimitService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *services.BookingService, eventService *services.EventService, rateLimits *services.RateLimitService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		eventService:   eventService,
		rateLimits:     rateLimits,
		logger:         logger,
	}
}

// CreateBooking creates a pending booking
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)

	if err := h.rateLimits.CheckBookingRateLimit(actor.UserID, actor.IPAddress); err != nil {
		if rateErr, ok := err.(*services.RateLimitError); ok {
			c.Header("Retry-After", rateErr.RetryAfter.UTC().Format(http.TimeFormat))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "message": rateErr.Message})
			return
		}
		h.logger.WithError(err).Error("Rate limit check failed")
	}

	if err := h.rateLimits.RecordBookingAttempt(actor.UserID, actor.IPAddress); err != nil {
		h.logger.WithError(err).Warn("Failed to record booking attempt")
	}

	booking, err := h.bookingService.CreateBooking(actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBooking retrieves a booking by ID
// GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if !h.canAccess(c, booking) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "You cannot access this booking"})
		return
	}

	c.JSON(http.StatusOK, booking)
}

// GetBookingByNumber retrieves a booking by its external reference
// GET /api/v1/bookings/number/:number
func (h *BookingHandler) GetBookingByNumber(c *gin.Context) {
	booking, err := h.bookingService.GetBookingByNumber(c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	if !h.canAccess(c, booking) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "You cannot access this booking"})
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListMyBookings retrieves the authenticated user's bookings
// GET /api/v1/bookings
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookings, err := h.bookingService.ListUserBookings(userCtx.UserID.String())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list bookings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// UpdateBooking modifies a booking within the modification window
// PUT /api/v1/bookings/:id
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.canAccess(c, booking) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "You cannot modify this booking"})
		return
	}

	updated, err := h.bookingService.UpdateBooking(middleware.ActorFrom(c), booking.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ConfirmBooking commits the booking's spots
// POST /api/v1/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.canAccess(c, booking) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "You cannot confirm this booking"})
		return
	}

	confirmed, err := h.bookingService.ConfirmBooking(middleware.ActorFrom(c), booking.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"confirmed": confirmed, "booking_id": booking.ID})
}

// CancelBooking cancels a booking and releases its spots
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.canAccess(c, booking) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "You cannot cancel this booking"})
		return
	}

	if err := h.bookingService.CancelBooking(middleware.ActorFrom(c), booking.ID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cancelled": true, "booking_id": booking.ID})
}

// ProcessPayment charges a confirmed booking
// POST /api/v1/bookings/:id/payment
func (h *BookingHandler) ProcessPayment(c *gin.Context) {
	var req models.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.canAccess(c, booking) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "You cannot pay for this booking"})
		return
	}

	payment, err := h.bookingService.ProcessPayment(middleware.ActorFrom(c), booking.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id": payment.ID,
		"status":     payment.Status,
		"reference":  payment.GatewayTransactionID,
	})
}

// RefundPayment reverses a completed payment (admin only)
// POST /api/v1/payments/:id/refund
func (h *BookingHandler) RefundPayment(c *gin.Context) {
	payment, err := h.bookingService.RefundPayment(middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refund_id":   payment.ID,
		"status":      payment.Status,
		"refunded_at": payment.RefundedAt,
	})
}

// MarkNoShow flags a booking whose participants did not show up (operator/admin)
// POST /api/v1/bookings/:id/no-show
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	if err := h.bookingService.MarkNoShow(middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"no_show": true})
}

// GetBookingHistory retrieves the recorded events of a booking
// GET /api/v1/bookings/:id/history
func (h *BookingHandler) GetBookingHistory(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.canAccess(c, booking) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "You cannot access this booking"})
		return
	}

	events, err := h.eventService.GetBookingHistory(booking.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch booking history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, events)
}

// canAccess allows the booking owner plus operator and admin roles
func (h *BookingHandler) canAccess(c *gin.Context, booking *models.Booking) bool {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		return false
	}

	if booking.UserID == userCtx.UserID.String() {
		return true
	}

	for _, role := range userCtx.Roles {
		if role == "operator" || role == "admin" {
			return true
		}
	}

	return false
}
