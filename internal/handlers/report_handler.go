package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/andesviajes/tours-backend/internal/models"
	"github.com/andesviajes/tours-backend/internal/services"
)

// ReportHandler exposes commission reports and payouts over HTTP
type ReportHandler struct {
	commissionService *services.CommissionService
	paymentService    *services.PaymentService
	logger            *logrus.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(commissionService *services.CommissionService, paymentService *services.PaymentService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		commissionService: commissionService,
		paymentService:    paymentService,
		logger:            logger,
	}
}

// GetMonthlyReport aggregates commissions for one month
// GET /api/v1/reports/commissions/:year/:month
func (h *ReportHandler) GetMonthlyReport(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "year must be a number"})
		return
	}

	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "month must be a number"})
		return
	}

	report, err := h.commissionService.GetMonthlyReport(year, month)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetYearlyReport aggregates commissions for a whole year
// GET /api/v1/reports/commissions/:year
func (h *ReportHandler) GetYearlyReport(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "year must be a number"})
		return
	}

	report, err := h.commissionService.GetYearlyReport(year)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetRangeReport aggregates commissions between two dates
// GET /api/v1/reports/commissions?from=2026-01-01&to=2026-06-30
func (h *ReportHandler) GetRangeReport(c *gin.Context) {
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

	// End of range is inclusive of the "to" day
	report, err := h.commissionService.GetReportByDateRange(from, to.AddDate(0, 0, 1))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// MarkCommissionsPaid settles pending commissions in bulk (admin only)
// POST /api/v1/reports/commissions/mark-paid
func (h *ReportHandler) MarkCommissionsPaid(c *gin.Context) {
	var req models.MarkCommissionsPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}

	settled, err := h.commissionService.MarkAsPaid(req.CommissionIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requested": len(req.CommissionIDs),
		"settled":   settled,
	})
}

// ListBookingPayments retrieves all payment attempts of a booking
// GET /api/v1/bookings/:id/payments
func (h *ReportHandler) ListBookingPayments(c *gin.Context) {
	payments, err := h.paymentService.ListByBooking(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}
