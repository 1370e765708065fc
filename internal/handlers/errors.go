package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/andesviajes/tours-backend/internal/models"
)

// statusForKind maps a domain error kind to its HTTP status
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrNotFound:
		return http.StatusNotFound
	case models.ErrPastDate, models.ErrUnsupportedPaymentMethod, models.ErrInvalidInput:
		return http.StatusBadRequest
	case models.ErrInsufficientCapacity, models.ErrScheduleUnavailable,
		models.ErrNotModifiable, models.ErrNotCancellable,
		models.ErrAlreadyPaid, models.ErrNotRefundable,
		models.ErrConcurrencyConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes a domain error with its mapped status, or a generic
// 500 for unexpected failures. Internal error details never reach clients.
func respondError(c *gin.Context, err error) {
	if domainErr, ok := models.AsDomainError(err); ok {
		c.JSON(statusForKind(domainErr.Kind), gin.H{
			"error":     string(domainErr.Kind),
			"message":   domainErr.Message,
			"retryable": domainErr.Retryable(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "An unexpected error occurred",
	})
}
