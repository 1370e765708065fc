package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RateLimitService throttles booking creation per user and per IP. Pending
// bookings cost nothing to create, so without a limit a single client could
// spray holds across every schedule.
type RateLimitService struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db *sqlx.DB) *RateLimitService {
	return &RateLimitService{
		db:  db,
		now: time.Now,
	}
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxUserRequests int           // Max booking attempts per user
	UserWindow      time.Duration // Time window for the user limit
	MaxIPRequests   int           // Max booking attempts per IP
	IPWindow        time.Duration // Time window for the IP limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxUserRequests: 10,
		UserWindow:      10 * time.Minute,
		MaxIPRequests:   30,
		IPWindow:        1 * time.Hour,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "user" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckBookingRateLimit checks whether a user or IP has exceeded the
// booking creation limits
func (s *RateLimitService) CheckBookingRateLimit(userID, ip string) error {
	config := DefaultRateLimitConfig()

	if userID != "" {
		count, lastRequest, err := s.getRequestCount(userID, "user", config.UserWindow)
		if err != nil {
			return fmt.Errorf("failed to check user rate limit: %w", err)
		}

		if count >= config.MaxUserRequests {
			retryAfter := lastRequest.Add(config.UserWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many booking attempts. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "user",
			}
		}
	}

	if ip != "" {
		count, lastRequest, err := s.getRequestCount(ip, "ip", config.IPWindow)
		if err != nil {
			return fmt.Errorf("failed to check IP rate limit: %w", err)
		}

		if count >= config.MaxIPRequests {
			retryAfter := lastRequest.Add(config.IPWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many booking attempts from this address. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "ip",
			}
		}
	}

	return nil
}

// RecordBookingAttempt records a booking attempt for rate limiting
func (s *RateLimitService) RecordBookingAttempt(userID, ip string) error {
	if userID != "" {
		if err := s.recordRequest(userID, "user"); err != nil {
			return fmt.Errorf("failed to record user attempt: %w", err)
		}
	}

	if ip != "" {
		if err := s.recordRequest(ip, "ip"); err != nil {
			return fmt.Errorf("failed to record IP attempt: %w", err)
		}
	}

	return nil
}

// CleanupExpired removes rate limit records older than the longest window
func (s *RateLimitService) CleanupExpired() (int64, error) {
	config := DefaultRateLimitConfig()

	maxWindow := config.IPWindow
	if config.UserWindow > maxWindow {
		maxWindow = config.UserWindow
	}

	cutoff := s.now().Add(-maxWindow)

	result, err := s.db.Exec(`DELETE FROM booking_rate_limits WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	return result.RowsAffected()
}

func (s *RateLimitService) getRequestCount(identifier, identifierType string, window time.Duration) (int, time.Time, error) {
	windowStart := s.now().Add(-window)

	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM booking_rate_limits
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var count int
	var lastRequest time.Time

	err := s.db.QueryRow(query, identifier, identifierType, windowStart).Scan(&count, &lastRequest)
	if err != nil && err != sql.ErrNoRows {
		return 0, time.Time{}, err
	}

	return count, lastRequest, nil
}

func (s *RateLimitService) recordRequest(identifier, identifierType string) error {
	query := `
		INSERT INTO booking_rate_limits (identifier, identifier_type, created_at)
		VALUES ($1, $2, NOW())
	`

	_, err := s.db.Exec(query, identifier, identifierType)
	return err
}
