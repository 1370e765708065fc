package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	inventory  *ScheduleInventoryService
	rateLimits *RateLimitService
	logger     *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(inventory *ScheduleInventoryService, rateLimits *RateLimitService, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:       cron.New(),
		inventory:  inventory,
		rateLimits: rateLimits,
		logger:     logger,
	}
}

// Start schedules all background jobs and starts the scheduler
func (s *CronService) Start() error {
	// Close out yesterday's schedules daily at 3 AM
	if _, err := s.cron.AddFunc("0 3 * * *", s.closeFinishedSchedulesJob); err != nil {
		return fmt.Errorf("failed to schedule close-out job: %w", err)
	}

	// Purge expired rate limit records hourly
	if _, err := s.cron.AddFunc("30 * * * *", s.cleanupRateLimitsJob); err != nil {
		return fmt.Errorf("failed to schedule rate limit cleanup job: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("jobs", len(s.cron.Entries())).Info("Cron service started")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// RunCloseFinishedSchedulesNow runs the close-out job immediately
func (s *CronService) RunCloseFinishedSchedulesNow() {
	s.closeFinishedSchedulesJob()
}

func (s *CronService) closeFinishedSchedulesJob() {
	startTime := time.Now()

	closed, err := s.inventory.CloseFinishedSchedules()
	if err != nil {
		s.logger.WithError(err).Error("Schedule close-out job failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"closed":   closed,
		"duration": time.Since(startTime).String(),
	}).Info("Schedule close-out job finished")
}

func (s *CronService) cleanupRateLimitsJob() {
	removed, err := s.rateLimits.CleanupExpired()
	if err != nil {
		s.logger.WithError(err).Error("Rate limit cleanup job failed")
		return
	}

	if removed > 0 {
		s.logger.WithField("removed", removed).Debug("Expired rate limit records purged")
	}
}
