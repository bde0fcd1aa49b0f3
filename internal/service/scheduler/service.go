// Package scheduler provides daily reminder scheduling for assignments that
// never received an SME response.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aimd54/sme-dispatch/internal/config"
	prommetrics "github.com/aimd54/sme-dispatch/internal/metrics"
	"github.com/aimd54/sme-dispatch/internal/models"
	"github.com/aimd54/sme-dispatch/internal/notify"
	"github.com/aimd54/sme-dispatch/internal/repository"
	"github.com/aimd54/sme-dispatch/pkg/logger"
)

// StaleAssignmentLister interface for loading unanswered assignments.
type StaleAssignmentLister interface {
	ListStaleAssigned(before time.Time) ([]models.Assignment, error)
}

// DigestSender interface for delivering the daily digest.
type DigestSender interface {
	SendStaleAssignmentDigest(stale []notify.StaleAssignment) error
}

// Service handles daily reminder scheduling.
type Service struct {
	config       *config.Config
	assignments  StaleAssignmentLister
	notifyClient DigestSender
	log          *logger.Logger
	cron         *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	assignments *repository.AssignmentRepository,
	notifyClient *notify.Client,
	log *logger.Logger,
) *Service {
	return &Service{
		config:       cfg,
		assignments:  assignments,
		notifyClient: notifyClient,
		log:          log,
	}
}

// NewServiceWithInterfaces creates a new scheduler service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	cfg *config.Config,
	assignments StaleAssignmentLister,
	notifyClient DigestSender,
	log *logger.Logger,
) *Service {
	return &Service{
		config:       cfg,
		assignments:  assignments,
		notifyClient: notifyClient,
		log:          log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := s.buildCronExpression()
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		s.runDailyDigest(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register daily digest job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("time", s.config.Scheduler.Time).
		Bool("skip_weekends", s.config.Scheduler.SkipWeekends).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates a cron expression from config.
func (s *Service) buildCronExpression() (string, error) {
	// Parse time string (format: "HH:MM")
	parts := strings.Split(s.config.Scheduler.Time, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.Scheduler.Time)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	if s.config.Scheduler.SkipWeekends {
		// Monday-Friday only (1-5)
		return fmt.Sprintf("%d %d * * 1-5", minute, hour), nil
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// runDailyDigest executes the daily unanswered-assignment digest job.
func (s *Service) runDailyDigest(_ context.Context) {
	start := time.Now()

	defer func() {
		prommetrics.ObserveSchedulerJobDuration(time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun()
	}()

	s.log.Info().Msg("Running daily digest job")

	minAge := time.Duration(s.config.Scheduler.MinAgeHours) * time.Hour
	cutoff := time.Now().UTC().Add(-minAge)

	queryStart := time.Now()
	assignments, err := s.assignments.ListStaleAssigned(cutoff)
	queryDuration := time.Since(queryStart)

	if err != nil {
		s.log.Error().
			Err(err).
			Dur("query_duration", queryDuration).
			Msg("Failed to list stale assignments")
		prommetrics.RecordSchedulerJobRun("error")
		return
	}

	s.log.Info().
		Int("count", len(assignments)).
		Dur("query_duration", queryDuration).
		Msg("Found stale assignments")

	stale := buildDigestEntries(assignments)
	prommetrics.SetStaleAssignedCount(len(stale))

	if len(stale) == 0 {
		s.log.Debug().Msg("No stale assignments to notify about")
		prommetrics.RecordSchedulerJobRun("success")
		return
	}

	sendStart := time.Now()
	err = s.notifyClient.SendStaleAssignmentDigest(stale)
	sendDuration := time.Since(sendStart)

	if err != nil {
		s.log.Error().
			Err(err).
			Dur("send_duration", sendDuration).
			Msg("Failed to send daily digest")
		prommetrics.RecordSchedulerJobRun("error")
		return
	}

	prommetrics.RecordSchedulerJobRun("success")

	s.log.Info().
		Int("assignment_count", len(stale)).
		Dur("send_duration", sendDuration).
		Dur("total_duration", time.Since(start)).
		Msg("Successfully sent daily digest")
}

// buildDigestEntries converts assignments into digest rows.
func buildDigestEntries(assignments []models.Assignment) []notify.StaleAssignment {
	entries := make([]notify.StaleAssignment, 0, len(assignments))
	for _, a := range assignments {
		entries = append(entries, notify.StaleAssignment{
			AssignmentID:        a.ID,
			ServiceRequestTitle: a.ServiceRequest.Title,
			SmeName:             a.SmeUser.FullName(),
			AssignedAt:          a.AssignedAt,
		})
	}
	return entries
}
