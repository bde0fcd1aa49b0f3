// Package lifecycle implements the assignment state machine and its coupled
// billing state. All operations report success as a boolean: a failed guard
// or a store error is a logged no-op, never a panic or error return.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/aimd54/sme-dispatch/internal/metrics"
	"github.com/aimd54/sme-dispatch/internal/models"
	"github.com/aimd54/sme-dispatch/internal/repository"
	"github.com/aimd54/sme-dispatch/internal/service/reputation"
	"github.com/aimd54/sme-dispatch/pkg/logger"
)

// SlaCompletionWindow is the window after acceptance within which completion
// earns the SLA bonus.
const SlaCompletionWindow = 7 * 24 * time.Hour

// AssignmentRepository interface for assignment operations.
type AssignmentRepository interface {
	GetActive(id uint) (*models.Assignment, error)
	GetActiveForSme(id, smeUserID uint) (*models.Assignment, error)
	Update(assignment *models.Assignment) error
}

// ScoreAdjuster interface for reputation score mutations.
type ScoreAdjuster interface {
	AdjustScore(ctx context.Context, smeUserID uint, delta int, reason string)
}

// Service drives assignment lifecycle transitions.
type Service struct {
	assignments AssignmentRepository
	scores      ScoreAdjuster
	log         *logger.Logger
}

// NewService creates a new lifecycle service with concrete repository types.
func NewService(assignments *repository.AssignmentRepository, scores *reputation.Ledger, log *logger.Logger) *Service {
	return &Service{
		assignments: assignments,
		scores:      scores,
		log:         log,
	}
}

// NewServiceWithInterfaces creates a new lifecycle service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(assignments AssignmentRepository, scores ScoreAdjuster, log *logger.Logger) *Service {
	return &Service{
		assignments: assignments,
		scores:      scores,
		log:         log,
	}
}

// deriveBilling computes the billing pair for a destination status. Accepted,
// InProgress and Completed work is billable; anything else is not. A billing
// status already advanced to Invoiced or Paid is owned by the invoicing side
// and is preserved either way.
func deriveBilling(status, currentBillingStatus string) (isBillable bool, billingStatus string) {
	frozen := currentBillingStatus == models.BillingInvoiced || currentBillingStatus == models.BillingPaid

	switch status {
	case models.StatusAccepted, models.StatusInProgress, models.StatusCompleted:
		if frozen {
			return true, currentBillingStatus
		}
		return true, models.BillingReady
	default:
		if frozen {
			return false, currentBillingStatus
		}
		return false, models.BillingNotBillable
	}
}

// Accept transitions an assignment from Assigned to Accepted on behalf of
// the assigned SME. Returns false when the assignment is missing, belongs to
// another SME, or is not currently Assigned.
func (s *Service) Accept(ctx context.Context, assignmentID, smeUserID uint) bool {
	assignment, err := s.assignments.GetActiveForSme(assignmentID, smeUserID)
	if err != nil {
		s.log.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("Accept failed, assignment not found")
		prommetrics.RecordTransition("accept", models.StatusAccepted, "not_found")
		return false
	}

	if assignment.Status != models.StatusAssigned {
		s.log.Warn().
			Uint("assignment_id", assignmentID).
			Str("status", assignment.Status).
			Msg("Assignment cannot be accepted in its current status")
		prommetrics.RecordTransition("accept", models.StatusAccepted, "precondition_failed")
		return false
	}

	now := time.Now().UTC()
	assignment.Status = models.StatusAccepted
	assignment.AcceptedAt = &now
	assignment.OutcomeReason = nil
	assignment.ResponsibilityParty = nil
	assignment.IsBillable, assignment.BillingStatus = deriveBilling(models.StatusAccepted, assignment.BillingStatus)

	if err := s.assignments.Update(assignment); err != nil {
		s.log.Error().Err(err).Uint("assignment_id", assignmentID).Msg("Failed to save accepted assignment")
		prommetrics.RecordTransition("accept", models.StatusAccepted, "store_error")
		return false
	}

	prommetrics.RecordTransition("accept", models.StatusAccepted, "success")
	s.log.Info().
		Uint("assignment_id", assignmentID).
		Uint("sme_user_id", smeUserID).
		Msg("Assignment accepted")
	return true
}

// Reject transitions an assignment from Assigned to Rejected on behalf of
// the assigned SME. Rejections without a legitimate reason carry a
// reputation penalty.
func (s *Service) Reject(ctx context.Context, assignmentID, smeUserID uint, reason string, notes *string) bool {
	assignment, err := s.assignments.GetActiveForSme(assignmentID, smeUserID)
	if err != nil {
		s.log.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("Reject failed, assignment not found")
		prommetrics.RecordTransition("reject", models.StatusRejected, "not_found")
		return false
	}

	if assignment.Status != models.StatusAssigned {
		s.log.Warn().
			Uint("assignment_id", assignmentID).
			Str("status", assignment.Status).
			Msg("Assignment cannot be rejected in its current status")
		prommetrics.RecordTransition("reject", models.StatusRejected, "precondition_failed")
		return false
	}

	party := models.PartySME
	assignment.Status = models.StatusRejected
	assignment.OutcomeReason = &reason
	assignment.ResponsibilityParty = &party
	if notes != nil {
		assignment.Notes = notes
	}
	assignment.IsBillable, assignment.BillingStatus = deriveBilling(models.StatusRejected, assignment.BillingStatus)

	if err := s.assignments.Update(assignment); err != nil {
		s.log.Error().Err(err).Uint("assignment_id", assignmentID).Msg("Failed to save rejected assignment")
		prommetrics.RecordTransition("reject", models.StatusRejected, "store_error")
		return false
	}

	if !models.IsLegitimateRejection(reason) {
		s.scores.AdjustScore(ctx, smeUserID, reputation.DeltaPenalizedRejection,
			fmt.Sprintf("Rejected assignment %d with reason %s", assignmentID, reason))
	}

	prommetrics.RecordTransition("reject", models.StatusRejected, "success")
	s.log.Info().
		Uint("assignment_id", assignmentID).
		Uint("sme_user_id", smeUserID).
		Str("reason", reason).
		Msg("Assignment rejected")
	return true
}

// Start transitions an assignment from Accepted to InProgress on behalf of
// the assigned SME.
func (s *Service) Start(ctx context.Context, assignmentID, smeUserID uint) bool {
	assignment, err := s.assignments.GetActiveForSme(assignmentID, smeUserID)
	if err != nil {
		s.log.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("Start failed, assignment not found")
		prommetrics.RecordTransition("start", models.StatusInProgress, "not_found")
		return false
	}

	if assignment.Status != models.StatusAccepted {
		s.log.Warn().
			Uint("assignment_id", assignmentID).
			Str("status", assignment.Status).
			Msg("Assignment cannot be started in its current status")
		prommetrics.RecordTransition("start", models.StatusInProgress, "precondition_failed")
		return false
	}

	now := time.Now().UTC()
	assignment.Status = models.StatusInProgress
	assignment.StartedAt = &now
	assignment.IsBillable, assignment.BillingStatus = deriveBilling(models.StatusInProgress, assignment.BillingStatus)

	if err := s.assignments.Update(assignment); err != nil {
		s.log.Error().Err(err).Uint("assignment_id", assignmentID).Msg("Failed to save started assignment")
		prommetrics.RecordTransition("start", models.StatusInProgress, "store_error")
		return false
	}

	prommetrics.RecordTransition("start", models.StatusInProgress, "success")
	s.log.Info().
		Uint("assignment_id", assignmentID).
		Uint("sme_user_id", smeUserID).
		Msg("Assignment started")
	return true
}

// Complete transitions an assignment from InProgress to Completed on behalf
// of the assigned SME. Completion earns a reputation credit, plus a bonus
// when finished within the SLA window after acceptance.
func (s *Service) Complete(ctx context.Context, assignmentID, smeUserID uint) bool {
	assignment, err := s.assignments.GetActiveForSme(assignmentID, smeUserID)
	if err != nil {
		s.log.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("Complete failed, assignment not found")
		prommetrics.RecordTransition("complete", models.StatusCompleted, "not_found")
		return false
	}

	if assignment.Status != models.StatusInProgress {
		s.log.Warn().
			Uint("assignment_id", assignmentID).
			Str("status", assignment.Status).
			Msg("Assignment cannot be completed in its current status")
		prommetrics.RecordTransition("complete", models.StatusCompleted, "precondition_failed")
		return false
	}

	now := time.Now().UTC()
	assignment.Status = models.StatusCompleted
	assignment.CompletedAt = &now
	assignment.IsBillable, assignment.BillingStatus = deriveBilling(models.StatusCompleted, assignment.BillingStatus)

	if err := s.assignments.Update(assignment); err != nil {
		s.log.Error().Err(err).Uint("assignment_id", assignmentID).Msg("Failed to save completed assignment")
		prommetrics.RecordTransition("complete", models.StatusCompleted, "store_error")
		return false
	}

	s.scores.AdjustScore(ctx, smeUserID, reputation.DeltaCompleted,
		fmt.Sprintf("Completed assignment %d", assignmentID))

	if assignment.AcceptedAt != nil && now.Sub(*assignment.AcceptedAt) <= SlaCompletionWindow {
		s.scores.AdjustScore(ctx, smeUserID, reputation.DeltaCompletedWithinSLA,
			fmt.Sprintf("Completed assignment %d within SLA", assignmentID))
	}

	prommetrics.RecordTransition("complete", models.StatusCompleted, "success")
	s.log.Info().
		Uint("assignment_id", assignmentID).
		Uint("sme_user_id", smeUserID).
		Msg("Assignment completed")
	return true
}

// Abandon marks an assignment Abandoned from any non-terminal point in its
// lifecycle. Coordinator or system initiated, so there is no caller guard.
// When the SME is responsible and had already accepted, a reputation penalty
// applies; the responsibility check runs against the status captured before
// the transition.
func (s *Service) Abandon(ctx context.Context, assignmentID uint, reason, responsibilityParty string, notes *string) bool {
	assignment, err := s.assignments.GetActive(assignmentID)
	if err != nil {
		s.log.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("Abandon failed, assignment not found")
		prommetrics.RecordTransition("abandon", models.StatusAbandoned, "not_found")
		return false
	}

	priorStatus := assignment.Status

	assignment.Status = models.StatusAbandoned
	assignment.OutcomeReason = &reason
	assignment.ResponsibilityParty = &responsibilityParty
	if notes != nil {
		assignment.Notes = notes
	}
	assignment.IsBillable, assignment.BillingStatus = deriveBilling(models.StatusAbandoned, assignment.BillingStatus)

	if err := s.assignments.Update(assignment); err != nil {
		s.log.Error().Err(err).Uint("assignment_id", assignmentID).Msg("Failed to save abandoned assignment")
		prommetrics.RecordTransition("abandon", models.StatusAbandoned, "store_error")
		return false
	}

	if responsibilityParty == models.PartySME && priorStatus == models.StatusAccepted {
		s.scores.AdjustScore(ctx, assignment.SmeUserID, reputation.DeltaAbandonedAfterAccept,
			fmt.Sprintf("Abandoned assignment %d after acceptance", assignmentID))
	}

	prommetrics.RecordTransition("abandon", models.StatusAbandoned, "success")
	s.log.Info().
		Uint("assignment_id", assignmentID).
		Str("reason", reason).
		Str("responsibility", responsibilityParty).
		Msg("Assignment abandoned")
	return true
}

// UpdateStatus is the coordinator-level generic transition. It stamps the
// destination's timestamp on first entry only and recomputes billing from
// the destination status.
func (s *Service) UpdateStatus(ctx context.Context, assignmentID uint, status string, outcomeReason, responsibilityParty *string, notes *string) bool {
	if !isKnownStatus(status) {
		s.log.Warn().Uint("assignment_id", assignmentID).Str("status", status).Msg("UpdateStatus rejected unknown status")
		prommetrics.RecordTransition("update_status", status, "invalid_status")
		return false
	}

	assignment, err := s.assignments.GetActive(assignmentID)
	if err != nil {
		s.log.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("UpdateStatus failed, assignment not found")
		prommetrics.RecordTransition("update_status", status, "not_found")
		return false
	}

	oldStatus := assignment.Status
	assignment.Status = status

	if outcomeReason != nil {
		assignment.OutcomeReason = outcomeReason
	}
	if responsibilityParty != nil {
		assignment.ResponsibilityParty = responsibilityParty
	}
	if notes != nil {
		assignment.Notes = notes
	}

	stampOnFirstEntry(assignment, status, time.Now().UTC())
	assignment.IsBillable, assignment.BillingStatus = deriveBilling(status, assignment.BillingStatus)

	if err := s.assignments.Update(assignment); err != nil {
		s.log.Error().Err(err).Uint("assignment_id", assignmentID).Msg("Failed to save assignment status update")
		prommetrics.RecordTransition("update_status", status, "store_error")
		return false
	}

	prommetrics.RecordTransition("update_status", status, "success")
	s.log.Info().
		Uint("assignment_id", assignmentID).
		Str("old_status", oldStatus).
		Str("new_status", status).
		Msg("Assignment status updated")
	return true
}

// AdminOverride forces any status transition, for correcting mistakes. On
// top of UpdateStatus semantics it clears CompletedAt when leaving Completed
// and StartedAt when leaving InProgress for anything other than Completed,
// and audit-logs the full before/after diff.
func (s *Service) AdminOverride(ctx context.Context, assignmentID uint, status string, outcomeReason, responsibilityParty *string, notes *string, adminUserID *uint) bool {
	if !isKnownStatus(status) {
		s.log.Warn().Uint("assignment_id", assignmentID).Str("status", status).Msg("AdminOverride rejected unknown status")
		prommetrics.RecordTransition("admin_override", status, "invalid_status")
		return false
	}

	assignment, err := s.assignments.GetActive(assignmentID)
	if err != nil {
		s.log.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("AdminOverride failed, assignment not found")
		prommetrics.RecordTransition("admin_override", status, "not_found")
		return false
	}

	oldStatus := assignment.Status
	oldIsBillable := assignment.IsBillable
	oldBillingStatus := assignment.BillingStatus

	assignment.Status = status

	if outcomeReason != nil {
		assignment.OutcomeReason = outcomeReason
	}
	if responsibilityParty != nil {
		assignment.ResponsibilityParty = responsibilityParty
	}
	if notes != nil {
		assignment.Notes = notes
	}

	stampOnFirstEntry(assignment, status, time.Now().UTC())

	// Reverting a completion or an in-progress state also reverts its stamp.
	if oldStatus == models.StatusCompleted && status != models.StatusCompleted {
		assignment.CompletedAt = nil
	}
	if oldStatus == models.StatusInProgress && status != models.StatusInProgress && status != models.StatusCompleted {
		assignment.StartedAt = nil
	}

	assignment.IsBillable, assignment.BillingStatus = deriveBilling(status, assignment.BillingStatus)

	if err := s.assignments.Update(assignment); err != nil {
		s.log.Error().Err(err).Uint("assignment_id", assignmentID).Msg("Failed to save admin override")
		prommetrics.RecordTransition("admin_override", status, "store_error")
		return false
	}

	event := s.log.Warn().
		Uint("assignment_id", assignmentID).
		Str("old_status", oldStatus).
		Str("new_status", status).
		Bool("old_is_billable", oldIsBillable).
		Bool("new_is_billable", assignment.IsBillable).
		Str("old_billing_status", oldBillingStatus).
		Str("new_billing_status", assignment.BillingStatus)
	if adminUserID != nil {
		event = event.Uint("admin_user_id", *adminUserID)
	}
	if notes != nil {
		event = event.Str("notes", *notes)
	}
	event.Msg("ADMIN OVERRIDE applied to assignment")

	prommetrics.RecordTransition("admin_override", status, "success")
	return true
}

// stampOnFirstEntry stamps the timestamp tied to the destination status, but
// never overwrites one that is already set.
func stampOnFirstEntry(assignment *models.Assignment, status string, now time.Time) {
	switch status {
	case models.StatusAccepted:
		if assignment.AcceptedAt == nil {
			assignment.AcceptedAt = &now
		}
	case models.StatusInProgress:
		if assignment.StartedAt == nil {
			assignment.StartedAt = &now
		}
	case models.StatusCompleted:
		if assignment.CompletedAt == nil {
			assignment.CompletedAt = &now
		}
	}
}

func isKnownStatus(status string) bool {
	switch status {
	case models.StatusAssigned, models.StatusAccepted, models.StatusRejected,
		models.StatusInProgress, models.StatusCompleted, models.StatusAbandoned:
		return true
	}
	return false
}
