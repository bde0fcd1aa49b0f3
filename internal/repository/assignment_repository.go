package repository

import (
	"fmt"
	"time"

	"github.com/aimd54/sme-dispatch/internal/models"
)

// AssignmentRepository handles assignment-related database operations.
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create creates a new assignment in the initial Assigned status.
func (r *AssignmentRepository) Create(assignment *models.Assignment) error {
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	if assignment.Status == "" {
		assignment.Status = models.StatusAssigned
	}
	if assignment.BillingStatus == "" {
		assignment.BillingStatus = models.BillingNotBillable
	}
	assignment.IsActive = true

	if err := r.db.Create(assignment).Error; err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// GetActive retrieves an active assignment by ID. Soft-deleted records are
// treated as missing.
func (r *AssignmentRepository) GetActive(id uint) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&assignment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment %d: %w", id, err)
	}
	return &assignment, nil
}

// GetActiveForSme retrieves an active assignment by ID scoped to the
// assigned SME. Used by caller-identity guarded lifecycle operations.
func (r *AssignmentRepository) GetActiveForSme(id, smeUserID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.Where("id = ? AND sme_user_id = ? AND is_active = ?", id, smeUserID, true).
		First(&assignment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment %d for sme %d: %w", id, smeUserID, err)
	}
	return &assignment, nil
}

// Update persists changes to an assignment.
func (r *AssignmentRepository) Update(assignment *models.Assignment) error {
	if err := r.db.Save(assignment).Error; err != nil {
		return fmt.Errorf("failed to update assignment %d: %w", assignment.ID, err)
	}
	return nil
}

// Deactivate soft-deletes an assignment. Assignments are never physically
// removed.
func (r *AssignmentRepository) Deactivate(id uint) error {
	err := r.db.Model(&models.Assignment{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate assignment %d: %w", id, err)
	}
	return nil
}

// CountActiveBySme counts the SME's assignments currently in Accepted or
// InProgress status. This is the workload input to the recommendation sort.
func (r *AssignmentRepository) CountActiveBySme(smeUserID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Assignment{}).
		Where("sme_user_id = ? AND is_active = ?", smeUserID, true).
		Where("status IN ?", []string{models.StatusAccepted, models.StatusInProgress}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active assignments for sme %d: %w", smeUserID, err)
	}
	return count, nil
}

// CountRejectionsSince counts the SME's rejected assignments assigned on or
// after the given time.
func (r *AssignmentRepository) CountRejectionsSince(smeUserID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Assignment{}).
		Where("sme_user_id = ? AND status = ? AND assigned_at >= ?", smeUserID, models.StatusRejected, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count recent rejections for sme %d: %w", smeUserID, err)
	}
	return count, nil
}

// CountBySmeSince counts all of the SME's assignments assigned on or after
// the given time, regardless of status.
func (r *AssignmentRepository) CountBySmeSince(smeUserID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Assignment{}).
		Where("sme_user_id = ? AND assigned_at >= ?", smeUserID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments for sme %d: %w", smeUserID, err)
	}
	return count, nil
}

// CountCompletedBySmeSince counts the SME's completed assignments assigned
// on or after the given time.
func (r *AssignmentRepository) CountCompletedBySmeSince(smeUserID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Assignment{}).
		Where("sme_user_id = ? AND status = ? AND assigned_at >= ?", smeUserID, models.StatusCompleted, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed assignments for sme %d: %w", smeUserID, err)
	}
	return count, nil
}

// ListByServiceRequest retrieves all active assignments for a service request.
func (r *AssignmentRepository) ListByServiceRequest(serviceRequestID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.Where("service_request_id = ? AND is_active = ?", serviceRequestID, true).
		Preload("SmeUser").
		Order("assigned_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for service request %d: %w", serviceRequestID, err)
	}
	return assignments, nil
}

// ListBySme retrieves all active assignments for an SME, newest first.
func (r *AssignmentRepository) ListBySme(smeUserID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.Where("sme_user_id = ? AND is_active = ?", smeUserID, true).
		Preload("ServiceRequest").
		Order("assigned_at DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for sme %d: %w", smeUserID, err)
	}
	return assignments, nil
}

// ListStaleAssigned retrieves assignments still sitting in Assigned status
// that were assigned before the cutoff. Input to the daily reminder digest.
func (r *AssignmentRepository) ListStaleAssigned(before time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.Where("status = ? AND is_active = ? AND assigned_at < ?", models.StatusAssigned, true, before).
		Preload("SmeUser").
		Preload("ServiceRequest").
		Order("assigned_at ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale assignments: %w", err)
	}
	return assignments, nil
}
