package repository

import (
	"fmt"

	"github.com/aimd54/sme-dispatch/internal/models"
)

// ServiceRequestRepository handles service request database operations.
type ServiceRequestRepository struct {
	db *DB
}

// NewServiceRequestRepository creates a new service request repository.
func NewServiceRequestRepository(db *DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{db: db}
}

// Create creates a new service request.
func (r *ServiceRequestRepository) Create(sr *models.ServiceRequest) error {
	if err := r.db.Create(sr).Error; err != nil {
		return fmt.Errorf("failed to create service request: %w", err)
	}
	return nil
}

// GetActive retrieves an active service request with its required expertise
// tags and client preloaded.
func (r *ServiceRequestRepository) GetActive(id uint) (*models.ServiceRequest, error) {
	var sr models.ServiceRequest
	err := r.db.Where("id = ? AND is_active = ?", id, true).
		Preload("Expertises").
		Preload("Client").
		First(&sr).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get service request %d: %w", id, err)
	}
	return &sr, nil
}

// Update persists changes to a service request.
func (r *ServiceRequestRepository) Update(sr *models.ServiceRequest) error {
	if err := r.db.Save(sr).Error; err != nil {
		return fmt.Errorf("failed to update service request %d: %w", sr.ID, err)
	}
	return nil
}

// ListActiveByClient retrieves all active service requests for a client.
func (r *ServiceRequestRepository) ListActiveByClient(clientID uint) ([]models.ServiceRequest, error) {
	var srs []models.ServiceRequest
	err := r.db.Where("client_id = ? AND is_active = ?", clientID, true).
		Preload("Expertises").
		Order("created_at DESC").
		Find(&srs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list service requests for client %d: %w", clientID, err)
	}
	return srs, nil
}
