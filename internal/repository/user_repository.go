package repository

import (
	"fmt"
	"strings"

	"github.com/aimd54/sme-dispatch/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by id %d: %w", id, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// Update updates a user.
func (r *UserRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// ListSmes retrieves all active SME-eligible users (doctors, attorneys and
// generic SMEs) with their expertise tags preloaded. An optional
// specialization substring filter narrows the pool.
func (r *UserRepository) ListSmes(specialization string) ([]models.User, error) {
	query := r.db.Model(&models.User{}).
		Where("is_active = ?", true).
		Where("role IN ?", models.SmeRoles).
		Preload("Expertises")

	if specialization != "" {
		query = query.Where("specialization LIKE ?", "%"+strings.TrimSpace(specialization)+"%")
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list smes: %w", err)
	}
	return users, nil
}

// List retrieves users with optional role filter.
func (r *UserRepository) List(role string) ([]models.User, error) {
	query := r.db.Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
