package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/memorylane/backend/internal/models"
	"github.com/anonto42/memorylane/backend/pkg/apperrors"
	"gorm.io/gorm"
)

// UserRepository defines the server-side profile lookups
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.UserProfile, error)
	FindByDisplayName(ctx context.Context, name string) (*models.UserProfile, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// GetUserByID retrieves a profile by ID from PostgreSQL
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// FindByDisplayName finds a profile by exact display name (case-insensitive)
func (r *PostgresUserRepository) FindByDisplayName(ctx context.Context, name string) (*models.UserProfile, error) {
	var user models.UserProfile
	err := r.db.WithContext(ctx).
		Where("LOWER(display_name) = LOWER(?)", strings.TrimSpace(name)).
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}
