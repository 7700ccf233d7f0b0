package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/otp-auth-service/internal/domain"
	"github.com/prperemyshlev/otp-auth-service/pkg/database"
)

// profileRepository implements ProfileRepository interface
type profileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.DBTX) ProfileRepository {
	return &profileRepository{db: db}
}

// Create creates an empty profile for a user
func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	query := `INSERT INTO profiles (id, user_id, created_at) VALUES ($1, $2, $3)`

	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query, profile.ID, profile.UserID, profile.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			return fmt.Errorf("profile for user %s: %w", profile.UserID, ErrDuplicateProfile)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves the profile owned by a user
func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT id, user_id, created_at FROM profiles WHERE user_id = $1`

	profile := &domain.Profile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&profile.ID, &profile.UserID, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile for user %s not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}
