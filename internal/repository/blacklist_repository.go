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

// blacklistRepository implements BlacklistRepository interface
type blacklistRepository struct {
	db database.DBTX
}

// NewBlacklistRepository creates a new blacklist repository
func NewBlacklistRepository(db database.DBTX) BlacklistRepository {
	return &blacklistRepository{db: db}
}

// Create revokes a refresh token
func (r *blacklistRepository) Create(ctx context.Context, token *domain.BlacklistedToken) error {
	query := `INSERT INTO blacklisted_tokens (id, token, created_at) VALUES ($1, $2, $3)`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query, token.ID, token.Token, token.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			return ErrDuplicateBlacklistedToken
		}
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	return nil
}

// GetByToken retrieves a blacklist entry by the raw token value
func (r *blacklistRepository) GetByToken(ctx context.Context, token string) (*domain.BlacklistedToken, error) {
	query := `SELECT id, token, created_at FROM blacklisted_tokens WHERE token = $1`

	entry := &domain.BlacklistedToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&entry.ID, &entry.Token, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("blacklisted token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get blacklisted token: %w", err)
	}

	return entry, nil
}
