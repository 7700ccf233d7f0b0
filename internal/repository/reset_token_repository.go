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

// resetTokenRepository implements ResetTokenRepository interface
type resetTokenRepository struct {
	db database.DBTX
}

// NewResetTokenRepository creates a new reset token repository
func NewResetTokenRepository(db database.DBTX) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

// Create creates a new password reset token
func (r *resetTokenRepository) Create(ctx context.Context, token *domain.ResetPasswordToken) error {
	query := `
		INSERT INTO reset_password_tokens (id, token, expires_at, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.Token,
		token.ExpiresAt,
		token.UserID,
		token.CreatedAt,
	)

	if err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			return fmt.Errorf("reset token collision: %w", ErrDuplicateResetToken)
		}
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	return nil
}

// GetByToken retrieves a reset token by its secret value
func (r *resetTokenRepository) GetByToken(ctx context.Context, token string) (*domain.ResetPasswordToken, error) {
	query := `
		SELECT id, token, expires_at, user_id, created_at
		FROM reset_password_tokens
		WHERE token = $1
	`

	resetToken := &domain.ResetPasswordToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&resetToken.ID,
		&resetToken.Token,
		&resetToken.ExpiresAt,
		&resetToken.UserID,
		&resetToken.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reset token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}

	return resetToken, nil
}

// Delete deletes a reset token by ID
func (r *resetTokenRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM reset_password_tokens WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("reset token with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteExpired deletes all reset tokens that expired before the given moment
func (r *resetTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM reset_password_tokens WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}

	return result.RowsAffected()
}
