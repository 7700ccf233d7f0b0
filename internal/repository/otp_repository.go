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

// otpRepository implements OTPRepository interface
type otpRepository struct {
	db database.DBTX
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db database.DBTX) OTPRepository {
	return &otpRepository{db: db}
}

// Create stores a verification code
func (r *otpRepository) Create(ctx context.Context, otp *domain.OTP) error {
	query := `
		INSERT INTO otps (id, code, expires_at, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if otp.ID == "" {
		otp.ID = uuid.New().String()
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		otp.ID,
		otp.Code,
		otp.ExpiresAt,
		otp.UserID,
		otp.CreatedAt,
	)

	if err != nil {
		if _, ok := uniqueViolationConstraint(err); ok {
			return fmt.Errorf("otp code collision: %w", ErrDuplicateOTPCode)
		}
		return fmt.Errorf("failed to create otp: %w", err)
	}

	return nil
}

// GetByCode retrieves a verification code by its value
func (r *otpRepository) GetByCode(ctx context.Context, code int) (*domain.OTP, error) {
	query := `
		SELECT id, code, expires_at, user_id, created_at
		FROM otps
		WHERE code = $1
	`

	otp := &domain.OTP{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&otp.ID,
		&otp.Code,
		&otp.ExpiresAt,
		&otp.UserID,
		&otp.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("otp not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get otp by code: %w", err)
	}

	return otp, nil
}

// Delete deletes a verification code by ID
func (r *otpRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM otps WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("otp with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteExpiredByCode frees a code value held by an expired row
func (r *otpRepository) DeleteExpiredByCode(ctx context.Context, code int, before time.Time) (int64, error) {
	query := `DELETE FROM otps WHERE code = $1 AND expires_at < $2`

	result, err := r.db.ExecContext(ctx, query, code, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otp by code: %w", err)
	}

	return result.RowsAffected()
}

// DeleteExpired deletes all codes that expired before the given moment
func (r *otpRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM otps WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}

	return result.RowsAffected()
}
