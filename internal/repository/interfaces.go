package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/otp-auth-service/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	MarkVerified(ctx context.Context, userID string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) (*domain.User, error)
}

// ProfileRepository defines methods for profile operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
}

// OTPRepository defines methods for verification code operations
type OTPRepository interface {
	Create(ctx context.Context, otp *domain.OTP) error
	GetByCode(ctx context.Context, code int) (*domain.OTP, error)
	Delete(ctx context.Context, id string) error
	DeleteExpiredByCode(ctx context.Context, code int, before time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ResetTokenRepository defines methods for password reset token operations
type ResetTokenRepository interface {
	Create(ctx context.Context, token *domain.ResetPasswordToken) error
	GetByToken(ctx context.Context, token string) (*domain.ResetPasswordToken, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// BlacklistRepository defines methods for revoked refresh tokens
type BlacklistRepository interface {
	Create(ctx context.Context, token *domain.BlacklistedToken) error
	GetByToken(ctx context.Context, token string) (*domain.BlacklistedToken, error)
}

// Store groups the repositories and the transaction boundary around them.
// Repositories returned from a Store passed to WithTx's callback share the transaction.
type Store interface {
	Users() UserRepository
	Profiles() ProfileRepository
	OTPs() OTPRepository
	ResetTokens() ResetTokenRepository
	BlacklistedTokens() BlacklistRepository
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
