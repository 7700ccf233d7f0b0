package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/prperemyshlev/otp-auth-service/internal/domain"
	"github.com/prperemyshlev/otp-auth-service/internal/repository"
)

const (
	otpMin = 100000
	otpMax = 999999

	maxOTPAttempts = 5
)

// ErrOTPSpaceExhausted is returned when no free code was found within maxOTPAttempts
var ErrOTPSpaceExhausted = errors.New("could not allocate a unique otp code")

// VerificationService issues and consumes email verification codes
type VerificationService struct {
	store    repository.Store
	ttl      time.Duration
	grace    time.Duration
	now      func() time.Time
	generate func() (int, error)
}

// NewVerificationService creates a new verification service. Expired codes
// stay reserved for grace, so their owner keeps getting CodeExpired.
func NewVerificationService(store repository.Store, ttl, grace time.Duration) *VerificationService {
	return &VerificationService{
		store:    store,
		ttl:      ttl,
		grace:    grace,
		now:      time.Now,
		generate: generateOTPCode,
	}
}

// IssueOTP persists a fresh code for the user through the given store,
// which may be bound to an outer transaction.
// Codes are globally unique: a row holding the drawn code that expired
// more than grace ago is purged, any other one forces a new draw.
func (s *VerificationService) IssueOTP(ctx context.Context, store repository.Store, userID string) (*domain.OTP, error) {
	now := s.now()

	for attempt := 0; attempt < maxOTPAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate otp code: %w", err)
		}

		if _, err := store.OTPs().DeleteExpiredByCode(ctx, code, now.Add(-s.grace)); err != nil {
			return nil, err
		}

		_, err = store.OTPs().GetByCode(ctx, code)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		otp := &domain.OTP{
			Code:      code,
			ExpiresAt: now.Add(s.ttl),
			UserID:    userID,
			CreatedAt: now,
		}
		if err := store.OTPs().Create(ctx, otp); err != nil {
			return nil, err
		}
		return otp, nil
	}

	return nil, ErrOTPSpaceExhausted
}

// ConsumeOTP verifies the owner of a code and deletes the code, atomically
func (s *VerificationService) ConsumeOTP(ctx context.Context, code int) (*domain.User, error) {
	otp, err := s.store.OTPs().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, err
	}

	if otp.IsExpired(s.now()) {
		return nil, domain.ErrCodeExpired
	}

	var user *domain.User
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.OTPs().Delete(ctx, otp.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// consumed by a concurrent request
				return domain.ErrInvalidCode
			}
			return err
		}

		user, err = tx.Users().MarkVerified(ctx, otp.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// RequestResend issues a new code for a user that is still unverified
func (s *VerificationService) RequestResend(ctx context.Context, user *domain.User) (*domain.OTP, error) {
	if user.IsVerified {
		return nil, domain.ErrAlreadyVerified
	}
	return s.IssueOTP(ctx, s.store, user.ID)
}

// generateOTPCode draws a uniform code in [otpMin, otpMax]
func generateOTPCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + otpMin, nil
}
