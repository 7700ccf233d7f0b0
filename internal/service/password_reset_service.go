package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/prperemyshlev/otp-auth-service/internal/domain"
	"github.com/prperemyshlev/otp-auth-service/internal/repository"
	"github.com/prperemyshlev/otp-auth-service/internal/utils"
)

const resetTokenBytes = 32

// PasswordResetService issues and consumes password reset tokens
type PasswordResetService struct {
	store         repository.Store
	hasher        Hasher
	ttl           time.Duration
	clientBaseURL string
	now           func() time.Time
}

// NewPasswordResetService creates a new password reset service.
// clientBaseURL is the frontend origin the recovery link points to.
func NewPasswordResetService(store repository.Store, hasher Hasher, ttl time.Duration, clientBaseURL string) *PasswordResetService {
	return &PasswordResetService{
		store:         store,
		hasher:        hasher,
		ttl:           ttl,
		clientBaseURL: clientBaseURL,
		now:           time.Now,
	}
}

// IssueResetToken persists a new token for the user and returns it with the recovery URL
func (s *PasswordResetService) IssueResetToken(ctx context.Context, user *domain.User) (*domain.ResetPasswordToken, string, error) {
	secret, err := generateResetToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	now := s.now()
	token := &domain.ResetPasswordToken{
		Token:     secret,
		ExpiresAt: now.Add(s.ttl),
		UserID:    user.ID,
		CreatedAt: now,
	}
	if err := s.store.ResetTokens().Create(ctx, token); err != nil {
		return nil, "", err
	}

	resetURL, err := s.resetURL(token.Token, user.ID)
	if err != nil {
		return nil, "", err
	}

	return token, resetURL, nil
}

// ConsumeResetToken sets a new password for the token owner and burns the token.
// The password is updated before the token is deleted, both in one transaction.
func (s *PasswordResetService) ConsumeResetToken(ctx context.Context, secret, userID, newPassword string) error {
	token, err := s.store.ResetTokens().GetByToken(ctx, secret)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		return err
	}

	if token.IsExpired(s.now()) {
		return domain.ErrTokenExpired
	}

	if token.UserID != userID {
		return domain.ErrForgedRequest
	}

	hash, err := s.hasher.Hash(newPassword)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return errPasswordTooLong
	}
	if err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().UpdatePassword(ctx, userID, hash); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}

		if err := tx.ResetTokens().Delete(ctx, token.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrInvalidToken
			}
			return err
		}
		return nil
	})
}

func (s *PasswordResetService) resetURL(token, userID string) (string, error) {
	base, err := url.Parse(s.clientBaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid client base url %q: %w", s.clientBaseURL, err)
	}

	u := base.JoinPath("reset-password")
	q := url.Values{}
	q.Set("token", token)
	q.Set("userId", userID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
