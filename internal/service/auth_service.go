package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/otp-auth-service/internal/domain"
	"github.com/prperemyshlev/otp-auth-service/internal/dto"
	"github.com/prperemyshlev/otp-auth-service/internal/mailer"
	"github.com/prperemyshlev/otp-auth-service/internal/repository"
	"github.com/prperemyshlev/otp-auth-service/internal/utils"
	"go.uber.org/zap"
)

// authService implements AuthService interface
type authService struct {
	store         repository.Store
	tokens        TokenManager
	hasher        Hasher
	mailer        mailer.Mailer
	blacklist     BlacklistCache
	verification  *VerificationService
	passwordReset *PasswordResetService
	logger        *zap.Logger
	now           func() time.Time
}

// NewAuthService creates a new auth service. blacklist may be nil, in
// which case every revocation check goes to the store.
func NewAuthService(
	store repository.Store,
	tokens TokenManager,
	hasher Hasher,
	mailer mailer.Mailer,
	blacklist BlacklistCache,
	verification *VerificationService,
	passwordReset *PasswordResetService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		store:         store,
		tokens:        tokens,
		hasher:        hasher,
		mailer:        mailer,
		blacklist:     blacklist,
		verification:  verification,
		passwordReset: passwordReset,
		logger:        logger,
		now:           time.Now,
	}
}

// Signup registers a new unverified user and mails the first verification code
func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*domain.User, error) {
	username := utils.SanitizeUsername(req.Username)
	if username == "" {
		return nil, domain.NewValidationError("Username is required")
	}
	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, domain.NewValidationError("Invalid email address")
	}

	// Check if user already exists
	_, err := s.store.Users().GetByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, domain.ErrUserExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, internal("failed to check user existence", err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, errPasswordTooLong
	}
	if err != nil {
		return nil, internal("failed to hash password", err)
	}

	user := &domain.User{
		Username: username,
		Email:    email,
		Password: &passwordHash,
	}

	var otp *domain.OTP
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConstraintViolation) {
				return domain.ErrUserExists.Wrap(err)
			}
			return err
		}

		if err := tx.Profiles().Create(ctx, &domain.Profile{UserID: user.ID}); err != nil {
			return err
		}

		var err error
		otp, err = s.verification.IssueOTP(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, internal("failed to create user", err)
	}

	user.Password = nil

	if err := s.mailer.SendOTP(ctx, mailer.OTPMessage{Email: user.Email, Name: user.Username, Code: otp.Code}); err != nil {
		s.logger.Warn("Failed to send otp email",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return user, domain.ErrDeliveryError.Wrap(err)
	}

	return user, nil
}

// VerifyOTP marks the owner of a code as verified and sends the welcome email
func (s *authService) VerifyOTP(ctx context.Context, code int) (*domain.User, error) {
	user, err := s.verification.ConsumeOTP(ctx, code)
	if err != nil {
		return nil, internal("failed to verify otp", err)
	}

	user.Password = nil

	if err := s.mailer.SendWelcome(ctx, mailer.WelcomeMessage{Email: user.Email, Name: user.Username}); err != nil {
		s.logger.Warn("Failed to send welcome email",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return user, domain.ErrDeliveryError.Wrap(err)
	}

	return user, nil
}

// RequestNewOTP mails a fresh code to an unverified user
func (s *authService) RequestNewOTP(ctx context.Context, email string) error {
	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	otp, err := s.verification.RequestResend(ctx, user)
	if err != nil {
		return internal("failed to issue otp", err)
	}

	if err := s.mailer.SendOTP(ctx, mailer.OTPMessage{Email: user.Email, Name: user.Username, Code: otp.Code}); err != nil {
		s.logger.Warn("Failed to send otp email",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return domain.ErrDeliveryError.Wrap(err)
	}

	return nil
}

// Login authenticates a user by email and password
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*LoginResult, error) {
	user, err := s.getUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if !user.IsVerified {
		return nil, domain.ErrNotVerified
	}

	if !user.HasPassword() || !s.hasher.Compare(req.Password, *user.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	if err := checkAccountStatus(user); err != nil {
		return nil, err
	}

	updated, err := s.store.Users().UpdateLastLogin(ctx, user.ID, s.now())
	if err != nil {
		return nil, internal("failed to update last login", err)
	}

	tokens, err := s.generateTokenPair(updated)
	if err != nil {
		return nil, internal("failed to issue tokens", err)
	}

	updated.Password = nil

	return &LoginResult{User: updated, Tokens: *tokens}, nil
}

// Logout revokes a refresh token. A second logout with the same token fails.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.ErrInvalidToken.Wrap(err)
	}

	err = s.store.BlacklistedTokens().Create(ctx, &domain.BlacklistedToken{Token: refreshToken})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateBlacklistedToken) {
			return domain.ErrAlreadyBlacklisted
		}
		return internal("failed to blacklist token", err)
	}

	if s.blacklist != nil {
		ttl := claims.ExpiresAt.Sub(s.now())
		if err := s.blacklist.Add(ctx, refreshToken, ttl); err != nil {
			s.logger.Warn("Failed to cache blacklisted token", zap.Error(err))
		}
	}

	return nil
}

// RefreshAccessToken mints a new access token. The refresh token is not rotated.
func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (*AccessTokenResult, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidToken.Wrap(err)
	}

	revoked, err := s.isBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, internal("failed to check blacklist", err)
	}
	if revoked {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, internal("failed to get user", err)
	}

	if !user.IsVerified {
		return nil, domain.ErrNotVerified
	}
	if err := checkAccountStatus(user); err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.SignAccess(user.ID)
	if err != nil {
		return nil, internal("failed to generate access token", err)
	}

	return &AccessTokenResult{
		AccessToken: accessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   s.tokens.AccessTokenExpiry(),
	}, nil
}

// ResetPassword mails a recovery link to the account owner
func (s *authService) ResetPassword(ctx context.Context, email string) error {
	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	_, resetURL, err := s.passwordReset.IssueResetToken(ctx, user)
	if err != nil {
		return internal("failed to issue reset token", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		s.logger.Warn("Failed to send password reset email",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return domain.ErrDeliveryError.Wrap(err)
	}

	return nil
}

// ResetPasswordConfirm sets a new password using a reset token
func (s *authService) ResetPasswordConfirm(ctx context.Context, req *dto.ResetPasswordConfirmRequest) error {
	err := s.passwordReset.ConsumeResetToken(ctx, req.Token, req.UserID, req.NewPassword)
	if err != nil {
		return internal("failed to reset password", err)
	}
	return nil
}

// Authenticate resolves the user behind an access token
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	revoked, err := s.isBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, internal("failed to check blacklist", err)
	}
	if revoked {
		return nil, domain.ErrUnauthorized
	}

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, internal("failed to verify access token", err)
	}

	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, internal("failed to get user", err)
	}

	if !user.IsVerified {
		return nil, domain.ErrNotVerified
	}
	if err := checkAccountStatus(user); err != nil {
		return nil, err
	}

	user.Password = nil
	return user, nil
}

// GetProfile returns the user together with their profile
func (s *authService) GetProfile(ctx context.Context, user *domain.User) (*dto.MeResponse, error) {
	profile, err := s.store.Profiles().GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, internal("failed to get profile", err)
	}

	return &dto.MeResponse{User: user, Profile: profile}, nil
}

func (s *authService) getUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, internal("failed to get user", err)
	}
	return user, nil
}

// isBlacklisted asks the cache first and falls back to the store on a miss or cache error
func (s *authService) isBlacklisted(ctx context.Context, token string) (bool, error) {
	if s.blacklist != nil {
		hit, err := s.blacklist.Contains(ctx, token)
		if err != nil {
			s.logger.Warn("Blacklist cache unavailable", zap.Error(err))
		} else if hit {
			return true, nil
		}
	}

	_, err := s.store.BlacklistedTokens().GetByToken(ctx, token)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func checkAccountStatus(user *domain.User) error {
	if user.IsBlocked {
		return domain.ErrBlocked
	}
	if user.IsDeleted {
		return domain.ErrDeletedAccount
	}
	return nil
}

var errPasswordTooLong = domain.NewValidationError("Password must be at most 72 bytes long")

// internal passes domain errors through and wraps everything else as Internal
func internal(msg string, err error) error {
	var appErr *domain.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.Internal(fmt.Errorf("%s: %w", msg, err))
}
