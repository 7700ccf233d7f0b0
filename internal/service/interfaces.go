package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/otp-auth-service/internal/domain"
	"github.com/prperemyshlev/otp-auth-service/internal/dto"
)

// AuthService defines methods for the account and session lifecycle.
// Every returned error is a *domain.Error.
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*domain.User, error)
	VerifyOTP(ctx context.Context, code int) (*domain.User, error)
	RequestNewOTP(ctx context.Context, email string) error
	Login(ctx context.Context, req *dto.LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*AccessTokenResult, error)
	ResetPassword(ctx context.Context, email string) error
	ResetPasswordConfirm(ctx context.Context, req *dto.ResetPasswordConfirmRequest) error
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
	GetProfile(ctx context.Context, user *domain.User) (*dto.MeResponse, error)
}

// Hasher hashes and checks passwords
type Hasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) bool
}

// TokenManager signs and verifies access and refresh tokens
type TokenManager interface {
	SignAccess(userID string) (string, error)
	SignRefresh(userID string) (string, error)
	VerifyAccess(token string) (*domain.TokenClaims, error)
	VerifyRefresh(token string) (*domain.TokenClaims, error)
	AccessTokenExpiry() int
}

// BlacklistCache is a fast negative-lookup layer in front of the stored blacklist
type BlacklistCache interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}
