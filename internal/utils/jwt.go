package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/otp-auth-service/internal/domain"
)

type tokenClaims struct {
	UserID string           `json:"userId"`
	Type   domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// JWTManager manages JWT token operations
type JWTManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// JWTOption configures a JWTManager
type JWTOption func(*JWTManager)

// WithClock overrides the time source used for issuing and verifying tokens
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWTManager) {
		j.now = now
	}
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTokenExpiry, refreshTokenExpiry time.Duration, opts ...JWTOption) *JWTManager {
	j := &JWTManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// SignAccess generates a new access token
func (j *JWTManager) SignAccess(userID string) (string, error) {
	return j.sign(userID, domain.TokenTypeAccess, j.accessTokenExpiry)
}

// SignRefresh generates a new refresh token
func (j *JWTManager) SignRefresh(userID string) (string, error) {
	return j.sign(userID, domain.TokenTypeRefresh, j.refreshTokenExpiry)
}

func (j *JWTManager) sign(userID string, tokenType domain.TokenType, ttl time.Duration) (string, error) {
	now := j.now()
	claims := tokenClaims{
		UserID: userID,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// Verify checks signature, expiry and type of a token.
// Expired tokens yield domain.ErrTokenExpired, every other failure domain.ErrInvalidToken.
func (j *JWTManager) Verify(tokenString string, tokenType domain.TokenType) (*domain.TokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired.Wrap(err)
		}
		return nil, domain.ErrInvalidToken.Wrap(err)
	}

	if claims.Type != tokenType {
		return nil, domain.ErrInvalidToken.Wrap(fmt.Errorf("expected %s token, got %q", tokenType, claims.Type))
	}
	if claims.UserID == "" {
		return nil, domain.ErrInvalidToken.Wrap(errors.New("missing userId claim"))
	}

	result := &domain.TokenClaims{
		UserID: claims.UserID,
		Type:   claims.Type,
		ID:     claims.ID,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}

// VerifyAccess verifies an access token
func (j *JWTManager) VerifyAccess(tokenString string) (*domain.TokenClaims, error) {
	return j.Verify(tokenString, domain.TokenTypeAccess)
}

// VerifyRefresh verifies a refresh token
func (j *JWTManager) VerifyRefresh(tokenString string) (*domain.TokenClaims, error) {
	return j.Verify(tokenString, domain.TokenTypeRefresh)
}

// AccessTokenExpiry returns the access token lifetime in seconds
func (j *JWTManager) AccessTokenExpiry() int {
	return int(j.accessTokenExpiry.Seconds())
}
