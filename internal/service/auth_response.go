package service

import (
	"fmt"

	"github.com/prperemyshlev/otp-auth-service/internal/domain"
)

const tokenTypeBearer = "Bearer"

// LoginResult contains the logged in user and a fresh token pair
type LoginResult struct {
	User   *domain.User
	Tokens domain.TokenPair
}

// AccessTokenResult contains a newly minted access token
type AccessTokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
}

// generateTokenPair signs an access and a refresh token for the user
func (s *authService) generateTokenPair(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.SignAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokens.SignRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    s.tokens.AccessTokenExpiry(),
	}, nil
}
