package dto

import "encoding/json"

// SignupRequest represents a signup request
type SignupRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// RefreshTokenRequest carries a refresh token. The token may also arrive
// in the refresh_token cookie, so the field is optional at bind time.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ResetPasswordRequest starts password recovery
type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordConfirmRequest completes password recovery
type ResetPasswordConfirmRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// VerifyOTPRequest accepts the code as a JSON number or a numeric string
type VerifyOTPRequest struct {
	Code json.Number `json:"code" binding:"required,numeric,len=6"`
}

// ResendOTPRequest asks for a fresh verification code
type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}
