package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/otp-auth-service/internal/domain"
	"github.com/prperemyshlev/otp-auth-service/internal/dto"
	"github.com/prperemyshlev/otp-auth-service/internal/service"
	"github.com/prperemyshlev/otp-auth-service/pkg/observability"
)

const refreshTokenCookie = "refresh_token"

// CookieConfig controls the refresh token cookie set on login
type CookieConfig struct {
	Path   string
	MaxAge int
	Secure bool
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService service.AuthService
	errors      *ErrorRenderer
	metrics     *observability.AuthMetrics
	cookie      CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, errors *ErrorRenderer, metrics *observability.AuthMetrics, cookie CookieConfig) *AuthHandler {
	useJSONFieldNames()
	return &AuthHandler{
		authService: authService,
		errors:      errors,
		metrics:     metrics,
		cookie:      cookie,
	}
}

// Signup handles user registration
// @Summary Register a new user
// @Description Create an unverified account and email a verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "Signup request"
// @Success 201 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, "signup", err)
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), &req)
	if h.fail(c, "signup", err) {
		return
	}

	c.JSON(http.StatusCreated, dto.SuccessResponse{
		Status:  dto.StatusSuccess,
		Message: "User signed up successfully",
		Data:    user,
	})
}

// Login handles user login
// @Summary Login user
// @Description Authenticate a verified user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, "login", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if h.fail(c, "login", err) {
		return
	}

	// Set refresh token in httpOnly cookie
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshTokenCookie, result.Tokens.RefreshToken, h.cookie.MaxAge, h.cookie.Path, "", h.cookie.Secure, true)

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Status:  dto.StatusSuccess,
		Message: "User logged in successfully",
		Data: dto.LoginResponse{
			User:         result.User,
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
			TokenType:    result.Tokens.TokenType,
			ExpiresIn:    result.Tokens.ExpiresIn,
		},
	})
}

// Logout handles user logout
// @Summary Logout user
// @Description Blacklist the refresh token
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest false "Refresh token, defaults to the refresh_token cookie"
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, err := refreshTokenFrom(c)
	if err != nil {
		h.bindFailed(c, "logout", err)
		return
	}

	err = h.authService.Logout(c.Request.Context(), refreshToken)
	if h.fail(c, "logout", err) {
		return
	}

	// Clear refresh token cookie
	c.SetCookie(refreshTokenCookie, "", -1, h.cookie.Path, "", h.cookie.Secure, true)

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Status:  dto.StatusSuccess,
		Message: "Logged out successfully",
	})
}

// RefreshToken handles access token refresh
// @Summary Refresh access token
// @Description Mint a new access token from a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest false "Refresh token, defaults to the refresh_token cookie"
// @Success 200 {object} dto.AccessTokenResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	refreshToken, err := refreshTokenFrom(c)
	if err != nil {
		h.bindFailed(c, "refresh", err)
		return
	}

	result, err := h.authService.RefreshAccessToken(c.Request.Context(), refreshToken)
	if h.fail(c, "refresh", err) {
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Status:  dto.StatusSuccess,
		Message: "Access token refreshed successfully",
		Data: dto.AccessTokenResponse{
			AccessToken: result.AccessToken,
			TokenType:   result.TokenType,
			ExpiresIn:   result.ExpiresIn,
		},
	})
}

// ResetPassword handles password reset requests
// @Summary Request a password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, "reset_password", err)
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), req.Email)
	if h.fail(c, "reset_password", err) {
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Status:  dto.StatusSuccess,
		Message: "Reset token sent successfully",
	})
}

// ResetPasswordConfirm handles setting a new password
// @Summary Confirm a password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordConfirmRequest true "Confirm request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/reset-password-confirm [post]
func (h *AuthHandler) ResetPasswordConfirm(c *gin.Context) {
	var req dto.ResetPasswordConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, "reset_password_confirm", err)
		return
	}

	err := h.authService.ResetPasswordConfirm(c.Request.Context(), &req)
	if h.fail(c, "reset_password_confirm", err) {
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Status:  dto.StatusSuccess,
		Message: "Password reset successfully",
	})
}

// VerifyOTP handles email verification
// @Summary Verify an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VerifyOTPRequest true "Verification code"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, "verify_otp", err)
		return
	}

	code, err := strconv.Atoi(req.Code.String())
	if err != nil {
		h.bindFailed(c, "verify_otp", domain.NewValidationError("Invalid OTP code, must be 6 digits long"))
		return
	}

	_, err = h.authService.VerifyOTP(c.Request.Context(), code)
	if h.fail(c, "verify_otp", err) {
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Status:  dto.StatusSuccess,
		Message: "User verified successfully",
	})
}

// ResendOTP handles verification code resend
// @Summary Resend a verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResendOTPRequest true "Resend request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/resend-otp [post]
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req dto.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, "resend_otp", err)
		return
	}

	err := h.authService.RequestNewOTP(c.Request.Context(), req.Email)
	if h.fail(c, "resend_otp", err) {
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Status:  dto.StatusSuccess,
		Message: "OTP sent successfully",
	})
}

// GetMe handles getting current user profile
// @Summary Get current user profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.MeResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		h.errors.Render(c, domain.ErrUnauthorized)
		return
	}

	me, err := h.authService.GetProfile(c.Request.Context(), user)
	if h.fail(c, "me", err) {
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Status:  dto.StatusSuccess,
		Message: "Current user",
		Data:    me,
	})
}

// fail renders err if present and records the outcome
func (h *AuthHandler) fail(c *gin.Context, operation string, err error) bool {
	if err == nil {
		h.metrics.Record(c.Request.Context(), operation, "success")
		return false
	}

	h.metrics.Record(c.Request.Context(), operation, string(domain.AsError(err).Kind))
	h.errors.Render(c, err)
	return true
}

func (h *AuthHandler) bindFailed(c *gin.Context, operation string, err error) {
	h.metrics.Record(c.Request.Context(), operation, string(domain.KindValidationFailed))

	var appErr *domain.Error
	if errors.As(err, &appErr) {
		h.errors.Render(c, appErr)
		return
	}
	h.errors.RenderBindError(c, err)
}

// refreshTokenFrom reads the refresh token from the JSON body, falling back to the cookie
func refreshTokenFrom(c *gin.Context) (string, error) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		token, _ = c.Cookie(refreshTokenCookie)
	}
	if token == "" {
		return "", domain.NewValidationError("Refresh token is required")
	}
	return token, nil
}
