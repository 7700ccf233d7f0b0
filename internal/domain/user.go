package domain

import "time"

// User represents a user in the system
type User struct {
	ID         string     `json:"id" db:"id"`
	Username   string     `json:"username" db:"username"`
	Email      string     `json:"email" db:"email"`
	Password   *string    `json:"-" db:"password"`
	IsVerified bool       `json:"is_verified" db:"is_verified"`
	IsBlocked  bool       `json:"is_blocked" db:"is_blocked"`
	IsDeleted  bool       `json:"is_deleted" db:"is_deleted"`
	LastLogin  *time.Time `json:"last_login" db:"last_login"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// HasPassword reports whether the user has a local credential.
// Accounts created by an external identity provider have none.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}

// Profile is created together with its user and shares its lifetime
type Profile struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OTP is a one-time email verification code
type OTP struct {
	ID        string    `json:"id" db:"id"`
	Code      int       `json:"-" db:"code"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the code is past its expiry at the given moment
func (o OTP) IsExpired(now time.Time) bool {
	return o.ExpiresAt.Before(now)
}

// ResetPasswordToken is a single-use password recovery secret
type ResetPasswordToken struct {
	ID        string    `json:"id" db:"id"`
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsExpired checks if the token is past its expiry at the given moment
func (t ResetPasswordToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// BlacklistedToken records a revoked refresh token
type BlacklistedToken struct {
	ID        string    `json:"id" db:"id"`
	Token     string    `json:"-" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
