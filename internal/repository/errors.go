package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrConstraintViolation is the root of all uniqueness conflicts
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = fmt.Errorf("user with this email already exists: %w", ErrConstraintViolation)

	// ErrDuplicateUsername is returned when trying to create a user with an existing username
	ErrDuplicateUsername = fmt.Errorf("user with this username already exists: %w", ErrConstraintViolation)

	// ErrDuplicateOTPCode is returned when a generated code is already held by another row
	ErrDuplicateOTPCode = fmt.Errorf("otp with this code already exists: %w", ErrConstraintViolation)

	// ErrDuplicateResetToken is returned when a reset token value already exists
	ErrDuplicateResetToken = fmt.Errorf("reset token already exists: %w", ErrConstraintViolation)

	// ErrDuplicateBlacklistedToken is returned when the token is already blacklisted
	ErrDuplicateBlacklistedToken = fmt.Errorf("token already blacklisted: %w", ErrConstraintViolation)

	// ErrDuplicateProfile is returned when the user already has a profile
	ErrDuplicateProfile = fmt.Errorf("profile already exists: %w", ErrConstraintViolation)
)

const uniqueViolation = "23505"

// uniqueViolationConstraint returns the violated constraint name if err is a
// PostgreSQL unique_violation.
func uniqueViolationConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
