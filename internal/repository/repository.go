package repository

import (
	"context"

	"github.com/prperemyshlev/otp-auth-service/pkg/database"
)

// Repositories holds all repositories bound to one connection or transaction
type Repositories struct {
	postgres *database.Postgres
	inTx     bool

	user       UserRepository
	profile    ProfileRepository
	otp        OTPRepository
	resetToken ResetTokenRepository
	blacklist  BlacklistRepository
}

var _ Store = (*Repositories)(nil)

// NewRepositories creates all repositories
func NewRepositories(postgres *database.Postgres) *Repositories {
	return newRepositories(postgres, postgres.DB, false)
}

func newRepositories(postgres *database.Postgres, db database.DBTX, inTx bool) *Repositories {
	return &Repositories{
		postgres:   postgres,
		inTx:       inTx,
		user:       NewUserRepository(db),
		profile:    NewProfileRepository(db),
		otp:        NewOTPRepository(db),
		resetToken: NewResetTokenRepository(db),
		blacklist:  NewBlacklistRepository(db),
	}
}

func (r *Repositories) Users() UserRepository {
	return r.user
}

func (r *Repositories) Profiles() ProfileRepository {
	return r.profile
}

func (r *Repositories) OTPs() OTPRepository {
	return r.otp
}

func (r *Repositories) ResetTokens() ResetTokenRepository {
	return r.resetToken
}

func (r *Repositories) BlacklistedTokens() BlacklistRepository {
	return r.blacklist
}

// WithTx runs fn with repositories bound to a single transaction.
// Nested calls reuse the outer transaction.
func (r *Repositories) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if r.inTx {
		return fn(ctx, r)
	}

	return r.postgres.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		return fn(ctx, newRepositories(r.postgres, tx, true))
	})
}
