package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/otp-auth-service/internal/domain"
	"github.com/prperemyshlev/otp-auth-service/internal/repository"
)

// memStore is an in-memory repository.Store. WithTx restores the previous
// state when fn fails, so atomicity can be asserted.
type memStore struct {
	mu    sync.Mutex
	state *memState
	fail  map[string]error
}

type memState struct {
	users       map[string]domain.User
	profiles    map[string]domain.Profile
	otps        map[string]domain.OTP
	resetTokens map[string]domain.ResetPasswordToken
	blacklist   map[string]domain.BlacklistedToken
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			users:       map[string]domain.User{},
			profiles:    map[string]domain.Profile{},
			otps:        map[string]domain.OTP{},
			resetTokens: map[string]domain.ResetPasswordToken{},
			blacklist:   map[string]domain.BlacklistedToken{},
		},
		fail: map[string]error{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:       make(map[string]domain.User, len(s.users)),
		profiles:    make(map[string]domain.Profile, len(s.profiles)),
		otps:        make(map[string]domain.OTP, len(s.otps)),
		resetTokens: make(map[string]domain.ResetPasswordToken, len(s.resetTokens)),
		blacklist:   make(map[string]domain.BlacklistedToken, len(s.blacklist)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.otps {
		c.otps[k] = v
	}
	for k, v := range s.resetTokens {
		c.resetTokens[k] = v
	}
	for k, v := range s.blacklist {
		c.blacklist[k] = v
	}
	return c
}

// failOn makes the named operation return err, e.g. "profiles.create"
func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

func (s *memStore) injected(op string) error {
	return s.fail[op]
}

func (s *memStore) Users() repository.UserRepository             { return memUsers{s} }
func (s *memStore) Profiles() repository.ProfileRepository       { return memProfiles{s} }
func (s *memStore) OTPs() repository.OTPRepository               { return memOTPs{s} }
func (s *memStore) ResetTokens() repository.ResetTokenRepository { return memResetTokens{s} }
func (s *memStore) BlacklistedTokens() repository.BlacklistRepository {
	return memBlacklist{s}
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// test accessors

func (s *memStore) user(id string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.users[id]
}

func (s *memStore) putUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	s.state.users[u.ID] = u
}

func (s *memStore) otpsFor(userID string) []domain.OTP {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OTP
	for _, o := range s.state.otps {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out
}

func (s *memStore) putOTP(o domain.OTP) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	s.state.otps[o.ID] = o
}

func (s *memStore) resetTokensFor(userID string) []domain.ResetPasswordToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ResetPasswordToken
	for _, t := range s.state.resetTokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) putResetToken(t domain.ResetPasswordToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	s.state.resetTokens[t.ID] = t
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.users)
}

func (s *memStore) profileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.profiles)
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.create"); err != nil {
		return err
	}
	for _, u := range r.s.state.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.state.users[user.ID] = cloneUser(*user)
	return nil
}

func (r memUsers) find(match func(domain.User) bool, what string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.get"); err != nil {
		return nil, err
	}
	for _, u := range r.s.state.users {
		if match(u) {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", what, repository.ErrNotFound)
}

func (r memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id }, id)
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email }, email)
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username }, username)
}

func (r memUsers) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username || u.Email == email }, username)
}

func (r memUsers) update(id string, fn func(*domain.User)) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.state.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	r.s.state.users[id] = u
	c := cloneUser(u)
	return &c, nil
}

func (r memUsers) MarkVerified(ctx context.Context, userID string) (*domain.User, error) {
	if err := r.s.injected("users.mark_verified"); err != nil {
		return nil, err
	}
	return r.update(userID, func(u *domain.User) { u.IsVerified = true })
}

func (r memUsers) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if err := r.s.injected("users.update_password"); err != nil {
		return err
	}
	_, err := r.update(userID, func(u *domain.User) { u.Password = &passwordHash })
	return err
}

func (r memUsers) UpdateLastLogin(ctx context.Context, userID string, at time.Time) (*domain.User, error) {
	return r.update(userID, func(u *domain.User) { u.LastLogin = &at })
}

func cloneUser(u domain.User) domain.User {
	if u.Password != nil {
		p := *u.Password
		u.Password = &p
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return u
}

type memProfiles struct{ s *memStore }

func (r memProfiles) Create(ctx context.Context, profile *domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("profiles.create"); err != nil {
		return err
	}
	if _, ok := r.s.state.profiles[profile.UserID]; ok {
		return repository.ErrDuplicateProfile
	}
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	profile.CreatedAt = time.Now()
	r.s.state.profiles[profile.UserID] = *profile
	return nil
}

func (r memProfiles) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.state.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

type memOTPs struct{ s *memStore }

func (r memOTPs) Create(ctx context.Context, otp *domain.OTP) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("otps.create"); err != nil {
		return err
	}
	for _, o := range r.s.state.otps {
		if o.Code == otp.Code {
			return repository.ErrDuplicateOTPCode
		}
	}
	if otp.ID == "" {
		otp.ID = uuid.New().String()
	}
	r.s.state.otps[otp.ID] = *otp
	return nil
}

func (r memOTPs) GetByCode(ctx context.Context, code int) (*domain.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.state.otps {
		if o.Code == code {
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memOTPs) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.otps[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.state.otps, id)
	return nil
}

func (r memOTPs) DeleteExpiredByCode(ctx context.Context, code int, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, o := range r.s.state.otps {
		if o.Code == code && o.ExpiresAt.Before(before) {
			delete(r.s.state.otps, id)
			n++
		}
	}
	return n, nil
}

func (r memOTPs) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, o := range r.s.state.otps {
		if o.ExpiresAt.Before(before) {
			delete(r.s.state.otps, id)
			n++
		}
	}
	return n, nil
}

type memResetTokens struct{ s *memStore }

func (r memResetTokens) Create(ctx context.Context, token *domain.ResetPasswordToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.state.resetTokens {
		if t.Token == token.Token {
			return repository.ErrDuplicateResetToken
		}
	}
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	r.s.state.resetTokens[token.ID] = *token
	return nil
}

func (r memResetTokens) GetByToken(ctx context.Context, token string) (*domain.ResetPasswordToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.state.resetTokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memResetTokens) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("reset_tokens.delete"); err != nil {
		return err
	}
	if _, ok := r.s.state.resetTokens[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.state.resetTokens, id)
	return nil
}

func (r memResetTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.state.resetTokens {
		if t.ExpiresAt.Before(before) {
			delete(r.s.state.resetTokens, id)
			n++
		}
	}
	return n, nil
}

type memBlacklist struct{ s *memStore }

func (r memBlacklist) Create(ctx context.Context, token *domain.BlacklistedToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.blacklist[token.Token]; ok {
		return repository.ErrDuplicateBlacklistedToken
	}
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	r.s.state.blacklist[token.Token] = *token
	return nil
}

func (r memBlacklist) GetByToken(ctx context.Context, token string) (*domain.BlacklistedToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("blacklist.get"); err != nil {
		return nil, err
	}
	t, ok := r.s.state.blacklist[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}
