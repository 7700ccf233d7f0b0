package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prperemyshlev/otp-auth-service/internal/mailer"
	"github.com/prperemyshlev/otp-auth-service/internal/utils"
	"go.uber.org/zap"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", fmt.Errorf("failed to hash password: %w", utils.ErrPasswordTooLong)
	}
	return "hashed:" + password, nil
}

func (fakeHasher) Compare(password, hash string) bool {
	return hash == "hashed:"+password
}

type sentReset struct {
	Email string
	URL   string
}

type fakeMailer struct {
	mu       sync.Mutex
	otps     []mailer.OTPMessage
	welcomes []mailer.WelcomeMessage
	resets   []sentReset
	err      error
}

func (m *fakeMailer) SendOTP(ctx context.Context, msg mailer.OTPMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.otps = append(m.otps, msg)
	return nil
}

func (m *fakeMailer) SendWelcome(ctx context.Context, msg mailer.WelcomeMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.welcomes = append(m.welcomes, msg)
	return nil
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, email, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.resets = append(m.resets, sentReset{Email: email, URL: url})
	return nil
}

func (m *fakeMailer) lastOTP() mailer.OTPMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otps[len(m.otps)-1]
}

func (m *fakeMailer) lastReset() sentReset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[len(m.resets)-1]
}

func (m *fakeMailer) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]time.Duration
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]time.Duration{}}
}

func (c *fakeCache) Add(ctx context.Context, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[token] = ttl
	return nil
}

func (c *fakeCache) Contains(ctx context.Context, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	_, ok := c.entries[token]
	return ok, nil
}

type testEnv struct {
	store        *memStore
	mailer       *fakeMailer
	cache        *fakeCache
	clock        *testClock
	tokens       *utils.JWTManager
	verification *VerificationService
	reset        *PasswordResetService
	svc          *authService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := newMemStore()
	mail := &fakeMailer{}
	cache := newFakeCache()
	tokens := utils.NewJWTManager(testJWTSecret, 5*time.Minute, 14*24*time.Hour, utils.WithClock(clock.Now))

	verification := NewVerificationService(store, 5*time.Minute, time.Hour)
	verification.now = clock.Now

	reset := NewPasswordResetService(store, fakeHasher{}, 2*time.Hour, "http://localhost:3000/")
	reset.now = clock.Now

	svc := NewAuthService(store, tokens, fakeHasher{}, mail, cache, verification, reset, zap.NewNop()).(*authService)
	svc.now = clock.Now

	return &testEnv{
		store:        store,
		mailer:       mail,
		cache:        cache,
		clock:        clock,
		tokens:       tokens,
		verification: verification,
		reset:        reset,
		svc:          svc,
	}
}

// sequence returns the given codes in order, then fails
func sequence(codes ...int) func() (int, error) {
	i := 0
	return func() (int, error) {
		if i >= len(codes) {
			return 0, errors.New("sequence exhausted")
		}
		c := codes[i]
		i++
		return c, nil
	}
}

func queryParam(t *testing.T, rawURL, key string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("invalid url %q: %v", rawURL, err)
	}
	return u.Query().Get(key)
}
