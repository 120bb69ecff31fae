package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/donorhub/authcore/mailer"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "Abcd1234!"
	testName     = "Alice"
)

type mockDirectory struct {
	mu      sync.Mutex
	users   map[string]UserRecord
	byEmail map[string]string

	createErr error
	updateErr error

	findByEmailCalls int
	findByIDCalls    int
	createCalls      int
	updateCalls      int
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		users:   make(map[string]UserRecord),
		byEmail: make(map[string]string),
	}
}

func (m *mockDirectory) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByEmailCalls++

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *mockDirectory) FindByID(ctx context.Context, id string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByIDCalls++

	user, ok := m.users[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (m *mockDirectory) Create(ctx context.Context, record UserRecord) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}

	key := strings.ToLower(record.Email)
	if _, exists := m.byEmail[key]; exists {
		return UserRecord{}, ErrDuplicateEmail
	}
	if record.ID == "" {
		record.ID = fmt.Sprintf("u%d", len(m.users)+1)
	}
	m.users[record.ID] = record
	m.byEmail[key] = record.ID
	return record, nil
}

func (m *mockDirectory) Update(ctx context.Context, id string, patch UserPatch) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	if m.updateErr != nil {
		return UserRecord{}, m.updateErr
	}

	user, ok := m.users[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	if patch.IsEmailVerified != nil {
		user.IsEmailVerified = *patch.IsEmailVerified
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	if patch.LastLoginAt != nil {
		user.LastLoginAt = patch.LastLoginAt
	}
	if patch.EmailVerifiedAt != nil {
		user.EmailVerifiedAt = patch.EmailVerifiedAt
	}
	user.UpdatedAt = time.Now()
	m.users[id] = user
	return user, nil
}

// seed inserts a verified, active user directly, bypassing Register.
func (m *mockDirectory) seed(record UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[record.ID] = record
	m.byEmail[strings.ToLower(record.Email)] = record.ID
}

type testHarness struct {
	engine *Engine
	dir    *mockDirectory
	mail   *mailer.Recorder
	mini   *miniredis.Miniredis
	redis  *redis.Client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.SigningSecret = []byte("test-secret")
	// Fast argon2 parameters so the suite stays quick.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestHarness(t *testing.T, mutate func(*Config)) *testHarness {
	t.Helper()

	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	dir := newMockDirectory()
	mail := mailer.NewRecorder()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(dir).
		WithMailer(mail).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testHarness{
		engine: engine,
		dir:    dir,
		mail:   mail,
		mini:   mini,
		redis:  client,
	}
}

// registerVerified runs the full register+verify flow and returns the user id.
func (h *testHarness) registerVerified(t *testing.T) string {
	t.Helper()

	result, err := h.engine.Register(context.Background(), RegisterRequest{
		Email:    testEmail,
		Password: testPassword,
		Name:     testName,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	code := h.waitForCode(t, testEmail, MailPurposeVerification)
	if err := h.engine.VerifyEmail(context.Background(), testEmail, code); err != nil {
		t.Fatalf("verify email: %v", err)
	}

	return result.Profile.ID
}

// waitForCode polls the mail recorder for the latest code sent to email
// with the given purpose. Mail dispatch is asynchronous.
func (h *testHarness) waitForCode(t *testing.T, email, purpose string) string {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		deliveries := h.mail.Deliveries()
		for i := len(deliveries) - 1; i >= 0; i-- {
			d := deliveries[i]
			if d.ToEmail == email && d.Purpose == purpose {
				return d.Code
			}
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("no %s mail delivered to %s", purpose, email)
	return ""
}

func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
