package credAuth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/credAuth/internal/shadow"
	"github.com/MrEthical07/credAuth/password"
)

const testIP = "203.0.113.7"

func testBaseProfile() password.Config {
	return password.Config{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func testStrongProfile() password.Config {
	return password.Config{Memory: 16384, Time: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testJWTSecret
	cfg.Password.Base = testBaseProfile()
	cfg.Password.Strong = testStrongProfile()
	cfg.Password.MaxConcurrentHashes = 2
	cfg.Throttle.Whitelist = nil
	cfg.Alert.SiteLink = "https://blog.example/edit-user"
	cfg.Metrics.Enabled = true
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 256
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

/*
====================================
MOCK STORE
====================================
*/

type mockStore struct {
	mu      sync.Mutex
	byID    map[string]*UserRecord
	seq     int
	findErr error
	saveErr error
	saves   int

	// beforeUpdate mutates the stored record once, ahead of the next Update, standing in
	// for a write committed after the caller last read the account.
	beforeUpdate func(*UserRecord)
}

func newMockStore() *mockStore {
	return &mockStore{byID: map[string]*UserRecord{}}
}

func cloneRecord(u *UserRecord) *UserRecord {
	out := *u
	out.IPHistory = append([]IPSighting(nil), u.IPHistory...)
	return &out
}

func (s *mockStore) FindByEmail(_ context.Context, email string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.byID {
		if u.Email == email {
			return cloneRecord(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *mockStore) FindByID(_ context.Context, id string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneRecord(u), nil
}

func (s *mockStore) Create(_ context.Context, user *UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	s.seq++
	user.ID = fmt.Sprintf("u-%d", s.seq)
	s.byID[user.ID] = cloneRecord(user)
	return nil
}

func (s *mockStore) Update(_ context.Context, id string, fn func(*UserRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	stored, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	if hook := s.beforeUpdate; hook != nil {
		s.beforeUpdate = nil
		hook(stored)
	}
	user := cloneRecord(stored)
	if err := fn(user); err != nil {
		return err
	}
	for other, u := range s.byID {
		if other != id && u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	s.saves++
	user.ID = id
	s.byID[id] = cloneRecord(user)
	return nil
}

func (s *mockStore) get(t *testing.T, email string) *UserRecord {
	t.Helper()
	u, err := s.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("find %s: %v", email, err)
	}
	return u
}

/*
====================================
MOCK NOTIFIER
====================================
*/

type mockNotifier struct {
	mu       sync.Mutex
	alerts   []SecurityAlert
	welcomes []string
	err      error
	gate     chan struct{}
}

func (n *mockNotifier) SendSecurityAlert(ctx context.Context, alert SecurityAlert) error {
	if n.gate != nil {
		<-n.gate
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *mockNotifier) SendWelcome(ctx context.Context, email, name string) error {
	if n.gate != nil {
		<-n.gate
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, email)
	return n.err
}

func (n *mockNotifier) fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *mockNotifier) alertCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

/*
====================================
CLOCK AND WAITER
====================================
*/

type testClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
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

// waiter records every delay and returns immediately. The frozen clock makes a floor wait
// its whole duration.
func (c *testClock) waiter() shadow.Waiter {
	return shadow.Waiter{
		After: func(d time.Duration) <-chan time.Time {
			c.mu.Lock()
			c.waits = append(c.waits, d)
			c.mu.Unlock()
			ch := make(chan time.Time, 1)
			ch <- time.Now()
			return ch
		},
		Now: c.Now,
	}
}

func (c *testClock) takeWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.waits
	c.waits = nil
	return out
}

/*
====================================
ENGINE
====================================
*/

type testEngine struct {
	*Engine
	store    *mockStore
	notifier *mockNotifier
	clock    *testClock
	audit    *ChannelSink
	redis    *miniredis.Miniredis
}

func buildTestEngine(t *testing.T, cfg Config, store *mockStore) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	if store == nil {
		store = newMockStore()
	}
	notifier := &mockNotifier{}
	clock := newTestClock()
	sink := NewChannelSink(512)

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithNotifier(notifier).
		WithAuditSink(sink).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.clock = clock.Now
	b.waiter = clock.waiter()

	engine, err := b.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	t.Cleanup(func() {
		_ = engine.Close(context.Background())
		_ = rdb.Close()
		mr.Close()
	})

	return &testEngine{
		Engine:   engine,
		store:    store,
		notifier: notifier,
		clock:    clock,
		audit:    sink,
		redis:    mr,
	}
}

// auditEvents drains the events delivered so far. Call after Close.
func (te *testEngine) auditEvents() []AuditEvent {
	var out []AuditEvent
	for {
		select {
		case ev := <-te.audit.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func ipCtx() context.Context {
	return WithClientIP(context.Background(), testIP)
}

func (te *testEngine) register(t *testing.T, name, email, pw string) *AccountSummary {
	t.Helper()
	acc, err := te.Register(ipCtx(), RegisterRequest{Name: name, Email: email, Password: pw, ConfirmPassword: pw})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return acc
}
