package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	credAuth "github.com/MrEthical07/credAuth"
)

// Store is a credAuth.UserStore held in process memory. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*credAuth.UserRecord
	byEmail map[string]string
	now     func() time.Time
}

var _ credAuth.UserStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*credAuth.UserRecord),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// FindByEmail returns a copy of the account registered under email.
func (s *Store) FindByEmail(_ context.Context, email string) (*credAuth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, credAuth.ErrUserNotFound
	}
	return clone(s.byID[id]), nil
}

// FindByID returns a copy of the account with id.
func (s *Store) FindByID(_ context.Context, id string) (*credAuth.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, credAuth.ErrUserNotFound
	}
	return clone(u), nil
}

// Create assigns a random UUID and stores the account. CreatedAt is set when zero.
func (s *Store) Create(_ context.Context, user *credAuth.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return credAuth.ErrDuplicateEmail
	}

	user.ID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	s.byID[user.ID] = clone(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

// Update applies fn to a copy of the stored account under the store lock and keeps the
// result, moving the email index when the address changed. Nothing is written when fn fails.
func (s *Store) Update(_ context.Context, id string, fn func(*credAuth.UserRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[id]
	if !ok {
		return credAuth.ErrUserNotFound
	}

	user := clone(prev)
	if err := fn(user); err != nil {
		return err
	}
	user.ID = id
	if owner, taken := s.byEmail[user.Email]; taken && owner != id {
		return credAuth.ErrDuplicateEmail
	}

	if prev.Email != user.Email {
		delete(s.byEmail, prev.Email)
		s.byEmail[user.Email] = id
	}
	s.byID[id] = clone(user)
	return nil
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func clone(u *credAuth.UserRecord) *credAuth.UserRecord {
	out := *u
	if len(u.IPHistory) > 0 {
		out.IPHistory = make([]credAuth.IPSighting, len(u.IPHistory))
		copy(out.IPHistory, u.IPHistory)
	}
	return &out
}
