package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/cleanshop/pkg/cart"
	"github.com/example/cleanshop/pkg/profile"
	"github.com/example/cleanshop/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session owns one shopper's cart and profile.
type Session struct {
	ID      string
	Cart    *cart.Store
	Profile *profile.Store

	submitting atomic.Bool
}

func newSession(id string) *Session {
	return &Session{ID: id, Cart: cart.NewStore(), Profile: profile.NewStore()}
}

// BeginSubmit claims the session for an order submission. It returns false
// when another submission is already running.
func (s *Session) BeginSubmit() bool {
	return s.submitting.CompareAndSwap(false, true)
}

func (s *Session) EndSubmit() {
	s.submitting.Store(false)
}

func (s *Session) snapshot(now time.Time) *repository.SessionSnapshot {
	return &repository.SessionSnapshot{
		ID:        s.ID,
		Items:     s.Cart.Items(),
		Profile:   s.Profile.Current(),
		UpdatedAt: now,
	}
}

// SnapshotRepository persists sessions between requests. RedisRepository
// satisfies it.
type SnapshotRepository interface {
	SaveSession(ctx context.Context, snap *repository.SessionSnapshot, ttl time.Duration) error
	LoadSession(ctx context.Context, id string) (*repository.SessionSnapshot, error)
	DeleteSession(ctx context.Context, id string) error
}

// Manager hands out sessions. Live sessions are kept in memory so that
// concurrent requests for one id share the same stores; the repository is
// only consulted when an id is not live yet.
type Manager struct {
	repo   SnapshotRepository
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	live map[string]*entry
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// NewManager builds a manager. repo may be nil, in which case sessions live
// only in memory.
func NewManager(repo SnapshotRepository, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		repo:   repo,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		live:   make(map[string]*entry),
	}
}

// Get returns the session for id, restoring it from the repository when
// possible. An empty or unknown id yields a fresh session with a new id.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.live[id]; ok && id != "" {
		if m.ttl <= 0 || now.Sub(e.lastSeen) < m.ttl {
			e.lastSeen = now
			return e.session, nil
		}
		delete(m.live, id)
	}

	if id != "" && m.repo != nil {
		snap, err := m.repo.LoadSession(ctx, id)
		switch {
		case err == nil:
			s := newSession(id)
			s.Cart = cart.Restore(snap.Items)
			if snap.Profile != nil {
				s.Profile.Login(*snap.Profile)
			}
			m.live[id] = &entry{session: s, lastSeen: now}
			return s, nil
		case errors.Is(err, repository.ErrSessionNotFound):
		default:
			return nil, fmt.Errorf("failed to restore session: %w", err)
		}
	}

	s := newSession(uuid.NewString())
	m.live[s.ID] = &entry{session: s, lastSeen: now}
	m.logger.Debug("Session created", zap.String("session_id", s.ID))
	return s, nil
}

// Save persists the session's cart and profile.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if m.repo == nil {
		return nil
	}
	return m.repo.SaveSession(ctx, s.snapshot(m.now()), m.ttl)
}

// Discard forgets the session everywhere.
func (m *Manager) Discard(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.live, id)
	m.mu.Unlock()

	if m.repo == nil {
		return nil
	}
	return m.repo.DeleteSession(ctx, id)
}

// Sweep drops live sessions idle for longer than the TTL and reports how
// many were removed.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.live {
		if now.Sub(e.lastSeen) >= m.ttl && !e.session.submitting.Load() {
			delete(m.live, id)
			removed++
		}
	}
	return removed
}

// Live reports how many sessions are held in memory.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
