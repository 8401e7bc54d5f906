package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/meetingbot/internal/intent"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrUserIDRequired = errors.New("user id is required")
	ErrSessionClosed  = errors.New("session is no longer active")
)

// entry owns one session record. Its mutex guards every field of s; the
// manager lock is always taken before an entry lock, never after.
type entry struct {
	mu sync.Mutex
	s  Session
}

// Manager keeps conversation sessions keyed by ID with a per-user index.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*entry
	sessionByUser     map[string]string
	inactivityTimeout time.Duration
	endedRetention    time.Duration
	now               func() time.Time
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*entry),
		sessionByUser:     make(map[string]string),
		inactivityTimeout: inactivityTimeout,
		endedRetention:    time.Hour,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// SetEndedRetention controls how long terminal sessions stay readable before a sweep removes them.
func (m *Manager) SetEndedRetention(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.endedRetention = d
	}
}

func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now != nil {
		m.now = now
	}
}

// SetExpireHook is called with a snapshot whenever a session transitions to TIMED_OUT.
func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) InactivityTimeout() time.Duration { return m.inactivityTimeout }

// GetOrCreate returns the user's live session, replacing a timed-out or
// terminal one with a fresh session. The replaced record stays readable by ID
// until swept.
func (m *Manager) GetOrCreate(userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	m.mu.RLock()
	now := m.now()
	e := m.sessions[m.sessionByUser[userID]]
	m.mu.RUnlock()

	if e != nil {
		snap, live, expired := m.checkLive(e, now)
		if live {
			return snap, nil
		}
		m.fireExpire(expired)
	}

	m.mu.Lock()
	// Another caller may have replaced the session while the lock was released.
	if cur := m.sessions[m.sessionByUser[userID]]; cur != nil && cur != e {
		snap, live, expired := m.checkLive(cur, now)
		if live {
			m.mu.Unlock()
			return snap, nil
		}
		defer m.fireExpire(expired)
	}
	fresh := &entry{s: Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
		Context:        make(map[string]string),
	}}
	m.sessions[fresh.s.ID] = fresh
	m.sessionByUser[userID] = fresh.s.ID
	m.mu.Unlock()

	return clone(&fresh.s), nil
}

// checkLive marks an idle active session TIMED_OUT and reports whether it is still usable.
func (m *Manager) checkLive(e *entry, now time.Time) (snap *Session, live bool, expired *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.Status == StatusActive && m.idle(&e.s, now) {
		m.terminate(&e.s, StatusTimedOut, now)
		expired = clone(&e.s)
	}
	if e.s.Status != StatusActive {
		return nil, false, expired
	}
	return clone(&e.s), true, nil
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	e, now := m.lookup(sessionID)
	if e == nil {
		return nil, ErrNotFound
	}
	_, _, expired := m.checkLive(e, now)
	m.fireExpire(expired)

	e.mu.Lock()
	defer e.mu.Unlock()
	return clone(&e.s), nil
}

// Current returns the user's indexed session without creating one.
func (m *Manager) Current(userID string) (*Session, error) {
	e, _ := m.lookupUser(userID)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return clone(&e.s), nil
}

// UpdateActivity records one processed message.
func (m *Manager) UpdateActivity(sessionID string) error {
	e, now := m.lookup(sessionID)
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.Status != StatusActive {
		return ErrSessionClosed
	}
	if now.After(e.s.LastActivityAt) {
		e.s.LastActivityAt = now
	}
	e.s.MessageCount++
	return nil
}

func (m *Manager) SetLastIntent(sessionID string, in intent.Intent) error {
	return m.mutate(sessionID, func(s *Session) { s.LastIntent = in })
}

func (m *Manager) SetContext(userID, key, value string) error {
	return m.mutateUser(userID, func(s *Session) { s.Context[key] = value })
}

// SetContextValues writes several keys in one step.
func (m *Manager) SetContextValues(userID string, values map[string]string) error {
	return m.mutateUser(userID, func(s *Session) {
		for k, v := range values {
			s.Context[k] = v
		}
	})
}

func (m *Manager) GetContext(userID, key string) (string, bool) {
	e, _ := m.lookupUser(userID)
	if e == nil {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.s.Context[key]
	return v, ok
}

func (m *Manager) HasContext(userID, key string) bool {
	_, ok := m.GetContext(userID, key)
	return ok
}

// ContextSnapshot returns a copy of the user's context map.
func (m *Manager) ContextSnapshot(userID string) map[string]string {
	e, _ := m.lookupUser(userID)
	if e == nil {
		return map[string]string{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneContext(e.s.Context)
}

func (m *Manager) DeleteContext(userID string, keys ...string) error {
	return m.mutateUser(userID, func(s *Session) {
		for _, k := range keys {
			delete(s.Context, k)
		}
	})
}

// DeleteContextPrefix removes every key starting with prefix and reports how many went.
func (m *Manager) DeleteContextPrefix(userID, prefix string) (int, error) {
	removed := 0
	err := m.mutateUser(userID, func(s *Session) {
		for k := range s.Context {
			if strings.HasPrefix(k, prefix) {
				delete(s.Context, k)
				removed++
			}
		}
	})
	return removed, err
}

func (m *Manager) ClearContext(userID string) error {
	return m.mutateUser(userID, func(s *Session) { s.Context = make(map[string]string) })
}

// End marks the user's active session ENDED; the record is retained.
func (m *Manager) End(userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.sessionByUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	e := m.sessions[id]
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.Status != StatusActive {
		return nil, ErrNotFound
	}
	m.terminate(&e.s, StatusEnded, m.now())
	delete(m.sessionByUser, userID)
	return clone(&e.s), nil
}

// MarkError moves an active session to ERROR.
func (m *Manager) MarkError(sessionID string) error {
	e, now := m.lookup(sessionID)
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.Status != StatusActive {
		return ErrSessionClosed
	}
	m.terminate(&e.s, StatusError, now)
	return nil
}

// CleanupInactive removes timed-out sessions and terminal sessions older than
// the retention window. Sessions busy in another goroutine are left for the
// next sweep. Concurrent calls serialize on the manager lock, so each removal
// is counted once.
func (m *Manager) CleanupInactive() int {
	var expired []*Session

	m.mu.Lock()
	now := m.now()
	removed := 0
	for id, e := range m.sessions {
		if !e.mu.TryLock() {
			continue
		}
		stale := false
		switch {
		case e.s.Status == StatusActive && m.idle(&e.s, now):
			m.terminate(&e.s, StatusTimedOut, now)
			expired = append(expired, clone(&e.s))
			stale = true
		case e.s.Status.Terminal() && e.s.EndedAt != nil && now.Sub(*e.s.EndedAt) >= m.endedRetention:
			stale = true
		}
		userID := e.s.UserID
		e.mu.Unlock()

		if !stale {
			continue
		}
		delete(m.sessions, id)
		if m.sessionByUser[userID] == id {
			delete(m.sessionByUser, userID)
		}
		removed++
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
	return removed
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupInactive()
			}
		}
	}()
}

// ActiveCount counts sessions that are ACTIVE and not yet idle past the timeout.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	count := 0
	for _, e := range m.sessions {
		e.mu.Lock()
		if e.s.Status == StatusActive && !m.idle(&e.s, now) {
			count++
		}
		e.mu.Unlock()
	}
	return count
}

// TotalCount includes retained terminal sessions.
func (m *Manager) TotalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// All returns snapshots of every retained session, oldest first.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		e.mu.Lock()
		out = append(out, clone(&e.s))
		e.mu.Unlock()
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (m *Manager) lookup(sessionID string) (*entry, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID], m.now()
}

func (m *Manager) lookupUser(userID string) (*entry, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.sessionByUser[strings.TrimSpace(userID)]
	if !ok {
		return nil, m.now()
	}
	return m.sessions[id], m.now()
}

func (m *Manager) mutate(sessionID string, fn func(*Session)) error {
	e, _ := m.lookup(sessionID)
	return applyActive(e, fn)
}

func (m *Manager) mutateUser(userID string, fn func(*Session)) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	e, _ := m.lookupUser(userID)
	return applyActive(e, fn)
}

func applyActive(e *entry, fn func(*Session)) error {
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.s.Status != StatusActive {
		return ErrSessionClosed
	}
	fn(&e.s)
	return nil
}

func (m *Manager) idle(s *Session, now time.Time) bool {
	return now.Sub(s.LastActivityAt) >= m.inactivityTimeout
}

func (m *Manager) terminate(s *Session, status Status, now time.Time) {
	s.Status = status
	ended := now
	s.EndedAt = &ended
}

func (m *Manager) fireExpire(s *Session) {
	if s == nil {
		return
	}
	m.mu.RLock()
	hook := m.onExpire
	m.mu.RUnlock()
	if hook != nil {
		hook(s)
	}
}

func clone(s *Session) *Session {
	c := *s
	c.Context = cloneContext(s.Context)
	if s.EndedAt != nil {
		ended := *s.EndedAt
		c.EndedAt = &ended
	}
	return &c
}

func cloneContext(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
