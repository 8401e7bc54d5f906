package dialogue

import (
	"context"
	"sync"
	"time"

	"github.com/ent0n29/meetingbot/internal/entity"
	"github.com/ent0n29/meetingbot/internal/intent"
)

// turn carries one message through routing.
type turn struct {
	ctx        context.Context
	userID     string
	sessionID  string
	text       string
	lower      string
	zone       string
	now        time.Time
	intent     intent.Intent
	confidence float64
	entities   entity.Map
}

type reply struct {
	text string
	ok   bool
}

type handlerFunc func(t *turn) reply

// userLocks serializes turns per user. Entries are dropped when unused.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
