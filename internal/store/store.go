// Package store owns conversation state: the mapping from session id to
// session, and the per-session mutual exclusion that serializes turns.
package store

import (
	"sync"
	"time"

	"github.com/Myykall/techhelper-ai/internal/domain"
)

// Store is the session store interface. The in-memory implementation is the
// only one shipped; the interface is shaped so a durable backing store is a
// drop-in replacement.
type Store interface {
	// Create allocates a session with a fresh id, seeded with the system
	// persona message.
	Create() *Handle

	// Get looks a session up by id. No implicit creation.
	Get(id string) (*Handle, bool)

	// List returns a snapshot of every session, most recent activity first.
	List() []domain.Session

	// Len returns the number of active sessions.
	Len() int

	// Reap removes every session whose last activity is older than maxAge.
	// It is safe to run concurrently with turn processing on other sessions.
	Reap(maxAge time.Duration) int
}

// Handle is a session plus its locks. The turn lock serializes whole turns on
// one session; the data lock makes individual reads and writes atomic so that
// stats endpoints can read counters while a streaming turn holds the turn
// lock.
type Handle struct {
	sess   *domain.Session
	turnMu sync.Mutex
	dataMu sync.RWMutex
}

// ID returns the session id. Ids are immutable, no lock needed.
func (h *Handle) ID() string {
	return h.sess.ID
}

// LockTurn acquires the per-session turn lock. Two concurrent turns on one
// session id can never interleave their append/account steps.
func (h *Handle) LockTurn() {
	h.turnMu.Lock()
}

// UnlockTurn releases the per-session turn lock.
func (h *Handle) UnlockTurn() {
	h.turnMu.Unlock()
}

// Update mutates the session under the data lock.
func (h *Handle) Update(fn func(*domain.Session)) {
	h.dataMu.Lock()
	defer h.dataMu.Unlock()
	fn(h.sess)
}

// Snapshot returns a copy of the session's scalar fields. The message slice
// is shared with the live session; use Messages for a safe copy.
func (h *Handle) Snapshot() domain.Session {
	h.dataMu.RLock()
	defer h.dataMu.RUnlock()
	return *h.sess
}

// Messages returns a copy of the conversation history.
func (h *Handle) Messages() []domain.Message {
	h.dataMu.RLock()
	defer h.dataMu.RUnlock()
	msgs := make([]domain.Message, len(h.sess.Messages))
	copy(msgs, h.sess.Messages)
	return msgs
}

// LastActivity returns the session's last activity time.
func (h *Handle) LastActivity() time.Time {
	h.dataMu.RLock()
	defer h.dataMu.RUnlock()
	return h.sess.LastActivity
}
