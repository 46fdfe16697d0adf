package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Myykall/techhelper-ai/internal/domain"
)

// DefaultPersona is the system message seeded into every new session.
const DefaultPersona = `You are TechHelper, a patient and friendly tech support assistant for seniors.

SPEAKING STYLE:
- Use simple, clear language. Avoid jargon.
- Be warm and encouraging.
- Speak step-by-step. One instruction at a time.
- Confirm understanding before moving to next step.
- If the user seems confused, slow down and repeat.

TROUBLESHOOTING APPROACH:
1. First, understand the problem by asking gentle questions
2. Break the solution into small, numbered steps
3. Wait for confirmation after each step
4. Offer to repeat or explain differently if needed
5. Stay calm and positive even if frustrated

ESCALATION:
- If the problem is beyond your scope, suggest calling a human helper
- Never ask seniors to do risky things (delete system files, etc.)

Remember: The person you're helping may be anxious about technology. Be extra patient and reassuring.`

// Memory is the in-memory session store. It is the only writer of the id to
// session mapping.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*Handle
	persona  string
}

// Ensure Memory implements Store.
var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store. An empty persona selects
// DefaultPersona.
func NewMemory(persona string) *Memory {
	if persona == "" {
		persona = DefaultPersona
	}
	return &Memory{
		sessions: make(map[string]*Handle),
		persona:  persona,
	}
}

// Create allocates a fresh session seeded with the system persona message.
func (m *Memory) Create() *Handle {
	now := time.Now()
	h := &Handle{
		sess: &domain.Session{
			ID:           "sess_" + uuid.New().String()[:8],
			Messages:     []domain.Message{{Role: domain.RoleSystem, Content: m.persona}},
			CreatedAt:    now,
			LastActivity: now,
		},
	}

	m.mu.Lock()
	m.sessions[h.sess.ID] = h
	m.mu.Unlock()

	return h
}

// Get looks up a session by id.
func (m *Memory) Get(id string) (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.sessions[id]
	return h, ok
}

// List returns session snapshots sorted by most recent activity first.
func (m *Memory) List() []domain.Session {
	m.mu.RLock()
	sessions := make([]domain.Session, 0, len(m.sessions))
	for _, h := range m.sessions {
		sessions = append(sessions, h.Snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivity.After(sessions[j].LastActivity)
	})
	return sessions
}

// Len returns the number of active sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap removes sessions idle for longer than maxAge and reports how many were
// removed. Turns already in flight on a reaped session keep their handle; only
// the mapping entry goes away.
func (m *Memory) Reap(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, h := range m.sessions {
		if h.LastActivity().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
