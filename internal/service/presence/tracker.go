package presence

import "sync"

// typingKey addresses one typing flag: a session/role pair.
type typingKey struct {
	sessionID string
	role      string
}

// Cleared reports a typing flag that was reset when a connection went
// away, so the hub can broadcast the reset to remaining members.
type Cleared struct {
	SessionID string
	Role      string
}

// Tracker holds ephemeral typing state. Last writer wins per
// (session, role); nothing is persisted and everything resets on
// process restart.
type Tracker struct {
	mu     sync.Mutex
	typing map[typingKey]string // value: connection currently driving the flag
}

// NewTracker builds an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{typing: make(map[typingKey]string)}
}

// SetTyping overwrites the typing flag for the session/role pair and
// remembers which connection drives it. It reports whether the visible
// state changed.
func (t *Tracker) SetTyping(connID, sessionID, role string, isTyping bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{sessionID: sessionID, role: role}
	_, was := t.typing[key]
	if isTyping {
		t.typing[key] = connID
		return !was
	}
	delete(t.typing, key)
	return was
}

// Typing returns the roles currently typing in a session.
func (t *Tracker) Typing(sessionID string) map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]bool)
	for key := range t.typing {
		if key.sessionID == sessionID {
			out[key.role] = true
		}
	}
	return out
}

// ClearConnection drops every typing flag the connection was driving
// and returns the affected session/role pairs. Called on leave and on
// transport disconnect so no "is typing" indicator sticks around.
func (t *Tracker) ClearConnection(connID string) []Cleared {
	t.mu.Lock()
	defer t.mu.Unlock()

	var cleared []Cleared
	for key, owner := range t.typing {
		if owner == connID {
			delete(t.typing, key)
			cleared = append(cleared, Cleared{SessionID: key.sessionID, Role: key.role})
		}
	}
	return cleared
}
