// Package identity carries the signed-in identity as an explicit session
// object handed to everything that derives per-user keys.
package identity

import (
	"sync"
)

type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// Session holds at most one current identity. Listeners receive nil when
// the session is cleared.
type Session struct {
	mu        sync.RWMutex
	current   *Identity
	nextID    int
	listeners map[int]func(*Identity)
}

func NewSession() *Session {
	return &Session{listeners: make(map[int]func(*Identity))}
}

// NewSessionFor returns a session already signed in as identity.
func NewSessionFor(identity Identity) *Session {
	session := NewSession()
	session.current = &identity
	return session
}

func (session *Session) Current() (Identity, bool) {
	session.mu.RLock()
	defer session.mu.RUnlock()
	if session.current == nil {
		return Identity{}, false
	}
	return *session.current, true
}

func (session *Session) Set(identity Identity) {
	session.mu.Lock()
	if session.current != nil && *session.current == identity {
		session.mu.Unlock()
		return
	}
	session.current = &identity
	listeners := session.snapshotListeners()
	session.mu.Unlock()

	for _, listener := range listeners {
		copied := identity
		listener(&copied)
	}
}

func (session *Session) Clear() {
	session.mu.Lock()
	if session.current == nil {
		session.mu.Unlock()
		return
	}
	session.current = nil
	listeners := session.snapshotListeners()
	session.mu.Unlock()

	for _, listener := range listeners {
		listener(nil)
	}
}

// OnChange registers fn for identity changes and returns its cancel func.
func (session *Session) OnChange(fn func(*Identity)) func() {
	session.mu.Lock()
	id := session.nextID
	session.nextID++
	session.listeners[id] = fn
	session.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			session.mu.Lock()
			delete(session.listeners, id)
			session.mu.Unlock()
		})
	}
}

func (session *Session) snapshotListeners() []func(*Identity) {
	listeners := make([]func(*Identity), 0, len(session.listeners))
	for id := 0; id < session.nextID; id++ {
		if listener, ok := session.listeners[id]; ok {
			listeners = append(listeners, listener)
		}
	}
	return listeners
}
