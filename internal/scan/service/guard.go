package service

import (
	"sync"

	"github.com/boxscan/scan-service/internal/scan/domain"
)

// SessionGuard admits one operation at a time per session. It never
// blocks: a second caller gets ErrSessionBusy.
type SessionGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewSessionGuard creates an empty guard
func NewSessionGuard() *SessionGuard {
	return &SessionGuard{busy: make(map[string]struct{})}
}

// Acquire marks the session busy and returns its release func
func (g *SessionGuard) Acquire(sessionID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.busy[sessionID]; held {
		return nil, domain.ErrSessionBusy
	}
	g.busy[sessionID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, sessionID)
			g.mu.Unlock()
		})
	}, nil
}
