package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionHandle struct {
	cancel context.CancelFunc
}

// SessionPollers tracks one poll loop per dashboard session. Login starts a
// loop for the principal's devices; logout or the session lifetime cap
// cancels it, so no periodic work outlives its session.
type SessionPollers struct {
	poller      *Poller
	maxLifetime time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionHandle
}

// NewSessionPollers builds the registry. maxLifetime bounds loops whose
// session is never explicitly ended.
func NewSessionPollers(poller *Poller, maxLifetime time.Duration) *SessionPollers {
	if maxLifetime <= 0 {
		maxLifetime = 24 * time.Hour
	}
	return &SessionPollers{
		poller:      poller,
		maxLifetime: maxLifetime,
		sessions:    make(map[string]*sessionHandle),
	}
}

// StartSession launches the poll loop for one session. A second start for
// the same session replaces the previous loop.
func (s *SessionPollers) StartSession(sessionID string, ownerID uuid.UUID) {
	if s == nil || s.poller == nil || sessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.maxLifetime)
	handle := &sessionHandle{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.sessions[sessionID]; ok {
		prev.cancel()
	}
	s.sessions[sessionID] = handle
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			if s.sessions[sessionID] == handle {
				delete(s.sessions, sessionID)
			}
			s.mu.Unlock()
		}()
		s.poller.Run(ctx, ownerID)
	}()
}

// EndSession cancels the session's poll loop, if any.
func (s *SessionPollers) EndSession(sessionID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	handle, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if ok {
		handle.cancel()
	}
}

// StopAll cancels every running loop, used at shutdown.
func (s *SessionPollers) StopAll() {
	if s == nil {
		return
	}
	s.mu.Lock()
	handles := make([]*sessionHandle, 0, len(s.sessions))
	for id, handle := range s.sessions {
		handles = append(handles, handle)
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	for _, handle := range handles {
		handle.cancel()
	}
}
