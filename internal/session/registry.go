package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"ridetrack/internal/domain"
	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
)

type key struct {
	userID string
	role   domain.Role
}

// Registry keeps at most one running session per user and role.
type Registry struct {
	ctx    context.Context
	gw     gateway.Gateway
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[key]*Session
}

// NewRegistry creates a registry whose sessions run until ctx ends or they
// are stopped.
func NewRegistry(ctx context.Context, gw gateway.Gateway, opts Options) *Registry {
	return &Registry{
		ctx:      ctx,
		gw:       gw,
		opts:     opts,
		logger:   logging.OrDefault(opts.Logger),
		sessions: make(map[key]*Session),
	}
}

// Start returns the running session for the user and role, starting one if
// needed. created reports whether a new session was started.
func (r *Registry) Start(userID string, role domain.Role) (s *Session, created bool) {
	k := key{userID: userID, role: role}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[k]; ok {
		return s, false
	}

	s = New(userID, role, r.gw, r.opts)
	r.sessions[k] = s

	go func() {
		if err := s.Run(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("tracking session ended", "user_id", userID, "role", string(role), "error", err)
		}
		r.remove(k, s)
	}()
	return s, true
}

// Get returns the running session, if any.
func (r *Registry) Get(userID string, role domain.Role) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key{userID: userID, role: role}]
	return s, ok
}

// Stop ends the session and waits for it. It reports whether one was running.
func (r *Registry) Stop(userID string, role domain.Role) bool {
	k := key{userID: userID, role: role}

	r.mu.Lock()
	s, ok := r.sessions[k]
	delete(r.sessions, k)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	return true
}

// Len returns the number of running sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown stops every session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for k, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, k)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (r *Registry) remove(k key, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[k] == s {
		delete(r.sessions, k)
	}
}
