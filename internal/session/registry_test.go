package session

import (
	"context"
	"testing"
	"time"

	"ridetrack/internal/domain"
	"ridetrack/internal/logging"
)

func TestRegistry_OneSessionPerUserAndRole(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRegistry(ctx, newFakeGateway(), Options{Logger: logging.Discard()})
	defer r.Shutdown()

	a, created := r.Start("user-1", domain.RoleCustomer)
	if !created {
		t.Fatal("expected a new session")
	}
	b, created := r.Start("user-1", domain.RoleCustomer)
	if created || a != b {
		t.Error("expected the running session to be reused")
	}
	if _, created := r.Start("user-1", domain.RoleDriver); !created {
		t.Error("a different role gets its own session")
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", r.Len())
	}

	if !r.Stop("user-1", domain.RoleCustomer) {
		t.Error("expected stop to find the session")
	}
	if _, ok := r.Get("user-1", domain.RoleCustomer); ok {
		t.Error("stopped session must be gone")
	}
	if r.Stop("user-1", domain.RoleCustomer) {
		t.Error("second stop must report nothing running")
	}
}

func TestRegistry_RemovesSessionWhenFeedEnds(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	r := NewRegistry(context.Background(), gw, Options{Logger: logging.Discard()})

	s, _ := r.Start("user-1", domain.RoleCustomer)
	close(gw.feed)

	deadline := time.Now().Add(2 * time.Second)
	for r.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if r.Len() != 0 {
		t.Error("expected session to be removed after its feed closed")
	}
	if done := s.Done(); done == nil {
		t.Error("expected session to have run")
	}
}
