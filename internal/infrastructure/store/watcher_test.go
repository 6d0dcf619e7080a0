package store

import (
	"context"
	"testing"
	"time"

	"github.com/flowline/fileauth/internal/core/domain"
)

func TestWatcher_ReloadsOnExternalSave(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "alice", domain.RoleAdmin)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := make(chan struct{}, 1)
	w, err := NewWatcher(s, func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to arm before writing.
	time.Sleep(100 * time.Millisecond)

	external := New(s.Path())
	external.Load()
	mustAdd(t, external, "bob", domain.RoleViewer)
	if err := external.Save(); err != nil {
		t.Fatalf("external Save: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not trigger a reload")
	}

	if !s.UserExists("bob") {
		t.Fatalf("store not refreshed after watcher reload")
	}
}
