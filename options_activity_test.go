package stamp

import (
	"testing"

	"github.com/goliatone/go-stamp/pkg/activity"
	"github.com/goliatone/go-stamp/pkg/storage"
)

func TestWithHooksDropsNilAndCopies(t *testing.T) {
	first := &activity.CaptureHook{}
	second := &activity.CaptureHook{}
	manager, err := NewManager(storage.NewMemory(), WithHooks(first, nil), WithHooks(second))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	hooks := manager.ActivityHooks()
	if len(hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(hooks))
	}
	hooks[0] = nil
	if again := manager.ActivityHooks(); again[0] == nil {
		t.Fatalf("ActivityHooks must return a copy")
	}

	var nilManager *Manager
	if nilManager.ActivityHooks() != nil {
		t.Fatalf("nil manager should report no hooks")
	}
}
