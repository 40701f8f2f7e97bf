package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrHookPanic wraps a panic raised by a hook during delivery.
var ErrHookPanic = errors.New("activity: hook panicked")

// Event is one notification about a version transition. IDs are plain
// strings so hooks can map them onto whatever identifier type they store.
type Event struct {
	ID         string
	Verb       string
	ActorID    string
	UserID     string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Complete reports whether the event names a verb and an object. Incomplete
// events are dropped before they reach any hook.
func (e Event) Complete() bool {
	return strings.TrimSpace(e.Verb) != "" &&
		strings.TrimSpace(e.ObjectType) != "" &&
		strings.TrimSpace(e.ObjectID) != ""
}

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls fn.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks delivers one event to several hooks.
type Hooks []ActivityHook

// Enabled reports whether there is any hook to deliver to.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes the event and hands it to every hook in order. A failing
// or panicking hook does not stop delivery to the rest; their errors are
// joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 || !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	normalized := NormalizeEvent(event)
	var errs []error
	for i, hook := range h {
		if hook == nil {
			continue
		}
		if err := deliver(ctx, hook, normalized); err != nil {
			errs = append(errs, fmt.Errorf("hook %d (%s): %w", i, normalized.Verb, err))
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, hook ActivityHook, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHookPanic, r)
		}
	}()
	return hook.Notify(ctx, event)
}

// NormalizeEvent trims identifiers, copies metadata and fills a missing ID
// or timestamp.
func NormalizeEvent(event Event) Event {
	out := event
	for _, field := range []*string{&out.ID, &out.Verb, &out.ActorID, &out.UserID, &out.ObjectType, &out.ObjectID, &out.Channel} {
		*field = strings.TrimSpace(*field)
	}
	out.Metadata = cloneMap(event.Metadata)
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
