package activity

import (
	"context"
	"sync"
)

// CaptureHook keeps every event it receives. Tests and the CLI use it to
// inspect what a version check announced.
type CaptureHook struct {
	Events []Event
	// Err is returned from every Notify call.
	Err error
	// FailVerbs rejects individual verbs; it wins over Err.
	FailVerbs map[string]error

	mu sync.Mutex
}

// Notify records the event, then reports the configured failure.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	if err, ok := h.FailVerbs[event.Verb]; ok {
		return err
	}
	return h.Err
}

// Verbs lists the recorded verbs in arrival order.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	verbs := make([]string, 0, len(h.Events))
	for _, event := range h.Events {
		verbs = append(verbs, event.Verb)
	}
	return verbs
}

// Updates decodes the recorded version notifications.
func (h *CaptureHook) Updates() []UpdatePayload {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []UpdatePayload
	for _, event := range h.Events {
		if payload, ok := ParseUpdate(event); ok {
			out = append(out, payload)
		}
	}
	return out
}

// Reset forgets every recorded event.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	h.Events = nil
	h.mu.Unlock()
}
