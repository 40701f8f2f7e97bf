package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultChannel is applied to events that carry no channel.
const DefaultChannel = "app"

// Config holds the defaults an Emitter stamps onto outgoing events.
type Config struct {
	Enabled bool
	Channel string
	ActorID string
}

// Emitter publishes version notifications to a fixed set of hooks.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	actorID string
}

// NewEmitter drops nil hooks and records the defaults from cfg.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	kept := compactHooks(hooks)
	return &Emitter{
		hooks:   kept,
		enabled: cfg.Enabled && len(kept) > 0,
		channel: channel,
		actorID: strings.TrimSpace(cfg.ActorID),
	}
}

// Enabled reports whether Emit would reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Emit delivers one event, filling a blank channel or actor from the
// emitter defaults.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.actorID
	}
	return e.hooks.Notify(ctx, event)
}

// Announce publishes app.updated for the transition in input and, when
// major is set, app.major_update after it. The returned verbs are the ones
// every hook accepted, in emission order.
func (e *Emitter) Announce(ctx context.Context, input UpdateInput, major bool) ([]string, error) {
	if !e.Enabled() {
		return nil, nil
	}
	events := []Event{BuildAppUpdatedEvent(input)}
	if major {
		events = append(events, BuildMajorUpdateEvent(input))
	}

	var (
		delivered []string
		errs      []error
	)
	for _, event := range events {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", event.Verb, err))
			continue
		}
		delivered = append(delivered, event.Verb)
	}
	return delivered, errors.Join(errs...)
}

func compactHooks(hooks Hooks) Hooks {
	var kept Hooks
	for _, hook := range hooks {
		if hook != nil {
			kept = append(kept, hook)
		}
	}
	return kept
}
