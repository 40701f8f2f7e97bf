package stamp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-stamp/pkg/storage"
)

// Action selects what a rule does to its keys.
type Action string

const (
	// ActionRemove deletes every key of the rule.
	ActionRemove Action = "remove"
	// ActionTransform rewrites every key of the rule in place.
	ActionTransform Action = "transform"
)

// Rule is one row of the migration table. It applies when the stored
// version is lower than Threshold and the running version is at or above it.
type Rule struct {
	Threshold   string
	Keys        []string
	Action      Action
	Transform   Transformer
	Description string
}

// RemoveKeys builds a remove rule.
func RemoveKeys(threshold string, keys ...string) Rule {
	return Rule{Threshold: threshold, Keys: keys, Action: ActionRemove}
}

// TransformKeys builds a transform rule.
func TransformKeys(threshold string, transform Transformer, keys ...string) Rule {
	return Rule{Threshold: threshold, Keys: keys, Action: ActionTransform, Transform: transform}
}

// AppliesTo reports whether the rule is due for an upgrade from oldVersion
// to newVersion. Rules above the running version are deferred to the
// upgrade that reaches them.
func (r Rule) AppliesTo(oldVersion, newVersion string) bool {
	return IsLower(oldVersion, r.Threshold) && !IsLower(newVersion, r.Threshold)
}

func (r Rule) label() string {
	if r.Description != "" {
		return r.Description
	}
	return fmt.Sprintf("%s %s@%s", r.Action, strings.Join(r.Keys, ","), r.Threshold)
}

// ErrInvalidRule reports a malformed migration rule.
var ErrInvalidRule = errors.New("stamp: invalid migration rule")

// KeyStatus is the per-key result of applying a rule.
type KeyStatus string

const (
	KeyRemoved         KeyStatus = "removed"
	KeyRewritten       KeyStatus = "rewritten"
	KeySkipped         KeyStatus = "skipped"
	KeyFallbackRemoved KeyStatus = "fallback_removed"
	KeyFailed          KeyStatus = "failed"
)

// KeyOutcome records what happened to one key under one rule.
type KeyOutcome struct {
	Rule   string
	Key    string
	Status KeyStatus
	Err    error
}

// Report lists every key outcome of a migration run in application order.
type Report struct {
	Rules    int
	Outcomes []KeyOutcome
}

// Errors returns the errors attached to outcomes.
func (r Report) Errors() []error {
	var errs []error
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			errs = append(errs, outcome.Err)
		}
	}
	return errs
}

// Keys returns the keys that reached status, in order.
func (r Report) Keys(status KeyStatus) []string {
	var keys []string
	for _, outcome := range r.Outcomes {
		if outcome.Status == status {
			keys = append(keys, outcome.Key)
		}
	}
	return keys
}

// Engine applies an ordered migration table.
type Engine struct {
	rules []Rule
}

// NewEngine validates rules and keeps them in declaration order. Rules may
// not target the default version tag or cleanup record; a Manager checks
// its own registry again.
func NewEngine(rules ...Rule) (*Engine, error) {
	reserved := DefaultRegistry()
	out := make([]Rule, 0, len(rules))
	for i, rule := range rules {
		if err := validateRule(rule, reserved); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.label(), err)
		}
		rule.Keys = append([]string(nil), rule.Keys...)
		out = append(out, rule)
	}
	return &Engine{rules: out}, nil
}

func validateRule(rule Rule, registry Registry) error {
	if strings.TrimSpace(rule.Threshold) == "" {
		return fmt.Errorf("%w: threshold is empty", ErrInvalidRule)
	}
	if len(rule.Keys) == 0 {
		return fmt.Errorf("%w: no keys", ErrInvalidRule)
	}
	for _, key := range rule.Keys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: %w", ErrInvalidRule, ErrEmptyKey)
		}
		if registry.Reserved(key) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidRule, ErrReservedKey, key)
		}
	}
	switch rule.Action {
	case ActionRemove:
	case ActionTransform:
		if rule.Transform == nil {
			return fmt.Errorf("%w: transform action without transform", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRule, rule.Action)
	}
	return nil
}

// Validate checks every rule against registry's reserved keys.
func (e *Engine) Validate(registry Registry) error {
	if e == nil {
		return nil
	}
	for i, rule := range e.rules {
		if err := validateRule(rule, registry); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i, rule.label(), err)
		}
	}
	return nil
}

// Rules returns a copy of the table.
func (e *Engine) Rules() []Rule {
	if e == nil {
		return nil
	}
	return append([]Rule(nil), e.rules...)
}

// Pending returns the rules due for an upgrade from oldVersion to newVersion,
// in declaration order.
func (e *Engine) Pending(oldVersion, newVersion string) []Rule {
	if e == nil {
		return nil
	}
	var pending []Rule
	for _, rule := range e.rules {
		if rule.AppliesTo(oldVersion, newVersion) {
			pending = append(pending, rule)
		}
	}
	return pending
}

// Apply runs every pending rule against store. A failure on one key never
// stops the remaining keys or rules.
func (e *Engine) Apply(ctx context.Context, store storage.Storage, oldVersion, newVersion string, now time.Time) Report {
	pending := e.Pending(oldVersion, newVersion)
	report := Report{Rules: len(pending)}
	for _, rule := range pending {
		for _, key := range rule.Keys {
			outcome := KeyOutcome{Rule: rule.label(), Key: key}
			switch rule.Action {
			case ActionRemove:
				outcome.Status, outcome.Err = removeKey(ctx, store, key, KeyRemoved)
			case ActionTransform:
				tctx := TransformContext{Key: key, OldVersion: oldVersion, NewVersion: newVersion, Now: now}
				outcome.Status, outcome.Err = transformKey(ctx, store, rule.Transform, tctx)
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}
	}
	return report
}

func removeKey(ctx context.Context, store storage.Storage, key string, status KeyStatus) (KeyStatus, error) {
	if err := store.Remove(ctx, key); err != nil {
		return KeyFailed, fmt.Errorf("stamp: remove %q: %w", key, err)
	}
	return status, nil
}

// transformKey rewrites one entry. Any failure, including a failed read,
// drops it; the cause is kept on the outcome.
func transformKey(ctx context.Context, store storage.Storage, transform Transformer, tctx TransformContext) (KeyStatus, error) {
	raw, ok, err := store.Get(ctx, tctx.Key)
	if err != nil {
		return fallbackRemove(ctx, store, tctx.Key, fmt.Errorf("stamp: read %q: %w", tctx.Key, err))
	}
	if !ok {
		return KeySkipped, nil
	}

	next, cause := runTransform(transform, tctx, raw)
	if cause == nil && next == nil {
		return removeKey(ctx, store, tctx.Key, KeyRemoved)
	}
	if cause == nil {
		var payload []byte
		payload, cause = json.Marshal(next)
		if cause == nil {
			cause = store.Set(ctx, tctx.Key, string(payload))
			if cause == nil {
				return KeyRewritten, nil
			}
		}
	}

	return fallbackRemove(ctx, store, tctx.Key, fmt.Errorf("stamp: transform %q: %w", tctx.Key, cause))
}

func fallbackRemove(ctx context.Context, store storage.Storage, key string, cause error) (KeyStatus, error) {
	if err := store.Remove(ctx, key); err != nil {
		return KeyFailed, errors.Join(cause, fmt.Errorf("stamp: remove %q: %w", key, err))
	}
	return KeyFallbackRemoved, cause
}

func runTransform(transform Transformer, tctx TransformContext, raw string) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	return transform.Transform(tctx, value)
}
