package stamp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-stamp/pkg/activity"
	"github.com/goliatone/go-stamp/pkg/storage"
)

// Result summarizes one version check.
type Result struct {
	Outcome        Outcome
	StoredVersion  string
	CurrentVersion string
	// Stamped is true when the version tag was written during this run.
	Stamped    bool
	ClearedAll bool
	// Removed lists keys deleted outside of migration rules.
	Removed   []string
	Migration Report
	// Notified lists the verbs delivered to hooks.
	Notified []string
	Errors   []error
}

// Err joins every non-fatal error of the run.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

// Manager walks the version state machine against one store.
type Manager struct {
	mu      sync.Mutex
	store   storage.Storage
	cfg     managerConfig
	engine  *Engine
	emitter *activity.Emitter
}

// NewManager validates the options and builds a Manager for store. A nil
// store is accepted; every Run then reports OutcomeUnavailable.
func NewManager(store storage.Storage, opts ...Option) (*Manager, error) {
	cfg := applyOptions(opts)

	engine := cfg.engine
	if len(cfg.rules) > 0 {
		var err error
		engine, err = NewEngine(append(engine.Rules(), cfg.rules...)...)
		if err != nil {
			return nil, err
		}
	}
	if err := engine.Validate(cfg.registry); err != nil {
		return nil, err
	}

	emitter := activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: true,
		Channel: cfg.channel,
		ActorID: cfg.actorID,
	})
	return &Manager{store: store, cfg: cfg, engine: engine, emitter: emitter}, nil
}

// Check builds a Manager and runs it once. Option errors are reported on
// the Result with OutcomeInvalid.
func Check(ctx context.Context, store storage.Storage, cfg Config, opts ...Option) Result {
	manager, err := NewManager(store, opts...)
	if err != nil {
		applyOptions(opts).logger.Log(LogEvent{Level: LogError, Message: "invalid manager options", NewVersion: cfg.CurrentVersion, Err: err})
		return Result{Outcome: OutcomeInvalid, CurrentVersion: cfg.CurrentVersion, Errors: []error{err}}
	}
	return manager.Run(ctx, cfg)
}

// Registry returns the key layout the manager operates on.
func (m *Manager) Registry() Registry {
	return m.cfg.registry
}

// Run performs one version check. It never fails: storage problems are
// logged and collected on the Result, and an unreadable store turns the run
// into a no-op.
func (m *Manager) Run(ctx context.Context, cfg Config) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	started := m.cfg.clock()
	result := m.run(ctx, cfg)
	m.log(LogEvent{
		Level:      LogInfo,
		Message:    "version check complete",
		Outcome:    result.Outcome,
		OldVersion: result.StoredVersion,
		NewVersion: result.CurrentVersion,
		Duration:   m.cfg.clock().Sub(started),
		Err:        result.Err(),
	})
	return result
}

func (m *Manager) run(ctx context.Context, cfg Config) Result {
	result := Result{CurrentVersion: strings.TrimSpace(cfg.CurrentVersion)}

	resolved, err := cfg.resolve()
	if err != nil {
		m.log(LogEvent{Level: LogError, Message: "invalid configuration", Err: err})
		result.Outcome = OutcomeInvalid
		result.Errors = append(result.Errors, err)
		return result
	}

	if err := storage.Probe(ctx, m.store); err != nil {
		m.log(LogEvent{Level: LogDebug, Message: "storage unavailable", Err: err})
		result.Outcome = OutcomeUnavailable
		return result
	}

	versionKey := m.cfg.registry.VersionKey()
	raw, hasStored, err := m.store.Get(ctx, versionKey)
	if err != nil {
		m.log(LogEvent{Level: LogDebug, Message: "version tag unreadable", Key: versionKey, Err: err})
		result.Outcome = OutcomeUnavailable
		return result
	}
	stored := normalizeTag(raw)
	result.StoredVersion = stored
	result.Outcome = Classify(stored, hasStored, resolved.currentVersion)

	switch result.Outcome {
	case OutcomeFirstRun:
		m.stamp(ctx, &result)
	case OutcomeUnchanged:
		if raw != resolved.currentVersion {
			m.stamp(ctx, &result)
		}
	case OutcomeDowngrade:
		m.log(LogEvent{Level: LogWarn, Message: "stored version is newer than running build", Outcome: result.Outcome, OldVersion: stored, NewVersion: resolved.currentVersion})
		m.stamp(ctx, &result)
	case OutcomeMinorUpgrade, OutcomeMajorUpgrade:
		m.upgrade(ctx, resolved, &result)
	}
	return result
}

func (m *Manager) upgrade(ctx context.Context, resolved settings, result *Result) {
	now := m.cfg.clock()
	result.ClearedAll = result.Outcome == OutcomeMajorUpgrade && resolved.clearAll

	if result.ClearedAll {
		m.removeKeys(ctx, m.cfg.registry.FeatureKeys(), result)
	} else {
		m.removeKeys(ctx, resolved.clearKeys, result)
		if resolved.migrate && m.engine != nil {
			result.Migration = m.engine.Apply(ctx, m.store, result.StoredVersion, result.CurrentVersion, now)
			for _, outcome := range result.Migration.Outcomes {
				if outcome.Err == nil {
					continue
				}
				m.log(LogEvent{Level: LogWarn, Message: "migration step failed", Key: outcome.Key, OldVersion: result.StoredVersion, NewVersion: result.CurrentVersion, Err: outcome.Err})
				result.Errors = append(result.Errors, outcome.Err)
			}
		}
	}

	cleanupKey := m.cfg.registry.CleanupKey()
	if err := m.store.Set(ctx, cleanupKey, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		m.fail(result, cleanupKey, fmt.Errorf("stamp: write cleanup record: %w", err))
	}

	if !m.stamp(ctx, result) || !resolved.notify {
		return
	}

	notified, err := m.emitter.Announce(ctx, activity.UpdateInput{
		OldVersion: result.StoredVersion,
		NewVersion: result.CurrentVersion,
		Outcome:    result.Outcome.String(),
		OccurredAt: now,
	}, result.ClearedAll)
	result.Notified = append(result.Notified, notified...)
	if err != nil {
		m.fail(result, "", fmt.Errorf("stamp: %w", err))
	}
}

func (m *Manager) removeKeys(ctx context.Context, keys []string, result *Result) {
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if m.cfg.registry.Reserved(key) {
			m.fail(result, key, fmt.Errorf("stamp: refusing to clear %q: %w", key, ErrReservedKey))
			continue
		}
		if err := m.store.Remove(ctx, key); err != nil {
			m.fail(result, key, fmt.Errorf("stamp: remove %q: %w", key, err))
			continue
		}
		result.Removed = append(result.Removed, key)
	}
}

func (m *Manager) stamp(ctx context.Context, result *Result) bool {
	key := m.cfg.registry.VersionKey()
	if err := m.store.Set(ctx, key, result.CurrentVersion); err != nil {
		m.fail(result, key, fmt.Errorf("stamp: write version tag: %w", err))
		return false
	}
	result.Stamped = true
	return true
}

func (m *Manager) fail(result *Result, key string, err error) {
	m.log(LogEvent{Level: LogWarn, Message: "version check step failed", Outcome: result.Outcome, Key: key, Err: err})
	result.Errors = append(result.Errors, err)
}

func (m *Manager) log(event LogEvent) {
	m.cfg.logger.Log(event)
}

// Status describes what a store currently holds.
type Status struct {
	Version     string
	HasVersion  bool
	LastCleanup time.Time
	// Present lists registry feature keys that hold a value.
	Present []string
	// Unknown lists stored keys the registry does not own.
	Unknown []string
}

// Status reads the store without modifying it.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := storage.Probe(ctx, m.store); err != nil {
		return Status{}, err
	}
	registry := m.cfg.registry
	var status Status

	raw, ok, err := m.store.Get(ctx, registry.VersionKey())
	if err != nil {
		return Status{}, fmt.Errorf("stamp: read version tag: %w", err)
	}
	status.Version, status.HasVersion = normalizeTag(raw), ok

	cleanup, ok, err := m.store.Get(ctx, registry.CleanupKey())
	if err != nil {
		return Status{}, fmt.Errorf("stamp: read cleanup record: %w", err)
	}
	if ok {
		if ms, err := strconv.ParseInt(strings.TrimSpace(cleanup), 10, 64); err == nil {
			status.LastCleanup = time.UnixMilli(ms)
		}
	}

	keys, err := m.store.Keys(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("stamp: list keys: %w", err)
	}
	for _, key := range keys {
		switch {
		case registry.Reserved(key):
		case registry.Contains(key):
			status.Present = append(status.Present, key)
		default:
			status.Unknown = append(status.Unknown, key)
		}
	}
	return status, nil
}

// Reset removes every registry feature key and writes the cleanup record.
// The version tag is kept.
func (m *Manager) Reset(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := storage.Probe(ctx, m.store); err != nil {
		return nil, err
	}
	var result Result
	m.removeKeys(ctx, m.cfg.registry.FeatureKeys(), &result)
	if err := m.store.Set(ctx, m.cfg.registry.CleanupKey(), strconv.FormatInt(m.cfg.clock().UnixMilli(), 10)); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("stamp: write cleanup record: %w", err))
	}
	return result.Removed, result.Err()
}

// normalizeTag accepts both raw and JSON-quoted version tags.
func normalizeTag(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, `"`) {
		var unquoted string
		if err := json.Unmarshal([]byte(raw), &unquoted); err == nil {
			return strings.TrimSpace(unquoted)
		}
	}
	return raw
}
