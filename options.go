package stamp

import (
	"strings"
	"time"

	"github.com/goliatone/go-stamp/pkg/activity"
)

// Option configures a Manager.
type Option func(*managerConfig)

type managerConfig struct {
	registry      Registry
	rules         []Rule
	engine        *Engine
	activityHooks activity.Hooks
	channel       string
	actorID       string
	logger        Logger
	clock         func() time.Time
}

func applyOptions(opts []Option) managerConfig {
	cfg := managerConfig{
		registry: DefaultRegistry(),
		logger:   noopLogger{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithRegistry replaces the SpendSentinel key layout.
func WithRegistry(registry Registry) Option {
	return func(cfg *managerConfig) {
		cfg.registry = registry
	}
}

// WithRules appends migration rules. They are validated when the Manager is
// built.
func WithRules(rules ...Rule) Option {
	return func(cfg *managerConfig) {
		cfg.rules = append(cfg.rules, rules...)
	}
}

// WithEngine uses a prepared rules engine. Rules passed through WithRules
// run after the engine's own.
func WithEngine(engine *Engine) Option {
	return func(cfg *managerConfig) {
		cfg.engine = engine
	}
}

// WithLogger routes manager events to logger.
func WithLogger(logger Logger) Option {
	return func(cfg *managerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithClock overrides time.Now for the cleanup record and notifications.
func WithClock(clock func() time.Time) Option {
	return func(cfg *managerConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithChannel sets the channel stamped on notifications.
func WithChannel(channel string) Option {
	return func(cfg *managerConfig) {
		cfg.channel = strings.TrimSpace(channel)
	}
}

// WithActor sets the actor id stamped on notifications.
func WithActor(actorID string) Option {
	return func(cfg *managerConfig) {
		cfg.actorID = strings.TrimSpace(actorID)
	}
}
