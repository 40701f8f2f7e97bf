package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	stamp "github.com/goliatone/go-stamp"
	"github.com/goliatone/go-stamp/layering"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"

	defaultDriver    = DriverFile
	defaultStorePath = "stamp-state.json"
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the CLI configuration. Every scalar is a pointer so a layer can
// leave it unset and let a weaker layer decide.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
	Registry RegistryConfig `yaml:"registry"`
	Check    CheckConfig    `yaml:"check"`
	Rules    []RuleConfig   `yaml:"rules"`
}

type StoreConfig struct {
	Driver *string `yaml:"driver"`
	Path   *string `yaml:"path"`
}

type LoggingConfig struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

type RegistryConfig struct {
	VersionKey *string  `yaml:"version_key"`
	CleanupKey *string  `yaml:"cleanup_key"`
	Features   []string `yaml:"features"`
}

type CheckConfig struct {
	CurrentVersion        *string  `yaml:"current_version"`
	ClearAllOnMajorUpdate *bool    `yaml:"clear_all_on_major_update"`
	ClearSpecificKeys     []string `yaml:"clear_specific_keys"`
	MigrateData           *bool    `yaml:"migrate_data"`
	ShowUserNotification  *bool    `yaml:"show_user_notification"`
	Channel               *string  `yaml:"channel"`
	Actor                 *string  `yaml:"actor"`
}

// RuleConfig is one row of the migration table as written in YAML.
type RuleConfig struct {
	Threshold   string         `yaml:"threshold"`
	Action      string         `yaml:"action"`
	Keys        []string       `yaml:"keys"`
	Engine      string         `yaml:"engine,omitempty"`
	Expr        string         `yaml:"expr,omitempty"`
	Args        map[string]any `yaml:"args,omitempty"`
	Description string         `yaml:"description,omitempty"`
}

type LoadOptions struct {
	Path  string
	Env   map[string]string
	Flags Config
}

type LoadReport struct {
	Sources    []layering.Source
	Provenance map[string]layering.Source
}

func DefaultConfig() Config {
	registry := stamp.DefaultRegistry()
	defaults := stamp.DefaultConfig()
	return Config{
		Store: StoreConfig{
			Driver: ptr(defaultDriver),
			Path:   ptr(defaultStorePath),
		},
		Logging: LoggingConfig{
			Level:  ptr(defaultLogLevel),
			Format: ptr(defaultLogFormat),
		},
		Registry: RegistryConfig{
			VersionKey: ptr(registry.VersionKey()),
			CleanupKey: ptr(registry.CleanupKey()),
			Features:   registry.FeatureKeys(),
		},
		Check: CheckConfig{
			ClearAllOnMajorUpdate: defaults.ClearAllOnMajorUpdate,
			MigrateData:           defaults.MigrateData,
			ShowUserNotification:  defaults.ShowUserNotification,
		},
	}
}

// Load resolves flags > env > file > defaults. A missing file is not an
// error unless the path was given explicitly.
func Load(opts LoadOptions) (Config, LoadReport, error) {
	layers := []layering.Layer[Config]{
		{Source: layering.SourceDefaults, Snapshot: DefaultConfig()},
	}

	fileLayer, err := loadFile(opts.Path)
	if err != nil {
		return Config{}, LoadReport{}, err
	}
	layers = append(layers, layering.Layer[Config]{Source: layering.SourceFile, Snapshot: fileLayer})

	envLayer, err := envConfig(opts.Env)
	if err != nil {
		return Config{}, LoadReport{}, err
	}
	layers = append(layers,
		layering.Layer[Config]{Source: layering.SourceEnv, Snapshot: envLayer},
		layering.Layer[Config]{Source: layering.SourceFlags, Snapshot: opts.Flags},
	)

	chain := layering.NewChain(layers...)
	cfg := chain.Resolve()
	if err := cfg.Validate(); err != nil {
		return Config{}, LoadReport{}, err
	}
	return cfg, LoadReport{Sources: chain.Sources(), Provenance: chain.Provenance()}, nil
}

func loadFile(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: parse YAML: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func envConfig(env map[string]string) (Config, error) {
	var cfg Config
	lookup := func(name string) (string, bool) {
		value, ok := env[name]
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if v, ok := lookup("STAMP_STORE_DRIVER"); ok {
		cfg.Store.Driver = ptr(v)
	}
	if v, ok := lookup("STAMP_STORE_PATH"); ok {
		cfg.Store.Path = ptr(v)
	}
	if v, ok := lookup("STAMP_LOG_LEVEL"); ok {
		cfg.Logging.Level = ptr(v)
	}
	if v, ok := lookup("STAMP_LOG_FORMAT"); ok {
		cfg.Logging.Format = ptr(v)
	}
	if v, ok := lookup("STAMP_CURRENT_VERSION"); ok {
		cfg.Check.CurrentVersion = ptr(v)
	}
	if v, ok := lookup("STAMP_CHANNEL"); ok {
		cfg.Check.Channel = ptr(v)
	}
	if v, ok := lookup("STAMP_CLEAR_KEYS"); ok {
		cfg.Check.ClearSpecificKeys = splitList(v)
	}
	bools := []struct {
		name   string
		target **bool
	}{
		{"STAMP_CLEAR_ALL", &cfg.Check.ClearAllOnMajorUpdate},
		{"STAMP_MIGRATE", &cfg.Check.MigrateData},
		{"STAMP_NOTIFY", &cfg.Check.ShowUserNotification},
	}
	for _, b := range bools {
		v, ok := lookup(b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, b.name, v, err)
		}
		*b.target = ptr(parsed)
	}
	return cfg, nil
}

// Validate checks a resolved configuration.
func (c Config) Validate() error {
	switch c.Driver() {
	case DriverFile, DriverSQLite:
		if c.StorePath() == "" {
			return fmt.Errorf("%w: store.path is required for the %s driver", ErrInvalidConfig, c.Driver())
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Driver())
	}
	switch c.LogFormat() {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown logging.format %q", ErrInvalidConfig, c.LogFormat())
	}
	for i, rule := range c.Rules {
		switch stamp.Action(rule.Action) {
		case stamp.ActionRemove:
		case stamp.ActionTransform:
			if strings.TrimSpace(rule.Expr) == "" {
				return fmt.Errorf("%w: rules[%d]: transform needs expr", ErrInvalidConfig, i)
			}
		default:
			return fmt.Errorf("%w: rules[%d]: unknown action %q", ErrInvalidConfig, i, rule.Action)
		}
	}
	return nil
}

func (c Config) Driver() string {
	return strings.ToLower(deref(c.Store.Driver))
}

func (c Config) StorePath() string {
	return deref(c.Store.Path)
}

func (c Config) LogLevel() string {
	return strings.ToLower(deref(c.Logging.Level))
}

func (c Config) LogFormat() string {
	return strings.ToLower(deref(c.Logging.Format))
}

func (c Config) Channel() string {
	return deref(c.Check.Channel)
}

func (c Config) Actor() string {
	return deref(c.Check.Actor)
}

// StampConfig converts the check section into the library invocation.
func (c Config) StampConfig() stamp.Config {
	return stamp.Config{
		CurrentVersion:        deref(c.Check.CurrentVersion),
		ClearAllOnMajorUpdate: c.Check.ClearAllOnMajorUpdate,
		ClearSpecificKeys:     append([]string(nil), c.Check.ClearSpecificKeys...),
		MigrateData:           c.Check.MigrateData,
		ShowUserNotification:  c.Check.ShowUserNotification,
	}
}

func (c Config) BuildRegistry() (stamp.Registry, error) {
	registry, err := stamp.NewRegistry(deref(c.Registry.VersionKey), deref(c.Registry.CleanupKey), c.Registry.Features...)
	if err != nil {
		return stamp.Registry{}, fmt.Errorf("%w: registry: %v", ErrInvalidConfig, err)
	}
	return registry, nil
}

// BuildRules compiles the rule table. Expressions of one engine share a
// program cache and the version helper functions.
func (c Config) BuildRules() ([]stamp.Rule, error) {
	evaluators := map[string]stamp.Evaluator{}
	cache := stamp.NewProgramCache()
	functions := stamp.DefaultFunctions()

	rules := make([]stamp.Rule, 0, len(c.Rules))
	for i, rc := range c.Rules {
		rule := stamp.Rule{
			Threshold:   strings.TrimSpace(rc.Threshold),
			Keys:        append([]string(nil), rc.Keys...),
			Action:      stamp.Action(rc.Action),
			Description: rc.Description,
		}
		if rule.Action == stamp.ActionTransform {
			engine := strings.ToLower(strings.TrimSpace(rc.Engine))
			evaluator, ok := evaluators[engine]
			if !ok {
				var err error
				evaluator, err = stamp.NewEvaluator(engine, cache, functions)
				if err != nil {
					return nil, fmt.Errorf("rules[%d]: %w", i, err)
				}
				evaluators[engine] = evaluator
			}
			transform, err := stamp.ExprTransform(evaluator, rc.Expr, rc.Args)
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: %w", i, err)
			}
			rule.Transform = transform
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// EnvMap snapshots os.Environ into a map.
func EnvMap() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok {
			out[key] = value
		}
	}
	return out
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
