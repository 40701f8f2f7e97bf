package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	stamp "github.com/goliatone/go-stamp"
	"github.com/goliatone/go-stamp/internal/config"
	"github.com/goliatone/go-stamp/pkg/storage"
)

// runtime bundles what a command needs once configuration is resolved.
type runtime struct {
	cfg     config.Config
	report  config.LoadReport
	store   storage.Storage
	logger  *zap.Logger
	level   zap.AtomicLevel
	closers []func() error
}

func (d commandDeps) loadRuntime(cmd *cobra.Command, check config.CheckConfig) (*runtime, error) {
	flags := d.flagLayer(cmd)
	flags.Check = check
	cfg, report, err := config.Load(config.LoadOptions{
		Path:  d.globals.ConfigPath,
		Env:   d.env(),
		Flags: flags,
	})
	if err != nil {
		return nil, err
	}

	logger, level, err := newLogger(cfg.LogLevel(), cfg.LogFormat(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if d.globals.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}
	rt := &runtime{cfg: cfg, report: report, logger: logger, level: level}
	rt.closers = append(rt.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	store, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.store = store
	if closeStore != nil {
		rt.closers = append(rt.closers, closeStore)
	}
	logger.Debug("runtime ready",
		zap.String("driver", cfg.Driver()),
		zap.String("path", cfg.StorePath()),
		zap.Stringers("sources", report.Sources),
	)
	return rt, nil
}

func (r *runtime) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// manager builds a Manager from the registry and rule table of the config.
func (r *runtime) manager(opts ...stamp.Option) (*stamp.Manager, error) {
	registry, err := r.cfg.BuildRegistry()
	if err != nil {
		return nil, err
	}
	rules, err := r.cfg.BuildRules()
	if err != nil {
		return nil, err
	}
	base := []stamp.Option{
		stamp.WithRegistry(registry),
		stamp.WithRules(rules...),
		stamp.WithLogger(stamp.NewZapLogger(r.logger)),
		stamp.WithChannel(r.cfg.Channel()),
		stamp.WithActor(r.cfg.Actor()),
	}
	return stamp.NewManager(r.store, append(base, opts...)...)
}

func openStore(ctx context.Context, cfg config.Config) (storage.Storage, func() error, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch cfg.Driver() {
	case config.DriverMemory:
		return storage.NewMemory(), nil, nil
	case config.DriverSQLite:
		store, err := storage.OpenSQLite(ctx, cfg.StorePath())
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.DriverFile:
		store, err := storage.NewFile(cfg.StorePath())
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown store.driver %q", config.ErrInvalidConfig, cfg.Driver())
	}
}

func newLogger(level, format string, out io.Writer) (*zap.Logger, zap.AtomicLevel, error) {
	atomic := zap.NewAtomicLevel()
	if err := atomic.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, atomic, fmt.Errorf("%w: logging.level %q: %v", config.ErrInvalidConfig, level, err)
	}

	var encoder zapcore.Encoder
	switch format {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), atomic)
	return zap.New(core), atomic, nil
}
