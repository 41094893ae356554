package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/focusql/internal/cache"
	"github.com/roach88/focusql/internal/compiler"
	"github.com/roach88/focusql/internal/config"
	"github.com/roach88/focusql/internal/engine"
	"github.com/roach88/focusql/internal/logging"
	"github.com/roach88/focusql/internal/query"
	"github.com/roach88/focusql/internal/registry"
	"github.com/roach88/focusql/internal/store"
)

// Runtime is the wired pipeline a command runs against.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *registry.Registry
	Cache    *cache.Cache
	Journal  *store.Store // nil when journal.path is empty
	Compiler *compiler.Compiler

	sweeper *cache.Sweeper
}

// loadConfig reads the configured file, mapping failures to
// ExitCommandError.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, verbose bool, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if verbose {
		level = slog.LevelDebug
	}
	return logging.New(w, level, cfg.Log.Format == "json"), nil
}

// openRuntime wires config, cache, journal, engine and compiler. Logs
// go to logOut. Callers must Close the runtime.
func openRuntime(opts *RootOptions, logOut io.Writer) (*Runtime, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, opts.Verbose, logOut)
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded", "config", cfg.String())

	rt := &Runtime{Config: cfg, Logger: logger, Registry: registry.Default()}
	if err := rt.openCache(opts); err != nil {
		rt.Close()
		return nil, err
	}
	if cfg.Journal.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
			rt.Close()
			return nil, WrapExitError(ExitCommandError, "failed to create journal directory", err)
		}
		st, err := store.Open(cfg.Journal.Path)
		if err != nil {
			rt.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		rt.Journal = st
	}

	engineOpts := []engine.Option{
		engine.WithBinary(cfg.Host.Binary, cfg.Host.Language),
		engine.WithTimeouts(cfg.Host.ReadTimeout.Std(), cfg.Host.WriteTimeout.Std()),
		engine.WithTempDir(cfg.Host.TempDir),
		engine.WithLogger(logger),
	}
	compilerOpts := []compiler.Option{
		compiler.WithCache(rt.Cache),
		compiler.WithLogger(logger),
		compiler.WithLimits(query.Limits{Default: cfg.Query.DefaultLimit, Max: cfg.Query.MaxLimit}),
		compiler.WithApplication(cfg.Host.Application),
	}
	if opts.Runner != nil {
		engineOpts = append(engineOpts, engine.WithRunner(opts.Runner))
	}
	if opts.Now != nil {
		engineOpts = append(engineOpts, engine.WithClock(opts.Now))
		compilerOpts = append(compilerOpts, compiler.WithClock(opts.Now))
	}
	if rt.Journal != nil {
		compilerOpts = append(compilerOpts, compiler.WithJournal(rt.Journal))
	}
	rt.Compiler = compiler.New(rt.Registry, engine.New(engineOpts...), compilerOpts...)
	return rt, nil
}

func (rt *Runtime) openCache(opts *RootOptions) error {
	cfg := rt.Config.Cache
	cacheOpts := []cache.Option{cache.WithLogger(rt.Logger)}
	for name, ttl := range cfg.TTL {
		cacheOpts = append(cacheOpts, cache.WithTTL(name, ttl.Std()))
	}

	switch cfg.Backend {
	case config.CacheMemory:
		backend := cache.NewMemoryBackend(cfg.MaxEntries, opts.Now)
		sweeper, err := cache.StartSweeper(backend, cfg.SweepInterval.Std(), rt.Logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start cache sweeper", err)
		}
		rt.sweeper = sweeper
		rt.Cache = cache.New(backend, cacheOpts...)
	case config.CacheBadger:
		backend, err := cache.OpenBadger(cfg.Dir)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open cache", err)
		}
		rt.Cache = cache.New(backend, cacheOpts...)
	default:
		rt.Cache = cache.New(nil, cacheOpts...)
	}
	return nil
}

// Close stops the sweeper and closes the cache and journal.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.sweeper != nil {
		errs = append(errs, rt.sweeper.Stop())
	}
	if rt.Cache != nil {
		errs = append(errs, rt.Cache.Close())
	}
	if rt.Journal != nil {
		errs = append(errs, rt.Journal.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close runtime: %w", err)
	}
	return nil
}
