// Package commands implements the gitsleuth CLI command handlers.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gitsleuth/gitsleuth/internal/attribution"
	"github.com/gitsleuth/gitsleuth/internal/config"
	"github.com/gitsleuth/gitsleuth/internal/diffcore"
	"github.com/gitsleuth/gitsleuth/internal/identity"
	"github.com/gitsleuth/gitsleuth/internal/observability"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
	"github.com/gitsleuth/gitsleuth/pkg/version"
)

// engineSource builds an attribution engine for a repository path. The
// returned release func frees the underlying store. Tests substitute an
// in-memory source.
type engineSource func(repoPath string, cfg *config.Config, opts attribution.Options) (*attribution.Engine, func(), error)

// session wires config, telemetry, the object store, and the engine for one
// command invocation.
type session struct {
	Config *config.Config
	Engine *attribution.Engine
	Logger *slog.Logger

	providers observability.Providers
	commands  *observability.CommandMetrics
	diag      *observability.DiagnosticsServer
	release   func()
}

// openSession loads configuration (tweak applies flag overrides before
// validation), initializes telemetry, and builds the engine.
func openSession(repoPath, configPath string, tweak func(*config.Config), engines engineSource) (*session, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if tweak != nil {
		tweak(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	providers, err := observability.Init(observability.Config{
		ServiceName:    "gitsleuth",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
		LogLevel:       cfg.Logging.SlogLevel(),
		LogJSON:        cfg.Logging.JSONLogs(),
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	sess := &session{Config: cfg, Logger: providers.Logger, providers: providers}

	cmdMetrics, err := observability.NewCommandMetrics(providers.Meter)
	if err != nil {
		sess.Close()

		return nil, err
	}

	sess.commands = cmdMetrics

	pipeMetrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		sess.Close()

		return nil, err
	}

	opts, err := engineOptions(cfg, providers.Logger, pipeMetrics)
	if err != nil {
		sess.Close()

		return nil, err
	}

	engine, release, err := engines(repoPath, cfg, opts)
	if err != nil {
		sess.Close()

		return nil, err
	}

	sess.Engine = engine
	sess.release = release

	if cfg.Telemetry.DiagnosticsAddr != "" {
		diag, err := observability.NewDiagnosticsServer(
			cfg.Telemetry.DiagnosticsAddr, providers.MetricsHandler, engineReady(engine))
		if err != nil {
			sess.Close()

			return nil, err
		}

		sess.diag = diag
	}

	return sess, nil
}

// Close releases the store, stops the diagnostics server, and flushes
// telemetry.
func (s *session) Close() {
	if s.diag != nil {
		if err := s.diag.Close(); err != nil {
			s.Logger.Warn("close diagnostics server", "error", err)
		}
	}

	if s.release != nil {
		s.release()
	}

	if err := s.providers.Shutdown(context.Background()); err != nil {
		s.Logger.Warn("flush telemetry", "error", err)
	}
}

// recordOutcome reports one command's status and duration.
func (s *session) recordOutcome(ctx context.Context, command string, start time.Time, err error) {
	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
	}

	s.commands.RecordCommand(ctx, command, status, time.Since(start))
}

// engineOptions maps the config onto pipeline options.
func engineOptions(cfg *config.Config, logger *slog.Logger, metrics *observability.PipelineMetrics) (attribution.Options, error) {
	resolver := identity.NewResolver()
	if cfg.Identity.ExactMatching {
		resolver = identity.NewExactResolver()
	}

	if cfg.Identity.PeopleFile != "" {
		if err := resolver.LoadPeopleFile(cfg.Identity.PeopleFile); err != nil {
			return attribution.Options{}, fmt.Errorf("load people file: %w", err)
		}
	}

	return attribution.Options{
		Head:    cfg.Repository.Head,
		Workers: cfg.Analysis.Workers,
		Diff: diffcore.Options{
			SkipPrefixes:        cfg.Analysis.ExcludePrefixes,
			SkipVendored:        cfg.Analysis.SkipVendored,
			DisableRenames:      cfg.Analysis.DisableRenames,
			MinRenameSimilarity: cfg.Analysis.RenameSimilarity,
			MaxFileSize:         cfg.Analysis.MaxFileSize,
			DiffTimeout:         cfg.Analysis.DiffTimeout,
		},
		HibernationThreshold: cfg.Analysis.HibernationThreshold,
		IncludeUnknown:       cfg.Analysis.IncludeUnknown,
		Resolver:             resolver,
		Logger:               logger,
		Metrics:              metrics,
	}, nil
}

// gitEngineSource opens the on-disk repository behind the cache and timeout
// decorators.
func gitEngineSource(repoPath string, cfg *config.Config, opts attribution.Options) (*attribution.Engine, func(), error) {
	cacheBytes, err := cfg.Repository.CacheBytes()
	if err != nil {
		return nil, nil, err
	}

	git, err := gitobj.OpenGitStore(repoPath, cfg.Repository.PoolSize)
	if err != nil {
		return nil, nil, err
	}

	cached := gitobj.NewCachedStore(git, cacheBytes)
	opts.CacheStats = cached.Stats

	var store gitobj.Store = cached
	if cfg.Repository.StoreTimeout > 0 {
		store = gitobj.NewTimeoutStore(cached, cfg.Repository.StoreTimeout)
	}

	release := func() {
		cached.Close()
		git.Close()
	}

	return attribution.NewEngine(store, opts), release, nil
}

// engineReady gates /readyz on the engine having published results.
func engineReady(engine *attribution.Engine) observability.ReadyCheck {
	return func(context.Context) error {
		if engine.State() != attribution.Ready {
			return attribution.ErrNotReady
		}

		return nil
	}
}
