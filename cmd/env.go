package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/allocation"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/analysis"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/catalog"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/portfolio"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/scoring"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/store"
	"github.com/akhilrasineni/Risk-Profiling-System/pkg/anthropic"
)

// env bundles the wired subsystems for a command invocation.
type env struct {
	Store    store.Store
	Catalog  *catalog.Catalog
	Engine   *portfolio.Engine
	Builder  *allocation.Builder
	Analyzer *analysis.Client
}

// initEnv opens the configured store and wires the catalog, portfolio engine,
// allocation builder and collaborator client. When no API key is configured
// the collaborators are left nil and callers degrade to their fallbacks.
func initEnv(ctx context.Context) (*env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	// Schema is idempotent; keep every command runnable against a fresh file.
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "init: migrate")
	}

	cat := catalog.New(st)

	e := &env{
		Store:   st,
		Catalog: cat,
		Engine:  portfolio.NewEngine(cat),
	}

	if cfg.Anthropic.Key != "" {
		llm := anthropic.NewClient(cfg.Anthropic.Key)
		e.Analyzer = analysis.NewClient(llm, analysis.Config{
			Model:            cfg.Anthropic.Model,
			MaxTokens:        cfg.Anthropic.MaxTokens,
			RequestsPerSec:   cfg.Analysis.RequestsPerSec,
			MaxAttempts:      cfg.Analysis.MaxAttempts,
			InitialBackoffMs: cfg.Analysis.InitialBackoffMs,
			MaxBackoffMs:     cfg.Analysis.MaxBackoffMs,
			CircuitFailures:  cfg.Analysis.CircuitFailures,
			CircuitResetSecs: cfg.Analysis.CircuitResetSecs,
		})
		e.Builder = allocation.NewBuilder(e.Analyzer)
	} else {
		zap.L().Warn("no anthropic key configured; collaborator calls disabled, fallbacks in effect")
		e.Builder = allocation.NewBuilder(nil)
	}

	return e, nil
}

// behaviorAnalyzer returns the collaborator as the scoring interface. The
// explicit nil keeps an unconfigured *analysis.Client from turning into a
// non-nil interface value at the call sites.
func (e *env) behaviorAnalyzer() scoring.BehaviorAnalyzer {
	if e.Analyzer == nil {
		return nil
	}
	return e.Analyzer
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("closing store", zap.Error(err))
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		poolCfg := &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
