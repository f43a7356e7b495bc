package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/timesgrid/internal/advisor"
	"github.com/abhisek/timesgrid/internal/config"
	"github.com/abhisek/timesgrid/internal/journey"
	"github.com/abhisek/timesgrid/internal/llm"
	"github.com/abhisek/timesgrid/internal/logger"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/session"
	"github.com/abhisek/timesgrid/internal/store"
)

// runtimeOptions pick the optional parts of a runtime.
type runtimeOptions struct {
	// logToFile sends logs next to the database instead of stderr.
	logToFile bool

	// narrate attaches an LLM coach narrator to the advisor when a
	// provider is configured.
	narrate bool
}

// runtime holds everything a command needs, opened from config and flags.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.Store
	gen      *problemgen.Generator
	engine   *session.Engine
	journey  *journey.Resolver
	advisor  *advisor.Service
	provider llm.Provider
}

func openRuntime(cmd *cobra.Command, o runtimeOptions) (*runtime, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(config.Options{File: cfgFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}

	dsn, err := resolveDSN(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}

	var log *zap.Logger
	if o.logToFile {
		log, err = logger.NewFile(cfg.Env, logPath(cfg, dsn))
	} else {
		log, err = logger.New(cfg.Env)
	}
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	st, err := store.Open(ctx, cfg.Database.Driver, dsn, store.Options{MaxOpenConns: cfg.Database.MaxOpenConns})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}

	gen := problemgen.New(nil, cfg.GeneratorConfig())
	engine := session.NewEngine(session.Deps{
		Sessions:  st.SessionRepo(),
		Attempts:  st.AttemptRepo(),
		Progress:  st.ProgressRepo(),
		Settings:  st.SettingsRepo(),
		Generator: gen,
		Logger:    log,
	}, cfg.EngineConfig())

	r := &runtime{
		cfg:     cfg,
		logger:  log,
		store:   st,
		gen:     gen,
		engine:  engine,
		journey: journey.NewResolver(st.JourneyRepo(), log),
	}

	var narrator *advisor.Narrator
	if o.narrate {
		if pcfg, ok := cfg.ProviderConfig(); ok {
			provider, err := llm.NewProvider(ctx, pcfg, st.EventRepo(), log)
			if err != nil {
				log.Warn("llm provider unavailable, coach notes disabled", zap.Error(err))
			} else {
				r.provider = provider
				narrator = advisor.NewNarrator(provider, advisor.DefaultNarratorConfig())
			}
		}
	}
	r.advisor = advisor.NewService(st.ProgressRepo(), st.SessionRepo(), gen, narrator, log)
	return r, nil
}

// Close waits for queued attempts, closes storage and flushes the logger.
func (r *runtime) Close() {
	r.engine.Close()
	if err := r.store.Close(); err != nil {
		r.logger.Warn("close store", zap.Error(err))
	}
	_ = r.logger.Sync()
}

// student reads --email and --grade.
func student(cmd *cobra.Command) (session.Student, error) {
	email, _ := cmd.Flags().GetString("email")
	grade, _ := cmd.Flags().GetString("grade")
	if email == "" {
		return session.Student{}, errors.New("--email is required")
	}
	return session.Student{Email: email, GradeLevel: grade}, nil
}

// resolveDSN applies --db, then the configured DSN, then the default
// SQLite path.
func resolveDSN(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if cfg.Database.Driver == store.DriverPostgres {
		return cfg.Database.DSN, nil
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Database.DSN != "" {
		return cfg.Database.DSN, store.EnsureDir(cfg.Database.DSN)
	}
	return store.DefaultDBPath()
}

func logPath(cfg *config.Config, dsn string) string {
	if cfg.Database.Driver == store.DriverPostgres {
		return filepath.Join(os.TempDir(), "timesgrid.log")
	}
	return filepath.Join(filepath.Dir(dsn), "timesgrid.log")
}
