// Package app wires the configured components into running services. It is
// shared by the HTTP server and the command-line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"gstaudit/internal/config"
	"gstaudit/internal/email/noop"
	"gstaudit/internal/email/ses"
	"gstaudit/internal/ledger"
	redisledger "gstaudit/internal/ledger/redis"
	"gstaudit/internal/port"
	"gstaudit/internal/reasoning"
	_ "gstaudit/internal/reasoning/claude" // registers the "claude" provider
	_ "gstaudit/internal/reasoning/gemini" // registers the "gemini" provider
	_ "gstaudit/internal/reasoning/openai" // registers the "openai" provider
	"gstaudit/internal/refdata"
	"gstaudit/internal/repository/memory"
	"gstaudit/internal/repository/postgres"
	"gstaudit/internal/repository/sqlite"
	"gstaudit/internal/repository/sqlstore"
	"gstaudit/internal/service"
	s3storage "gstaudit/internal/storage/s3"
	"gstaudit/internal/validator"
)

// App holds the wired services.
type App struct {
	Config *config.Config
	Log    *zap.Logger

	// DB is the PostgreSQL pool, nil unless a component needs it.
	DB *sqlx.DB

	References   service.ReferenceService
	Validation   service.ValidationService
	Auth         service.AuthService
	ReloadWorker *service.ReloadWorker

	closers []func() error
}

// New builds every component described by cfg and loads the first reference
// snapshot. The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	log := a.Log

	if cfg.Reference.Source == "postgres" || cfg.Store.Provider == "postgres" {
		db, err := postgres.NewDB(ctx, &cfg.DB, log)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)
	}

	var storage port.AuditStorage
	if cfg.Reference.Source == "s3" || cfg.S3.ArchiveReports {
		var err error
		storage, err = s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	// Reference data
	loader := refdata.NewLoader(referenceSource(cfg, storage), log)
	if cfg.Reference.Source == "postgres" {
		loader.Repo = postgres.NewReferenceRepo(a.DB)
	}
	a.References = service.NewReferenceService(loader, log)
	if _, err := a.References.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load reference data: %w", err)
	}
	a.ReloadWorker = service.NewReloadWorker(a.References, service.ReloadWorkerConfig{
		Interval: cfg.Reference.ReloadInterval,
	}, log)

	led, err := a.ledger(ctx)
	if err != nil {
		return err
	}
	results, err := a.results()
	if err != nil {
		return err
	}

	engine, err := a.engine()
	if err != nil {
		return err
	}

	var notifier port.EscalationNotifier
	if cfg.Email.Provider == "ses" {
		notifier, err = ses.NewSESSender(ctx, &cfg.Email)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	} else {
		notifier = noop.NewNoopSender(log)
	}

	var archive *service.ReportArchive
	if cfg.S3.ArchiveReports {
		archive = &service.ReportArchive{
			Storage:       storage,
			Bucket:        cfg.S3.Bucket,
			Prefix:        cfg.S3.ReportPrefix,
			PresignExpiry: time.Duration(cfg.S3.PresignExpiry) * time.Second,
		}
	}

	a.Validation = service.NewValidationService(service.ValidationDeps{
		Engine: engine,
		Policy: validator.NewEscalationPolicy(validator.EscalationConfig{
			ConfidenceThreshold:      cfg.Validation.ConfidenceThreshold,
			HighValueThreshold:       cfg.Validation.HighValueThreshold,
			MultipleFailureThreshold: cfg.Validation.MultipleFailureThreshold,
		}),
		References:       a.References,
		Ledger:           led,
		Results:          results,
		Notifier:         notifier,
		Archive:          archive,
		BatchConcurrency: cfg.Validation.BatchConcurrency,
	}, log)

	a.Auth = service.NewAuthService(cfg.JWT, cfg.Auth.APIKeyHashes)
	return nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func referenceSource(cfg *config.Config, storage port.AuditStorage) refdata.Source {
	if cfg.Reference.Source == "s3" {
		return refdata.ObjectSource{Storage: storage, Bucket: cfg.S3.Bucket, Prefix: cfg.S3.ReferencePrefix}
	}
	return refdata.FSSource{FS: os.DirFS(cfg.Reference.Dir), Name: cfg.Reference.Dir}
}

func (a *App) ledger(ctx context.Context) (ledger.Ledger, error) {
	cfg := a.Config.Ledger
	switch cfg.Provider {
	case "memory":
		return ledger.NewMemory(), nil
	case "redis":
		l := redisledger.New(redisledger.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		})
		a.closers = append(a.closers, l.Close)
		if err := l.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach ledger redis: %w", err)
		}
		return l, nil
	}
	return nil, nil
}

func (a *App) results() (port.ResultRepository, error) {
	switch a.Config.Store.Provider {
	case "memory":
		return memory.NewResultRepo(), nil
	case "postgres":
		return sqlstore.NewResultRepo(a.DB), nil
	case "sqlite":
		db, err := sqlite.Open(a.Config.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return sqlstore.NewResultRepo(db), nil
	}
	return nil, nil
}

func (a *App) engine() (*validator.Engine, error) {
	cfg := a.Config
	registry, err := validator.DefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("building check registry: %w", err)
	}
	// The trigger is always wired: a complex invoice without a reasoner
	// degrades its augmentation points to reviewed warnings.
	opts := validator.EngineOptions{
		Disabled:           cfg.Validation.DisabledCategories(),
		MaxLineConcurrency: cfg.Validation.LineConcurrency,
		Complexity:         reasoning.NewTrigger(cfg.Reasoning.MaxLineItems, cfg.Reasoning.Keywords),
	}

	reasoner, err := reasoning.FromConfig(&cfg.Reasoning, a.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reasoning: %w", err)
	}
	if reasoner != nil {
		var retriever *reasoning.CorpusRetriever
		if dir := cfg.Reasoning.CorpusDir; dir != "" {
			retriever, err = reasoning.NewCorpusRetriever(os.DirFS(dir), reasoning.DefaultChunkSize, reasoning.DefaultChunkOverlap)
		} else {
			retriever, err = reasoning.DefaultCorpus()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to index regulation corpus: %w", err)
		}
		opts.Augmenter = reasoning.NewAugmenter(reasoner, retriever, reasoning.AugmenterConfig{
			Timeout: cfg.Reasoning.Timeout,
			RAGK:    cfg.Reasoning.RAGK,
		}, a.Log)
		a.Log.Info("app: reasoning enabled", zap.Int("corpus_passages", retriever.Len()))
	} else {
		a.Log.Info("app: no reasoner configured, complex invoices fall back to rule-based checks")
	}
	return validator.NewEngine(registry, opts, a.Log), nil
}
