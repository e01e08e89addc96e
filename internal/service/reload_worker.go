package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReloadWorkerConfig holds settings for the reference reload worker.
type ReloadWorkerConfig struct {
	Interval time.Duration
	// Timeout bounds a single reload. Zero means one minute.
	Timeout time.Duration
}

// ReloadWorker periodically republishes the reference snapshot.
type ReloadWorker struct {
	refs ReferenceService
	cfg  ReloadWorkerConfig
	log  *zap.Logger
}

// NewReloadWorker creates a new ReloadWorker.
func NewReloadWorker(refs ReferenceService, cfg ReloadWorkerConfig, log *zap.Logger) *ReloadWorker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReloadWorker{refs: refs, cfg: cfg, log: log}
}

// Start runs the reload loop until ctx is canceled. A non-positive interval
// disables the worker and Start returns immediately.
func (w *ReloadWorker) Start(ctx context.Context) {
	if w.cfg.Interval <= 0 {
		w.log.Info("reloadWorker: disabled")
		return
	}
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.log.Info("reloadWorker: started", zap.Duration("interval", w.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("reloadWorker: shutdown complete")
			return
		case <-ticker.C:
			reloadCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
			stats, err := w.refs.Reload(reloadCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.log.Warn("reloadWorker: reload error", zap.Error(err))
				continue
			}
			w.log.Debug("reloadWorker: reloaded", zap.String("version", stats.Version))
		}
	}
}
