package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gstaudit/internal/domain"
	"gstaudit/internal/refdata"
)

// ReferenceService owns the published reference snapshot.
type ReferenceService interface {
	// Reload builds a fresh snapshot and swaps it in. On failure the previous
	// snapshot stays published.
	Reload(ctx context.Context) (refdata.Stats, error)
	// Current returns the published snapshot, or nil before the first load.
	Current() *refdata.Snapshot
	LookupRate(code string, asOf time.Time) (refdata.RateLookup, error)
}

type referenceService struct {
	loader *refdata.Loader
	store  *refdata.Store
	mu     sync.Mutex
	log    *zap.Logger
}

func NewReferenceService(loader *refdata.Loader, log *zap.Logger) ReferenceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &referenceService{loader: loader, store: refdata.NewStore(nil), log: log}
}

func (s *referenceService) Reload(ctx context.Context) (refdata.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loader.Load(ctx)
	if err != nil {
		s.log.Error("service.ReferenceService: reload failed, keeping previous snapshot", zap.Error(err))
		return refdata.Stats{}, err
	}
	prev := s.store.Swap(snap)
	fields := []zap.Field{zap.String("version", snap.Version)}
	if prev != nil {
		fields = append(fields, zap.String("previous_version", prev.Version))
	}
	s.log.Info("service.ReferenceService: snapshot published", fields...)
	return snap.Stats(), nil
}

func (s *referenceService) Current() *refdata.Snapshot {
	return s.store.Current()
}

func (s *referenceService) LookupRate(code string, asOf time.Time) (refdata.RateLookup, error) {
	snap := s.store.Current()
	if snap == nil {
		return refdata.RateLookup{}, domain.ErrReferenceUnavailable
	}
	return snap.Rates.GetRate(code, asOf)
}
