package location

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
)

const (
	cacheKey = "locations:hierarchy"
	cacheTTL = 24 * time.Hour
)

var ErrEmptyDataset = errors.New("location dataset has no divisions")

type Service interface {
	Hierarchy(ctx context.Context) *Hierarchy
	Divisions(ctx context.Context) []domain.LocationNode
	DistrictsOf(ctx context.Context, division string) []domain.LocationNode
	UpazilasOf(ctx context.Context, district string) []domain.LocationNode
	Reload(ctx context.Context) error
}

type service struct {
	source Source
	redis  *redis.Client
	logger *zap.Logger

	mu        sync.RWMutex
	hierarchy *Hierarchy
}

func NewService(source Source, redis *redis.Client, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{source: source, redis: redis, logger: logger}
}

// Hierarchy returns the loaded hierarchy, loading it on first use from the
// cache or the source. Load failures are logged and yield a nil hierarchy,
// which answers every lookup with an empty list.
func (s *service) Hierarchy(ctx context.Context) *Hierarchy {
	s.mu.RLock()
	h := s.hierarchy
	s.mu.RUnlock()
	if h != nil {
		return h
	}

	if err := s.load(ctx); err != nil {
		s.logger.Warn("location reference data unavailable", zap.Error(err))
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hierarchy
}

func (s *service) Divisions(ctx context.Context) []domain.LocationNode {
	return s.Hierarchy(ctx).Divisions()
}

func (s *service) DistrictsOf(ctx context.Context, division string) []domain.LocationNode {
	return s.Hierarchy(ctx).DistrictsOf(division)
}

func (s *service) UpazilasOf(ctx context.Context, district string) []domain.LocationNode {
	return s.Hierarchy(ctx).UpazilasOf(district)
}

func (s *service) load(ctx context.Context) error {
	if ds, err := s.cached(ctx); err == nil && len(ds.Divisions) > 0 {
		s.install(ds)
		return nil
	}
	return s.Reload(ctx)
}

// Reload reads the source and replaces both the cached copy and the served
// hierarchy. An empty dataset evicts the cache and keeps the previous hierarchy.
func (s *service) Reload(ctx context.Context) error {
	ds, err := s.source.Load(ctx)
	if err != nil {
		return err
	}
	if len(ds.Divisions) == 0 {
		s.evict(ctx)
		return ErrEmptyDataset
	}

	s.store(ctx, ds)
	s.install(ds)
	return nil
}

func (s *service) install(ds Dataset) {
	for _, p := range Problems(ds) {
		s.logger.Warn("dropping orphan location", zap.String("problem", p))
	}

	h := NewHierarchy(ds)
	s.mu.Lock()
	s.hierarchy = h
	s.mu.Unlock()

	s.logger.Info("location reference data loaded",
		zap.Int("divisions", len(ds.Divisions)),
		zap.Int("districts", len(ds.Districts)),
		zap.Int("upazilas", len(ds.Upazilas)),
	)
}

func (s *service) cached(ctx context.Context) (Dataset, error) {
	var ds Dataset
	if s.redis == nil {
		return ds, redis.Nil
	}
	raw, err := s.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return ds, err
	}
	if err := json.Unmarshal(raw, &ds); err != nil {
		return ds, err
	}
	return ds, nil
}

func (s *service) store(ctx context.Context, ds Dataset) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(ds)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey, data, cacheTTL).Err(); err != nil {
		s.logger.Debug("failed to cache location data", zap.Error(err))
	}
}

func (s *service) evict(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Debug("failed to evict location data", zap.Error(err))
	}
}
