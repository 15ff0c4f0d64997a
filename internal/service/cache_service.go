package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

// CacheRepository persists cached payloads and per-namespace generations.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Generation(ctx context.Context, namespace string) (int64, error)
	Bump(ctx context.Context, namespace string) (int64, error)
}

// CacheService is a read-through helper over CacheRepository. Keys live in a
// namespace; Invalidate drops the whole namespace at once. A disabled or nil
// service always misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// CacheEntry pins a lookup to the namespace generation it was read under.
// Filling an entry after an Invalidate writes to the retired generation, so a
// value computed before the invalidation is never served afterwards.
type CacheEntry struct {
	namespace string
	key       string
	full      string
}

// Get loads namespace/key into dest and reports a hit. The returned entry is
// what Fill writes back to on a miss.
func (s *CacheService) Get(ctx context.Context, namespace, key string, dest interface{}) (CacheEntry, bool, error) {
	entry := CacheEntry{namespace: namespace, key: key}
	if !s.Enabled() {
		return entry, false, nil
	}
	start := time.Now()
	full, err := s.key(ctx, namespace, key)
	if err == nil {
		entry.full = full
		err = s.repo.Get(ctx, full, dest)
	}
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return entry, true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return entry, false, nil
	}
	s.logger.Warn("cache read failed", zap.String("namespace", namespace), zap.String("key", key), zap.Error(err))
	return entry, false, err
}

// Fill stores value under the generation entry was read at. ttl <= 0 uses
// the default. Entries whose generation could not be resolved are skipped.
func (s *CacheService) Fill(ctx context.Context, entry CacheEntry, value interface{}, ttl time.Duration) error {
	if !s.Enabled() || entry.full == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, entry.full, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("namespace", entry.namespace), zap.String("key", entry.key), zap.Error(err))
	}
	return err
}

// Invalidate discards every entry of namespace.
func (s *CacheService) Invalidate(ctx context.Context, namespace string) error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.repo.Bump(ctx, namespace); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("namespace", namespace), zap.Error(err))
		return err
	}
	return nil
}

func (s *CacheService) key(ctx context.Context, namespace, key string) (string, error) {
	gen, err := s.repo.Generation(ctx, namespace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:g%d:%s", namespace, gen, key), nil
}
