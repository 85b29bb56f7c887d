package cache

import (
	"context"
	"time"

	"cueclub/backend/internal/domain"
)

// EstimateCache holds short-lived live-bill estimates keyed by session so the
// floor display can poll without recomputing on every request.
type EstimateCache interface {
	Get(ctx context.Context, key string) (*domain.LiveEstimate, bool, error)
	Set(ctx context.Context, key string, value *domain.LiveEstimate, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopEstimateCache struct{}

func (NoopEstimateCache) Get(_ context.Context, _ string) (*domain.LiveEstimate, bool, error) {
	return nil, false, nil
}

func (NoopEstimateCache) Set(_ context.Context, _ string, _ *domain.LiveEstimate, _ time.Duration) error {
	return nil
}

func (NoopEstimateCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
