package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/location"
)

const (
	cachePrefix = "donors"
	cacheTTL    = 5 * time.Minute
)

type Service interface {
	SearchDonors(ctx context.Context, filter Filter, params domain.PaginationParams) (domain.PaginatedResponse[domain.DonorProfile], error)
	// InvalidateCache drops every cached directory page.
	InvalidateCache(ctx context.Context)
}

type service struct {
	userRepo  repository.UserRepository
	locations location.Service
	redis     *redis.Client
	logger    *zap.Logger
}

func NewService(userRepo repository.UserRepository, locations location.Service, redis *redis.Client, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		userRepo:  userRepo,
		locations: locations,
		redis:     redis,
		logger:    logger,
	}
}

func (s *service) SearchDonors(ctx context.Context, filter Filter, params domain.PaginationParams) (domain.PaginatedResponse[domain.DonorProfile], error) {
	params.Validate()

	var h *location.Hierarchy
	if s.locations != nil {
		h = s.locations.Hierarchy(ctx)
	}
	if err := filter.Validate(h); err != nil {
		return domain.PaginatedResponse[domain.DonorProfile]{}, err
	}

	key := filter.CacheKey(params.Page, params.Limit)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var resp domain.PaginatedResponse[domain.DonorProfile]
			if json.Unmarshal(cached, &resp) == nil {
				return resp, nil
			}
		}
	}

	donors, total, err := s.userRepo.SearchDonors(ctx, filter.Fields(), params)
	if err != nil {
		return domain.PaginatedResponse[domain.DonorProfile]{}, err
	}
	resp := domain.NewPaginatedResponse(donors, params.Page, params.Limit, total)

	if s.redis != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.redis.Set(ctx, key, data, cacheTTL).Err(); err != nil {
				s.logger.Debug("failed to cache donor search", zap.Error(err))
			}
		}
	}
	return resp, nil
}

func (s *service) InvalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	iter := s.redis.Scan(ctx, 0, cachePrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		s.redis.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("failed to invalidate donor search cache", zap.Error(err))
	}
}
