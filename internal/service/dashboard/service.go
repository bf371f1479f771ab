package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
)

const (
	CacheKey = "dashboard:stats"
	cacheTTL = 5 * time.Minute
)

type Stats struct {
	TotalRequests      int64 `json:"total_requests"`
	PendingRequests    int64 `json:"pending_requests"`
	InProgressRequests int64 `json:"inprogress_requests"`
	CompletedRequests  int64 `json:"completed_requests"`
	CancelledRequests  int64 `json:"cancelled_requests"`
	ActiveDonors       int64 `json:"active_donors"`
}

type Service interface {
	GetStats(ctx context.Context) (*Stats, error)
	Invalidate(ctx context.Context)
}

type service struct {
	requestRepo repository.DonationRequestRepository
	userRepo    repository.UserRepository
	redis       *redis.Client
}

func NewService(requestRepo repository.DonationRequestRepository, userRepo repository.UserRepository, redis *redis.Client) Service {
	return &service{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		redis:       redis,
	}
}

func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, CacheKey).Result(); err == nil {
			var stats Stats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	counts, err := s.requestRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	donors, err := s.userRepo.CountActiveDonors(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		PendingRequests:    counts[domain.StatusPending],
		InProgressRequests: counts[domain.StatusInProgress],
		CompletedRequests:  counts[domain.StatusCompleted],
		CancelledRequests:  counts[domain.StatusCancelled],
		ActiveDonors:       donors,
	}
	stats.TotalRequests = stats.PendingRequests + stats.InProgressRequests + stats.CompletedRequests + stats.CancelledRequests

	if s.redis != nil {
		if statsJSON, err := json.Marshal(stats); err == nil {
			_ = s.redis.Set(ctx, CacheKey, statsJSON, cacheTTL).Err()
		}
	}

	return stats, nil
}

func (s *service) Invalidate(ctx context.Context) {
	if s.redis != nil {
		s.redis.Del(ctx, CacheKey)
	}
}
