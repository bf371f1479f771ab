package dashboard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
	"blood-donation/internal/service/dashboard"
)

func TestService_GetStats(t *testing.T) {
	ctx := context.Background()

	t.Run("totals without cache", func(t *testing.T) {
		requestRepo := new(mocks.DonationRequestRepository)
		userRepo := new(mocks.UserRepository)
		svc := dashboard.NewService(requestRepo, userRepo, nil)

		requestRepo.On("CountByStatus", ctx).Return(map[domain.RequestStatus]int64{
			domain.StatusPending:    4,
			domain.StatusInProgress: 2,
			domain.StatusCompleted:  7,
			domain.StatusCancelled:  1,
		}, nil).Once()
		userRepo.On("CountActiveDonors", ctx).Return(int64(30), nil).Once()

		stats, err := svc.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &dashboard.Stats{
			TotalRequests:      14,
			PendingRequests:    4,
			InProgressRequests: 2,
			CompletedRequests:  7,
			CancelledRequests:  1,
			ActiveDonors:       30,
		}, stats)

		svc.Invalidate(ctx)
	})

	t.Run("count failure", func(t *testing.T) {
		requestRepo := new(mocks.DonationRequestRepository)
		svc := dashboard.NewService(requestRepo, new(mocks.UserRepository), nil)
		requestRepo.On("CountByStatus", ctx).Return(nil, errors.New("db down")).Once()

		_, err := svc.GetStats(ctx)
		assert.Error(t, err)
	})
}
