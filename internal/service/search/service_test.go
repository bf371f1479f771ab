package search_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
	"blood-donation/internal/service/location"
	"blood-donation/internal/service/search"
)

func TestService_SearchDonors(t *testing.T) {
	ctx := context.Background()
	h := location.NewHierarchy(location.Dataset{
		Divisions: []domain.LocationNode{{ID: "6", EnName: "Dhaka"}},
		Districts: []domain.LocationNode{{ID: "47", EnName: "Dhaka", ParentID: "6"}},
	})

	t.Run("passes only present fields", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		locations := new(mocks.LocationService)
		svc := search.NewService(userRepo, locations, nil, nil)

		donors := []domain.DonorProfile{{ID: uuid.New(), FullName: "Alice", BloodGroup: domain.BloodOPos}}
		locations.On("Hierarchy", ctx).Return(h).Once()
		userRepo.On("SearchDonors", ctx,
			map[string]string{search.FieldBloodGroup: "O+", search.FieldDivision: "Dhaka"},
			domain.PaginationParams{Page: 1, Limit: 10},
		).Return(donors, int64(11), nil).Once()

		resp, err := svc.SearchDonors(ctx, search.NewFilter("O+", "Dhaka", "", ""), domain.PaginationParams{})
		require.NoError(t, err)
		assert.Equal(t, donors, resp.Data)
		assert.Equal(t, 2, resp.TotalPages)
		assert.True(t, resp.HasNext)

		userRepo.AssertExpectations(t)
		locations.AssertExpectations(t)
	})

	t.Run("invalid filter never queries", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		locations := new(mocks.LocationService)
		svc := search.NewService(userRepo, locations, nil, nil)

		locations.On("Hierarchy", ctx).Return(h).Once()

		_, err := svc.SearchDonors(ctx, search.NewFilter("", "Khulna", "", ""), domain.PaginationParams{})
		assert.ErrorIs(t, err, domain.ErrValidation)
		userRepo.AssertNotCalled(t, "SearchDonors", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		userRepo := new(mocks.UserRepository)
		svc := search.NewService(userRepo, nil, nil, nil)

		userRepo.On("SearchDonors", ctx, mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("db down")).Once()

		_, err := svc.SearchDonors(ctx, search.NewFilter("", "", "", ""), domain.PaginationParams{})
		assert.EqualError(t, err, "db down")
	})
}
