package donation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/clock"
	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
	"blood-donation/internal/pkg/i18n"
	"blood-donation/internal/pkg/metrics"
	"blood-donation/internal/service/donation"
	"blood-donation/internal/service/lifecycle"
	"blood-donation/internal/service/location"
	"blood-donation/internal/testutil"
)

type fixture struct {
	repo      *mocks.DonationRequestRepository
	locations *mocks.LocationService
	audit     *mocks.AuditService
	notifier  *mocks.NotificationService
	dashboard *mocks.DashboardService
	metrics   *metrics.Metrics
	svc       donation.Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:      new(mocks.DonationRequestRepository),
		locations: new(mocks.LocationService),
		audit:     new(mocks.AuditService),
		notifier:  new(mocks.NotificationService),
		dashboard: new(mocks.DashboardService),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	machine := lifecycle.NewMachine(clock.NewFixed(testutil.Now), testutil.Dhaka)
	f.svc = donation.NewService(f.repo, machine, f.locations, f.audit, f.notifier, f.dashboard, f.metrics, nil)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.repo.AssertExpectations(t)
	f.locations.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.dashboard.AssertExpectations(t)
}

func (f *fixture) expectSideEffects(ctx context.Context, action domain.Action) {
	f.audit.On("Record", ctx, mock.Anything, string(action), domain.EntityDonationRequest, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return().Once()
	f.notifier.On("NotifyTransition", ctx, action, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.dashboard.On("Invalidate", ctx).Return().Once()
}

func actorUser(a domain.Actor) *domain.User {
	return &domain.User{ID: a.ID, FullName: a.Name, Email: a.Email, Role: a.Role, Status: domain.UserActive}
}

func testLocations() *location.Hierarchy {
	return location.NewHierarchy(location.Dataset{
		Divisions: []domain.LocationNode{{ID: "6", EnName: "Dhaka"}, {ID: "1", EnName: "Chattogram"}},
		Districts: []domain.LocationNode{{ID: "47", EnName: "Dhaka", ParentID: "6"}},
		Upazilas:  []domain.LocationNode{{ID: "2", EnName: "Savar", ParentID: "47"}},
	})
}

func validInput() domain.CreateDonationRequestInput {
	return domain.CreateDonationRequestInput{
		RecipientName: "Rahim",
		Hospital:      "Dhaka Medical College",
		BloodGroup:    domain.BloodONeg,
		RequiredDate:  "2026-03-11",
		RequiredTime:  "10:00",
		Division:      "Dhaka",
		District:      "Dhaka",
		Upazila:       "Savar",
		FullAddress:   "Ward 3",
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	meta := domain.RequestMeta{IPAddress: "127.0.0.1"}
	requester := testutil.NewUser(domain.RoleDonor, "karim")

	t.Run("stores a pending request", func(t *testing.T) {
		f := newFixture()
		f.locations.On("Hierarchy", ctx).Return(testLocations()).Once()
		f.repo.On("Create", ctx, mock.MatchedBy(func(r *domain.DonationRequest) bool {
			return r.ID != uuid.Nil &&
				r.Status.Current == domain.StatusPending &&
				len(r.Status.History) == 1 &&
				r.Requester.ID == requester.ID &&
				r.DonationInfo.Urgency == domain.UrgencyNormal &&
				r.Donor == nil
		})).Return(nil).Once()
		f.audit.On("Record", ctx, requester.Actor(), "create", domain.EntityDonationRequest, mock.Anything, nil, mock.Anything, meta).Return().Once()
		f.dashboard.On("Invalidate", ctx).Return().Once()

		req, err := f.svc.Create(ctx, requester, validInput(), meta)
		require.NoError(t, err)
		assert.Equal(t, testutil.Now, req.CreatedAt)
		assert.Equal(t, float64(1), promtest.ToFloat64(f.metrics.Created))
		f.assertExpectations(t)
	})

	t.Run("guest is rejected", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.Create(ctx, nil, validInput(), meta)
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("past deadline is a validation error", func(t *testing.T) {
		f := newFixture()
		input := validInput()
		input.RequiredDate = "2026-03-09"

		_, err := f.svc.Create(ctx, requester, input, meta)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "required_date", verr.Field)
		assert.Equal(t, float64(1), promtest.ToFloat64(f.metrics.Rejections.WithLabelValues("create", "VALIDATION_ERROR")))
	})

	t.Run("mismatched location", func(t *testing.T) {
		f := newFixture()
		f.locations.On("Hierarchy", ctx).Return(testLocations()).Once()
		input := validInput()
		input.Division = "Chattogram"

		_, err := f.svc.Create(ctx, requester, input, meta)
		assert.ErrorIs(t, err, domain.ErrValidation)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_Donate(t *testing.T) {
	ctx := context.Background()
	meta := domain.RequestMeta{}
	requester := testutil.NewActor(domain.RoleDonor, "karim")
	donor := testutil.NewActor(domain.RoleDonor, "alice")

	t.Run("conditional write on loaded status and version", func(t *testing.T) {
		f := newFixture()
		req := testutil.PendingRequest(requester)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()
		f.repo.On("ApplyTransition", ctx, domain.StatusPending, 1, mock.MatchedBy(func(r *domain.DonationRequest) bool {
			return r.Status.Current == domain.StatusInProgress && r.Donor != nil && r.Donor.ID == donor.ID
		}), mock.MatchedBy(func(e domain.StatusEntry) bool {
			return e.Status == domain.StatusInProgress && e.ChangedBy.ID == donor.ID
		})).Return(nil).Once()
		f.expectSideEffects(ctx, domain.ActionDonate)

		updated, err := f.svc.Donate(ctx, req.ID, actorUser(donor), meta)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, updated.Status.Current)
		assert.Len(t, updated.Status.History, 2)
		assert.Equal(t, float64(1), promtest.ToFloat64(f.metrics.Transitions.WithLabelValues("donate", "inprogress")))
		f.assertExpectations(t)
	})

	t.Run("lost race surfaces precondition failed", func(t *testing.T) {
		f := newFixture()
		req := testutil.PendingRequest(requester)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()
		f.repo.On("ApplyTransition", ctx, domain.StatusPending, 1, mock.Anything, mock.Anything).Return(domain.ErrPreconditionFailed).Once()

		_, err := f.svc.Donate(ctx, req.ID, actorUser(donor), meta)
		assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
		assert.Equal(t, float64(1), promtest.ToFloat64(f.metrics.Conflicts))
		f.notifier.AssertNotCalled(t, "NotifyTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.audit.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("requester is refused before any write", func(t *testing.T) {
		f := newFixture()
		req := testutil.PendingRequest(requester)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()

		_, err := f.svc.Donate(ctx, req.ID, actorUser(requester), meta)
		assert.ErrorIs(t, err, domain.ErrSelfRequest)
		f.repo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing request", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		f.repo.On("GetByID", ctx, id).Return(nil, nil).Once()

		_, err := f.svc.Donate(ctx, id, actorUser(donor), meta)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("blocked user acts as guest", func(t *testing.T) {
		f := newFixture()
		req := testutil.PendingRequest(requester)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()
		blocked := actorUser(donor)
		blocked.Status = domain.UserBlocked

		_, err := f.svc.Donate(ctx, req.ID, blocked, meta)
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	})

	t.Run("notification failure does not fail the transition", func(t *testing.T) {
		f := newFixture()
		req := testutil.PendingRequest(requester)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()
		f.repo.On("ApplyTransition", ctx, domain.StatusPending, 1, mock.Anything, mock.Anything).Return(nil).Once()
		f.audit.On("Record", ctx, mock.Anything, "donate", domain.EntityDonationRequest, req.ID, mock.Anything, mock.Anything, meta).Return().Once()
		f.notifier.On("NotifyTransition", ctx, domain.ActionDonate, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
		f.dashboard.On("Invalidate", ctx).Return().Once()

		_, err := f.svc.Donate(ctx, req.ID, actorUser(donor), meta)
		assert.NoError(t, err)
		f.assertExpectations(t)
	})
}

func TestService_CompleteAndCancel(t *testing.T) {
	ctx := context.Background()
	meta := domain.RequestMeta{}
	requester := testutil.NewActor(domain.RoleDonor, "karim")
	donor := testutil.NewActor(domain.RoleDonor, "alice")

	t.Run("complete from inprogress", func(t *testing.T) {
		f := newFixture()
		req := testutil.InProgressRequest(requester, donor)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()
		f.repo.On("ApplyTransition", ctx, domain.StatusInProgress, 2, mock.Anything, mock.Anything).Return(nil).Once()
		f.expectSideEffects(ctx, domain.ActionComplete)

		updated, err := f.svc.Complete(ctx, req.ID, actorUser(donor), meta)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, updated.Status.Current)
		f.assertExpectations(t)
	})

	t.Run("complete from pending", func(t *testing.T) {
		f := newFixture()
		req := testutil.PendingRequest(requester)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()

		_, err := f.svc.Complete(ctx, req.ID, actorUser(requester), meta)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("cancel releases donor", func(t *testing.T) {
		f := newFixture()
		req := testutil.InProgressRequest(requester, donor)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()
		f.repo.On("ApplyTransition", ctx, domain.StatusInProgress, 2, mock.MatchedBy(func(r *domain.DonationRequest) bool {
			return r.Status.Current == domain.StatusCancelled && r.Donor == nil
		}), mock.Anything).Return(nil).Once()
		f.expectSideEffects(ctx, domain.ActionCancel)

		_, err := f.svc.Cancel(ctx, req.ID, actorUser(requester), meta)
		require.NoError(t, err)
		f.assertExpectations(t)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	requester := testutil.NewActor(domain.RoleDonor, "karim")

	f := newFixture()
	req := testutil.PendingRequest(requester)
	f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()
	f.repo.On("ApplyTransition", ctx, domain.StatusPending, 1, mock.MatchedBy(func(r *domain.DonationRequest) bool {
		return r.Recipient.Name == "Rahima" && r.Status.Current == domain.StatusPending
	}), mock.MatchedBy(func(e domain.StatusEntry) bool {
		return e.Note == lifecycle.NoteEdited
	})).Return(nil).Once()
	f.expectSideEffects(ctx, domain.ActionUpdate)

	input := domain.UpdateDonationRequestInput{RecipientName: testutil.Ptr("Rahima")}
	updated, err := f.svc.Update(ctx, req.ID, actorUser(requester), input, domain.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Rahima", updated.Recipient.Name)
	f.assertExpectations(t)
}

func TestService_ForceStatus(t *testing.T) {
	ctx := context.Background()
	requester := testutil.NewActor(domain.RoleDonor, "karim")
	donor := testutil.NewActor(domain.RoleDonor, "alice")
	volunteer := testutil.NewActor(domain.RoleVolunteer, "vera")

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.ForceStatus(ctx, uuid.New(), actorUser(volunteer), domain.ForceStatusInput{Status: "lost"}, domain.RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("moderator cannot reset to pending", func(t *testing.T) {
		f := newFixture()
		req := testutil.InProgressRequest(requester, donor)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()

		_, err := f.svc.ForceStatus(ctx, req.ID, actorUser(volunteer), domain.ForceStatusInput{Status: domain.StatusPending, Note: "no show"}, domain.RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		f.repo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("moderator cancels and releases the donor", func(t *testing.T) {
		f := newFixture()
		req := testutil.InProgressRequest(requester, donor)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()
		f.repo.On("ApplyTransition", ctx, domain.StatusInProgress, 2, mock.Anything, mock.Anything).Return(nil).Once()
		f.expectSideEffects(ctx, domain.ActionForceStatus)

		updated, err := f.svc.ForceStatus(ctx, req.ID, actorUser(volunteer), domain.ForceStatusInput{Status: domain.StatusCancelled, Note: "no show"}, domain.RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, updated.Status.Current)
		assert.Nil(t, updated.Donor)
		f.assertExpectations(t)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	requester := testutil.NewActor(domain.RoleDonor, "karim")
	donor := testutil.NewActor(domain.RoleDonor, "alice")
	allowed := []domain.RequestStatus{domain.StatusPending, domain.StatusCancelled}

	t.Run("pending", func(t *testing.T) {
		f := newFixture()
		req := testutil.PendingRequest(requester)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()
		f.repo.On("Delete", ctx, req.ID, 1, allowed).Return(nil).Once()
		f.audit.On("Record", ctx, mock.Anything, "delete", domain.EntityDonationRequest, req.ID, mock.Anything, nil, mock.Anything).Return().Once()
		f.dashboard.On("Invalidate", ctx).Return().Once()

		require.NoError(t, f.svc.Delete(ctx, req.ID, actorUser(requester), domain.RequestMeta{}))
		f.assertExpectations(t)
	})

	t.Run("inprogress is refused", func(t *testing.T) {
		f := newFixture()
		req := testutil.InProgressRequest(requester, donor)
		f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Once()

		err := f.svc.Delete(ctx, req.ID, actorUser(requester), domain.RequestMeta{})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_Actions(t *testing.T) {
	ctx := context.Background()
	requester := testutil.NewActor(domain.RoleDonor, "karim")
	donor := testutil.NewActor(domain.RoleDonor, "alice")

	f := newFixture()
	req := testutil.PendingRequest(requester)
	f.repo.On("GetByID", ctx, req.ID).Return(req, nil).Twice()

	set, err := f.svc.Actions(ctx, req.ID, actorUser(donor))
	require.NoError(t, err)
	assert.Equal(t, []domain.Action{domain.ActionDonate}, set.Visible)
	assert.True(t, set.Decisions[domain.ActionDonate].Allowed)
	assert.False(t, set.Expired)

	set, err = f.svc.Actions(ctx, req.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, set.Visible)
	assert.Equal(t, domain.ErrNotAuthorized.Code, set.Decisions[domain.ActionDonate].Reason)
}

func TestActionSet_Localize(t *testing.T) {
	require.NoError(t, i18n.LoadTranslations("../../../locales"))

	set := &donation.ActionSet{Decisions: map[domain.Action]lifecycle.Decision{
		domain.ActionDonate: {Reason: domain.ErrExpired.Code, Err: domain.ErrExpired},
		domain.ActionCancel: {Allowed: true},
	}}

	set.Localize("bn")
	assert.Equal(t, "এই অনুরোধের সময়সীমা পেরিয়ে গেছে।", set.Decisions[domain.ActionDonate].Message)
	assert.Equal(t, domain.ErrExpired.Code, set.Decisions[domain.ActionDonate].Reason)
	assert.Empty(t, set.Decisions[domain.ActionCancel].Message)

	set.Localize("en")
	assert.Equal(t, "This request's deadline has passed.", set.Decisions[domain.ActionDonate].Message)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	bad := domain.RequestStatus("open")
	_, err := f.svc.List(ctx, domain.ListRequestsFilter{Status: &bad}, domain.PaginationParams{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	status := domain.StatusPending
	filter := domain.ListRequestsFilter{Status: &status}
	f.repo.On("List", ctx, filter, domain.PaginationParams{Page: 1, Limit: 10}).Return([]domain.DonationRequest{}, int64(0), nil).Once()

	resp, err := f.svc.List(ctx, filter, domain.PaginationParams{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Data)
	f.assertExpectations(t)
}

func TestReasonCode(t *testing.T) {
	assert.Equal(t, "EXPIRED", donation.ReasonCode(domain.ErrExpired))
	assert.Equal(t, "VALIDATION_ERROR", donation.ReasonCode(domain.NewValidationError("x", "y")))
	assert.Equal(t, "INTERNAL_ERROR", donation.ReasonCode(errors.New("boom")))
}
