package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
	"blood-donation/internal/service/notification"
	"blood-donation/internal/testutil"
)

func TestService_NotifyTransition(t *testing.T) {
	ctx := context.Background()
	requester := testutil.NewActor(domain.RoleDonor, "karim")
	donor := testutil.NewActor(domain.RoleDonor, "alice")
	volunteer := testutil.NewActor(domain.RoleVolunteer, "vera")

	t.Run("donate notifies the requester and emails", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		emailSvc := new(mocks.EmailService)
		svc := notification.NewService(notifRepo, emailSvc, nil)

		before := testutil.PendingRequest(requester)
		after := testutil.InProgressRequest(requester, donor)
		after.ID = before.ID

		notifRepo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.UserID == requester.ID && n.Type == domain.NotifDonorCommitted
		})).Return(nil).Once()

		sent := make(chan struct{})
		emailSvc.On("SendDonorCommitted", mock.Anything, requester.Email, requester.Name, donor.Name, "Rahim", "Dhaka Medical College").
			Return(nil).Once().
			Run(func(mock.Arguments) { close(sent) })

		require.NoError(t, svc.NotifyTransition(ctx, domain.ActionDonate, before, after, donor))

		select {
		case <-sent:
		case <-time.After(time.Second):
			t.Fatal("email was not sent")
		}
		notifRepo.AssertExpectations(t)
		emailSvc.AssertExpectations(t)
	})

	t.Run("cancel tells the released donor", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		svc := notification.NewService(notifRepo, nil, nil)

		before := testutil.InProgressRequest(requester, donor)
		after := testutil.WithStatus(testutil.PendingRequest(requester), domain.StatusCancelled)

		notifRepo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.UserID == donor.ID && n.Type == domain.NotifRequestCancelled
		})).Return(nil).Once()

		require.NoError(t, svc.NotifyTransition(ctx, domain.ActionCancel, before, after, requester))
		notifRepo.AssertExpectations(t)
	})

	t.Run("actor is never notified", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		svc := notification.NewService(notifRepo, nil, nil)

		before := testutil.InProgressRequest(requester, donor)
		after := testutil.WithStatus(testutil.InProgressRequest(requester, donor), domain.StatusCompleted)

		notifRepo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.UserID == donor.ID
		})).Return(nil).Once()

		require.NoError(t, svc.NotifyTransition(ctx, domain.ActionComplete, before, after, requester))
		notifRepo.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("forced status reaches both parties", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		svc := notification.NewService(notifRepo, nil, nil)

		before := testutil.InProgressRequest(requester, donor)
		after := testutil.WithStatus(testutil.PendingRequest(requester), domain.StatusCancelled)

		notifRepo.On("Create", ctx, mock.Anything).Return(nil).Twice()

		require.NoError(t, svc.NotifyTransition(ctx, domain.ActionForceStatus, before, after, volunteer))
		notifRepo.AssertExpectations(t)
	})

	t.Run("storage failure is swallowed", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		svc := notification.NewService(notifRepo, nil, nil)

		notifRepo.On("Create", ctx, mock.Anything).Return(errors.New("db down")).Once()

		err := svc.NotifyTransition(ctx, domain.ActionDonate, testutil.PendingRequest(requester), testutil.InProgressRequest(requester, donor), donor)
		assert.NoError(t, err)
	})

	t.Run("edits notify nobody", func(t *testing.T) {
		notifRepo := new(mocks.NotificationRepository)
		svc := notification.NewService(notifRepo, nil, nil)

		req := testutil.PendingRequest(requester)
		require.NoError(t, svc.NotifyTransition(ctx, domain.ActionUpdate, req, req, requester))
		notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
