package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/email"
)

type Service interface {
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)

	// NotifyTransition tells the other parties of a request what actor just did.
	// before is the request as loaded, after is the stored result.
	NotifyTransition(ctx context.Context, action domain.Action, before, after *domain.DonationRequest, actor domain.Actor) error
}

type service struct {
	notifRepo repository.NotificationRepository
	emailSvc  email.Service
	logger    *zap.Logger
}

func NewService(notifRepo repository.NotificationRepository, emailSvc email.Service, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		notifRepo: notifRepo,
		emailSvc:  emailSvc,
		logger:    logger,
	}
}

func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	params.Validate()
	notifications, total, err := s.notifRepo.ListByUser(ctx, userID, unreadOnly, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Notification]{}, err
	}
	return domain.NewPaginatedResponse(notifications, params.Page, params.Limit, total), nil
}

func (s *service) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.notifRepo.MarkAsRead(ctx, id, userID)
}

func (s *service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.notifRepo.MarkAllAsRead(ctx, userID)
}

func (s *service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}

type recipient struct {
	id    uuid.UUID
	name  string
	email string
}

func (s *service) NotifyTransition(ctx context.Context, action domain.Action, before, after *domain.DonationRequest, actor domain.Actor) error {
	if before == nil || after == nil {
		return nil
	}

	requester := recipient{id: after.Requester.ID, name: after.Requester.Name, email: after.Requester.Email}
	var donor *recipient
	if d := before.Donor; d != nil {
		donor = &recipient{id: d.ID, name: d.Name, email: d.Email}
	} else if d := after.Donor; d != nil {
		donor = &recipient{id: d.ID, name: d.Name, email: d.Email}
	}

	var (
		notifType  domain.NotificationType
		title      string
		msg        string
		recipients []recipient
		sendEmail  func(r recipient) error
	)

	recipientName, hospital := after.Recipient.Name, after.Recipient.Hospital

	switch action {
	case domain.ActionDonate:
		notifType = domain.NotifDonorCommitted
		title = "Donor found"
		msg = fmt.Sprintf("%s will donate for %s", actor.Name, recipientName)
		recipients = []recipient{requester}
		sendEmail = func(r recipient) error {
			return s.emailSvc.SendDonorCommitted(context.Background(), r.email, r.name, actor.Name, recipientName, hospital)
		}
	case domain.ActionComplete:
		notifType = domain.NotifRequestCompleted
		title = "Donation completed"
		msg = fmt.Sprintf("The donation for %s is complete", recipientName)
		recipients = []recipient{requester}
		if donor != nil {
			recipients = append(recipients, *donor)
		}
		sendEmail = func(r recipient) error {
			return s.emailSvc.SendRequestCompleted(context.Background(), r.email, recipientName, hospital)
		}
	case domain.ActionCancel:
		notifType = domain.NotifRequestCancelled
		title = "Request cancelled"
		msg = fmt.Sprintf("The request for %s was cancelled", recipientName)
		if donor != nil {
			recipients = []recipient{*donor}
		}
		sendEmail = func(r recipient) error {
			return s.emailSvc.SendRequestCancelled(context.Background(), r.email, r.name, recipientName, hospital)
		}
	case domain.ActionForceStatus:
		status := string(after.Status.Current)
		notifType = domain.NotifStatusForced
		title = "Request status changed"
		msg = fmt.Sprintf("%s set the request for %s to %s", actor.Name, recipientName, status)
		recipients = []recipient{requester}
		if donor != nil {
			recipients = append(recipients, *donor)
		}
		sendEmail = func(r recipient) error {
			return s.emailSvc.SendStatusForced(context.Background(), r.email, r.name, recipientName, status, actor.Name)
		}
	default:
		return nil
	}

	data, _ := json.Marshal(map[string]string{
		"request_id": after.ID.String(),
		"status":     string(after.Status.Current),
	})

	for _, r := range recipients {
		if r.id == actor.ID || r.id == uuid.Nil {
			continue
		}

		notif := &domain.Notification{
			ID:      uuid.New(),
			UserID:  r.id,
			Type:    notifType,
			Title:   title,
			Message: msg,
			Data:    json.RawMessage(data),
		}
		if err := s.notifRepo.Create(ctx, notif); err != nil {
			s.logger.Error("failed to create notification",
				zap.String("user_id", r.id.String()),
				zap.String("request_id", after.ID.String()),
				zap.Error(err),
			)
		}

		if s.emailSvc != nil && r.email != "" {
			go func(r recipient) {
				if err := sendEmail(r); err != nil {
					s.logger.Warn("failed to send notification email",
						zap.String("user_id", r.id.String()),
						zap.Error(err),
					)
				}
			}(r)
		}
	}

	return nil
}
