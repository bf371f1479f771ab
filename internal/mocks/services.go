package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"blood-donation/internal/domain"
	"blood-donation/internal/service/dashboard"
	"blood-donation/internal/service/location"
	"blood-donation/internal/service/search"
)

type EmailService struct {
	mock.Mock
}

func (m *EmailService) SendDonorCommitted(ctx context.Context, toEmail, requesterName, donorName, recipientName, hospital string) error {
	args := m.Called(ctx, toEmail, requesterName, donorName, recipientName, hospital)
	return args.Error(0)
}

func (m *EmailService) SendRequestCompleted(ctx context.Context, toEmail, recipientName, hospital string) error {
	args := m.Called(ctx, toEmail, recipientName, hospital)
	return args.Error(0)
}

func (m *EmailService) SendRequestCancelled(ctx context.Context, toEmail, name, recipientName, hospital string) error {
	args := m.Called(ctx, toEmail, name, recipientName, hospital)
	return args.Error(0)
}

func (m *EmailService) SendStatusForced(ctx context.Context, toEmail, name, recipientName, status, moderatorName string) error {
	args := m.Called(ctx, toEmail, name, recipientName, status, moderatorName)
	return args.Error(0)
}

type NotificationService struct {
	mock.Mock
}

func (m *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	args := m.Called(ctx, userID, unreadOnly, params)
	return args.Get(0).(domain.PaginatedResponse[domain.Notification]), args.Error(1)
}

func (m *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationService) NotifyTransition(ctx context.Context, action domain.Action, before, after *domain.DonationRequest, actor domain.Actor) error {
	args := m.Called(ctx, action, before, after, actor)
	return args.Error(0)
}

type AuditService struct {
	mock.Mock
}

func (m *AuditService) Record(ctx context.Context, actor domain.Actor, action, entityType string, entityID uuid.UUID, oldValue, newValue interface{}, meta domain.RequestMeta) {
	m.Called(ctx, actor, action, entityType, entityID, oldValue, newValue, meta)
}

func (m *AuditService) GetRecentActivities(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.AuditLog), args.Error(1)
}

func (m *AuditService) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, params domain.PaginationParams) (domain.PaginatedResponse[domain.AuditLog], error) {
	args := m.Called(ctx, entityType, entityID, params)
	return args.Get(0).(domain.PaginatedResponse[domain.AuditLog]), args.Error(1)
}

type DashboardService struct {
	mock.Mock
}

func (m *DashboardService) GetStats(ctx context.Context) (*dashboard.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dashboard.Stats), args.Error(1)
}

func (m *DashboardService) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

type LocationService struct {
	mock.Mock
}

func (m *LocationService) Hierarchy(ctx context.Context) *location.Hierarchy {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*location.Hierarchy)
}

func (m *LocationService) Divisions(ctx context.Context) []domain.LocationNode {
	args := m.Called(ctx)
	return args.Get(0).([]domain.LocationNode)
}

func (m *LocationService) DistrictsOf(ctx context.Context, division string) []domain.LocationNode {
	args := m.Called(ctx, division)
	return args.Get(0).([]domain.LocationNode)
}

func (m *LocationService) UpazilasOf(ctx context.Context, district string) []domain.LocationNode {
	args := m.Called(ctx, district)
	return args.Get(0).([]domain.LocationNode)
}

func (m *LocationService) Reload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type SearchService struct {
	mock.Mock
}

func (m *SearchService) SearchDonors(ctx context.Context, filter search.Filter, params domain.PaginationParams) (domain.PaginatedResponse[domain.DonorProfile], error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).(domain.PaginatedResponse[domain.DonorProfile]), args.Error(1)
}

func (m *SearchService) InvalidateCache(ctx context.Context) {
	m.Called(ctx)
}
