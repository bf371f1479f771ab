package audit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
)

type Service interface {
	// Record stores an audit row. Failures are logged, never returned.
	Record(ctx context.Context, actor domain.Actor, action, entityType string, entityID uuid.UUID, oldValue, newValue interface{}, meta domain.RequestMeta)
	GetRecentActivities(ctx context.Context, limit int) ([]domain.AuditLog, error)
	ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, params domain.PaginationParams) (domain.PaginatedResponse[domain.AuditLog], error)
}

type service struct {
	auditRepo repository.AuditLogRepository
	logger    *zap.Logger
}

func NewService(auditRepo repository.AuditLogRepository, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (s *service) Record(ctx context.Context, actor domain.Actor, action, entityType string, entityID uuid.UUID, oldValue, newValue interface{}, meta domain.RequestMeta) {
	input := domain.CreateAuditLogInput{
		UserID:     actor.ID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValue:   oldValue,
		NewValue:   newValue,
		IPAddress:  optional(meta.IPAddress),
		UserAgent:  optional(meta.UserAgent),
	}
	if err := repository.CreateAuditLog(ctx, s.auditRepo, input); err != nil {
		s.logger.Error("failed to write audit log",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) GetRecentActivities(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	params := domain.PaginationParams{
		Page:  1,
		Limit: limit,
	}

	logs, _, err := s.auditRepo.List(ctx, params)
	return logs, err
}

func (s *service) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, params domain.PaginationParams) (domain.PaginatedResponse[domain.AuditLog], error) {
	params.Validate()
	logs, total, err := s.auditRepo.ListByEntity(ctx, entityType, entityID, params)
	if err != nil {
		return domain.PaginatedResponse[domain.AuditLog]{}, err
	}
	return domain.NewPaginatedResponse(logs, params.Page, params.Limit, total), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
