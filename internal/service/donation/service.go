// Package donation runs the request lifecycle against storage: it loads a
// request, asks the lifecycle machine for a decision and stores the result with
// a conditional write, then records the side effects.
package donation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/pkg/i18n"
	"blood-donation/internal/pkg/metrics"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/audit"
	"blood-donation/internal/service/dashboard"
	"blood-donation/internal/service/lifecycle"
	"blood-donation/internal/service/location"
	"blood-donation/internal/service/notification"
	"blood-donation/internal/service/rolegate"
)

const actionCreate = "create"

// ActionSet tells a caller which controls to show for a request and what would
// happen if each were used now.
type ActionSet struct {
	RequestID    uuid.UUID                            `json:"request_id"`
	Relationship rolegate.Relationship                `json:"relationship"`
	Visible      []domain.Action                      `json:"visible"`
	Decisions    map[domain.Action]lifecycle.Decision `json:"decisions"`
	Expired      bool                                 `json:"expired"`
}

// Localize fills in the displayable message for every refused action.
func (a *ActionSet) Localize(locale string) {
	for action, d := range a.Decisions {
		if d.Allowed || d.Reason == "" {
			continue
		}
		d.Message = i18n.Translate(locale, d.Reason)
		a.Decisions[action] = d
	}
}

type Service interface {
	Create(ctx context.Context, current *domain.User, input domain.CreateDonationRequestInput, meta domain.RequestMeta) (*domain.DonationRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DonationRequest, error)
	List(ctx context.Context, filter domain.ListRequestsFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.DonationRequest], error)
	Actions(ctx context.Context, id uuid.UUID, current *domain.User) (*ActionSet, error)

	Donate(ctx context.Context, id uuid.UUID, current *domain.User, meta domain.RequestMeta) (*domain.DonationRequest, error)
	Update(ctx context.Context, id uuid.UUID, current *domain.User, input domain.UpdateDonationRequestInput, meta domain.RequestMeta) (*domain.DonationRequest, error)
	Complete(ctx context.Context, id uuid.UUID, current *domain.User, meta domain.RequestMeta) (*domain.DonationRequest, error)
	Cancel(ctx context.Context, id uuid.UUID, current *domain.User, meta domain.RequestMeta) (*domain.DonationRequest, error)
	Delete(ctx context.Context, id uuid.UUID, current *domain.User, meta domain.RequestMeta) error
	ForceStatus(ctx context.Context, id uuid.UUID, current *domain.User, input domain.ForceStatusInput, meta domain.RequestMeta) (*domain.DonationRequest, error)
}

type service struct {
	requestRepo repository.DonationRequestRepository
	machine     *lifecycle.Machine
	locations   location.Service
	audit       audit.Service
	notifier    notification.Service
	dashboard   dashboard.Service
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewService(
	requestRepo repository.DonationRequestRepository,
	machine *lifecycle.Machine,
	locations location.Service,
	auditSvc audit.Service,
	notifier notification.Service,
	dashboardSvc dashboard.Service,
	m *metrics.Metrics,
	logger *zap.Logger,
) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		requestRepo: requestRepo,
		machine:     machine,
		locations:   locations,
		audit:       auditSvc,
		notifier:    notifier,
		dashboard:   dashboardSvc,
		metrics:     m,
		logger:      logger,
	}
}

func (s *service) Create(ctx context.Context, current *domain.User, input domain.CreateDonationRequestInput, meta domain.RequestMeta) (*domain.DonationRequest, error) {
	actor := current.Actor()
	if !actor.IsAuthenticated() {
		s.reject(actionCreate, domain.ErrNotAuthorized)
		return nil, domain.ErrNotAuthorized
	}

	if err := input.Validate(s.machine.Now(), s.machine.Location()); err != nil {
		s.reject(actionCreate, err)
		return nil, err
	}

	h := s.locations.Hierarchy(ctx)
	if h.Loaded() && !h.ValidSelection(input.Division, input.District, input.Upazila) {
		err := domain.NewValidationError("location", "division, district and upazila do not belong together")
		s.reject(actionCreate, err)
		return nil, err
	}

	req := s.machine.NewRequest(input, actor, current.CreatedAt)
	req.ID = uuid.New()

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.metrics.RequestCreated()
	s.audit.Record(ctx, actor, actionCreate, domain.EntityDonationRequest, req.ID, nil, snapshot(req), meta)
	s.dashboard.Invalidate(ctx)

	s.logger.Info("donation request created",
		zap.String("request_id", req.ID.String()),
		zap.String("requester_id", actor.ID.String()),
		zap.String("blood_group", string(req.DonationInfo.BloodGroup)),
	)
	return req, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.DonationRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	return req, nil
}

func (s *service) List(ctx context.Context, filter domain.ListRequestsFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.DonationRequest], error) {
	params.Validate()
	if filter.Status != nil && !filter.Status.IsValid() {
		return domain.PaginatedResponse[domain.DonationRequest]{}, domain.NewValidationError("status", "unknown status")
	}
	if filter.BloodGroup != nil && !filter.BloodGroup.IsValid() {
		return domain.PaginatedResponse[domain.DonationRequest]{}, domain.NewValidationError("blood_group", "unknown blood group")
	}

	requests, total, err := s.requestRepo.List(ctx, filter, params)
	if err != nil {
		return domain.PaginatedResponse[domain.DonationRequest]{}, err
	}
	return domain.NewPaginatedResponse(requests, params.Page, params.Limit, total), nil
}

func (s *service) Actions(ctx context.Context, id uuid.UUID, current *domain.User) (*ActionSet, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	actor := current.Actor()
	return &ActionSet{
		RequestID:    req.ID,
		Relationship: rolegate.RelationshipOf(actor.ID, req),
		Visible:      rolegate.VisibleActions(actor, req),
		Decisions:    s.machine.DecideAll(req, actor),
		Expired:      s.machine.IsExpired(req),
	}, nil
}

func (s *service) Donate(ctx context.Context, id uuid.UUID, current *domain.User, meta domain.RequestMeta) (*domain.DonationRequest, error) {
	return s.transition(ctx, id, current, domain.ActionDonate, meta, s.machine.Donate)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, current *domain.User, input domain.UpdateDonationRequestInput, meta domain.RequestMeta) (*domain.DonationRequest, error) {
	return s.transition(ctx, id, current, domain.ActionUpdate, meta, func(req *domain.DonationRequest, actor domain.Actor) (*lifecycle.Result, error) {
		return s.machine.Edit(req, actor, input)
	})
}

func (s *service) Complete(ctx context.Context, id uuid.UUID, current *domain.User, meta domain.RequestMeta) (*domain.DonationRequest, error) {
	return s.transition(ctx, id, current, domain.ActionComplete, meta, s.machine.Complete)
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, current *domain.User, meta domain.RequestMeta) (*domain.DonationRequest, error) {
	return s.transition(ctx, id, current, domain.ActionCancel, meta, s.machine.Cancel)
}

func (s *service) ForceStatus(ctx context.Context, id uuid.UUID, current *domain.User, input domain.ForceStatusInput, meta domain.RequestMeta) (*domain.DonationRequest, error) {
	if !input.Status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown status")
	}
	return s.transition(ctx, id, current, domain.ActionForceStatus, meta, func(req *domain.DonationRequest, actor domain.Actor) (*lifecycle.Result, error) {
		return s.machine.ForceStatus(req, actor, input.Status, input.Note)
	})
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, current *domain.User, meta domain.RequestMeta) error {
	actor := current.Actor()
	req, err := s.GetByID(ctx, id)
	if err != nil {
		s.reject(string(domain.ActionDelete), err)
		return err
	}

	if d := s.machine.CanDelete(req, actor); !d.Allowed {
		s.reject(string(domain.ActionDelete), d.Err)
		return d.Err
	}

	allowed := []domain.RequestStatus{domain.StatusPending, domain.StatusCancelled}
	if err := s.requestRepo.Delete(ctx, id, req.Version, allowed); err != nil {
		s.reject(string(domain.ActionDelete), err)
		return err
	}

	s.metrics.Applied(string(domain.ActionDelete), "deleted")
	s.audit.Record(ctx, actor, string(domain.ActionDelete), domain.EntityDonationRequest, id, snapshot(req), nil, meta)
	s.dashboard.Invalidate(ctx)
	return nil
}

type applyFunc func(req *domain.DonationRequest, actor domain.Actor) (*lifecycle.Result, error)

// transition stores the machine's result only if the request still has the
// status and version it was loaded with.
func (s *service) transition(ctx context.Context, id uuid.UUID, current *domain.User, action domain.Action, meta domain.RequestMeta, apply applyFunc) (*domain.DonationRequest, error) {
	actor := current.Actor()

	req, err := s.GetByID(ctx, id)
	if err != nil {
		s.reject(string(action), err)
		return nil, err
	}

	res, err := apply(req, actor)
	if err != nil {
		s.reject(string(action), err)
		return nil, err
	}

	if err := s.requestRepo.ApplyTransition(ctx, req.Status.Current, req.Version, res.Request, res.Entry); err != nil {
		s.reject(string(action), err)
		if errors.Is(err, domain.ErrPreconditionFailed) {
			s.logger.Info("transition lost a race",
				zap.String("request_id", id.String()),
				zap.String("action", string(action)),
				zap.Int("version", req.Version),
			)
		}
		return nil, err
	}

	s.metrics.Applied(string(action), string(res.Request.Status.Current))
	s.audit.Record(ctx, actor, string(action), domain.EntityDonationRequest, id, snapshot(req), snapshot(res.Request), meta)
	if err := s.notifier.NotifyTransition(ctx, action, req, res.Request, actor); err != nil {
		s.logger.Warn("failed to notify transition",
			zap.String("request_id", id.String()),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
	s.dashboard.Invalidate(ctx)

	return res.Request, nil
}

func (s *service) reject(action string, err error) {
	s.metrics.Rejected(action, ReasonCode(err))
}

// ReasonCode maps an error to its stable rejection code.
func ReasonCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	if errors.Is(err, domain.ErrValidation) {
		return domain.ErrValidation.Code
	}
	return "INTERNAL_ERROR"
}

type requestSnapshot struct {
	Status  domain.RequestStatus `json:"status"`
	DonorID *uuid.UUID           `json:"donor_id,omitempty"`
	Version int                  `json:"version"`
}

func snapshot(req *domain.DonationRequest) requestSnapshot {
	snap := requestSnapshot{Status: req.Status.Current, Version: req.Version}
	if req.Donor != nil {
		id := req.Donor.ID
		snap.DonorID = &id
	}
	return snap
}
