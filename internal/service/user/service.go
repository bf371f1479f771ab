package user

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/audit"
	"blood-donation/internal/service/location"
	"blood-donation/internal/service/rolegate"
	"blood-donation/internal/service/search"
)

type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, current *domain.User, input domain.UpdateProfileInput) (*domain.User, error)
	SetStatus(ctx context.Context, current *domain.User, userID uuid.UUID, status domain.UserStatus, meta domain.RequestMeta) (*domain.User, error)
	AssignRole(ctx context.Context, current *domain.User, userID uuid.UUID, role domain.Role, meta domain.RequestMeta) (*domain.User, error)
}

type service struct {
	userRepo  repository.UserRepository
	locations location.Service
	search    search.Service
	audit     audit.Service
}

func NewService(userRepo repository.UserRepository, locations location.Service, searchSvc search.Service, auditSvc audit.Service) Service {
	return &service{
		userRepo:  userRepo,
		locations: locations,
		search:    searchSvc,
		audit:     auditSvc,
	}
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *service) UpdateProfile(ctx context.Context, current *domain.User, input domain.UpdateProfileInput) (*domain.User, error) {
	if current == nil {
		return nil, domain.ErrNotAuthorized
	}
	user, err := s.GetByID(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		if strings.TrimSpace(*input.FullName) == "" {
			return nil, domain.NewValidationError("full_name", "must not be empty")
		}
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.AvatarURL != nil {
		user.AvatarURL = input.AvatarURL
	}
	if input.BloodGroup != nil {
		if !input.BloodGroup.IsValid() {
			return nil, domain.NewValidationError("blood_group", "unknown blood group")
		}
		user.BloodGroup = *input.BloodGroup
	}

	if input.Division != nil || input.District != nil || input.Upazila != nil {
		sel := location.Selection{Division: user.Division, District: user.District, Upazila: user.Upazila}
		if input.Division != nil {
			sel = sel.SelectDivision(*input.Division)
		}
		if input.District != nil {
			sel = sel.SelectDistrict(*input.District)
		}
		if input.Upazila != nil {
			sel = sel.SelectUpazila(*input.Upazila)
		}

		h := s.locations.Hierarchy(ctx)
		if h.Loaded() && !h.ValidSelection(sel.Division, sel.District, sel.Upazila) {
			return nil, domain.NewValidationError("location", "division, district and upazila do not belong together")
		}
		user.Division, user.District, user.Upazila = sel.Division, sel.District, sel.Upazila
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	s.search.InvalidateCache(ctx)
	return user, nil
}

func (s *service) SetStatus(ctx context.Context, current *domain.User, userID uuid.UUID, status domain.UserStatus, meta domain.RequestMeta) (*domain.User, error) {
	if status != domain.UserActive && status != domain.UserBlocked {
		return nil, domain.NewValidationError("status", "must be active or blocked")
	}
	target, err := s.authorize(ctx, current, userID, domain.ActionBlockUser)
	if err != nil {
		return nil, err
	}
	if target.Status == status {
		return target, nil
	}

	if err := s.userRepo.SetStatus(ctx, userID, status); err != nil {
		return nil, err
	}

	old := target.Status
	target.Status = status
	s.audit.Record(ctx, current.Actor(), string(domain.ActionBlockUser), domain.EntityUser, userID,
		map[string]string{"status": string(old)}, map[string]string{"status": string(status)}, meta)
	s.search.InvalidateCache(ctx)
	return target, nil
}

func (s *service) AssignRole(ctx context.Context, current *domain.User, userID uuid.UUID, role domain.Role, meta domain.RequestMeta) (*domain.User, error) {
	if !role.IsValid() {
		return nil, domain.NewValidationError("role", "must be donor, volunteer or admin")
	}
	target, err := s.authorize(ctx, current, userID, domain.ActionAssignRole)
	if err != nil {
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}

	if err := s.userRepo.AssignRole(ctx, userID, role); err != nil {
		return nil, err
	}

	old := target.Role
	target.Role = role
	s.audit.Record(ctx, current.Actor(), string(domain.ActionAssignRole), domain.EntityUser, userID,
		map[string]string{"role": string(old)}, map[string]string{"role": string(role)}, meta)
	return target, nil
}

// authorize checks the moderation permission and loads the target account.
// Admins may not change their own account.
func (s *service) authorize(ctx context.Context, current *domain.User, userID uuid.UUID, action domain.Action) (*domain.User, error) {
	if !rolegate.Check(current.Actor(), nil, action) {
		return nil, domain.ErrNotAuthorized
	}
	if current.ID == userID {
		return nil, domain.ErrCannotModifySelf
	}
	return s.GetByID(ctx, userID)
}
