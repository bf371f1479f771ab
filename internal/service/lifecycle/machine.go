package lifecycle

import (
	"time"

	"blood-donation/internal/clock"
	"blood-donation/internal/domain"
	"blood-donation/internal/service/rolegate"
)

// Decision is the answer to "may actor do this now". Err is one of the domain
// sentinels and is nil when Allowed is true. Message is the displayable form of
// Reason and is only filled in once a locale is known.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(err *domain.Error) Decision {
	return Decision{Reason: err.Code, Err: err}
}

// Result is the outcome of a transition: the new request and the entry that was
// appended to its history.
type Result struct {
	Request *domain.DonationRequest
	Entry   domain.StatusEntry
}

const NoteEdited = "edited"

// allowedForced lists the status changes a moderator may force.
var allowedForced = map[domain.RequestStatus]map[domain.RequestStatus]struct{}{
	domain.StatusPending: {
		domain.StatusCancelled: {},
	},
	domain.StatusInProgress: {
		domain.StatusCompleted: {},
		domain.StatusCancelled: {},
	},
	domain.StatusCompleted: {},
	domain.StatusCancelled: {},
}

type Machine struct {
	clock clock.Clock
	loc   *time.Location
}

func NewMachine(clk clock.Clock, loc *time.Location) *Machine {
	if loc == nil {
		loc = time.UTC
	}
	return &Machine{clock: clk, loc: loc}
}

func (m *Machine) Location() *time.Location {
	return m.loc
}

func (m *Machine) Now() time.Time {
	return m.clock.Now()
}

func (m *Machine) IsExpired(req *domain.DonationRequest) bool {
	return req.IsExpired(m.clock.Now(), m.loc)
}

func (m *Machine) CanDonate(req *domain.DonationRequest, actor domain.Actor) Decision {
	if req == nil {
		return deny(domain.ErrNotFound)
	}
	if !actor.IsAuthenticated() {
		return deny(domain.ErrNotAuthorized)
	}
	if req.IsRequester(actor.ID) {
		return deny(domain.ErrSelfRequest)
	}
	if req.Status.Current.IsTerminal() {
		return deny(domain.ErrInvalidState)
	}
	if req.IsAssignedDonor(actor.ID) {
		return deny(domain.ErrAlreadyDonating)
	}
	if req.Donor != nil || req.Status.Current == domain.StatusInProgress {
		return deny(domain.ErrAlreadyInProgress)
	}
	if req.Status.Current != domain.StatusPending {
		return deny(domain.ErrInvalidState)
	}
	if m.IsExpired(req) {
		return deny(domain.ErrExpired)
	}
	if !rolegate.Check(actor, req, domain.ActionDonate) {
		return deny(domain.ErrNotAuthorized)
	}
	return allow()
}

func (m *Machine) CanEdit(req *domain.DonationRequest, actor domain.Actor) Decision {
	return m.gate(req, actor, domain.ActionUpdate, domain.StatusPending)
}

func (m *Machine) CanComplete(req *domain.DonationRequest, actor domain.Actor) Decision {
	return m.gate(req, actor, domain.ActionComplete, domain.StatusInProgress)
}

func (m *Machine) CanCancel(req *domain.DonationRequest, actor domain.Actor) Decision {
	return m.gate(req, actor, domain.ActionCancel, domain.StatusPending, domain.StatusInProgress)
}

// CanDelete covers the destructive removal, which is not a status transition.
func (m *Machine) CanDelete(req *domain.DonationRequest, actor domain.Actor) Decision {
	return m.gate(req, actor, domain.ActionDelete, domain.StatusPending, domain.StatusCancelled)
}

func (m *Machine) CanForceStatus(req *domain.DonationRequest, actor domain.Actor, target domain.RequestStatus) Decision {
	if req == nil {
		return deny(domain.ErrNotFound)
	}
	if !rolegate.Check(actor, req, domain.ActionForceStatus) {
		return deny(domain.ErrNotAuthorized)
	}
	if _, ok := allowedForced[req.Status.Current][target]; !ok {
		return deny(domain.ErrInvalidState)
	}
	if target == domain.StatusCompleted && req.Donor == nil {
		return deny(domain.ErrInvalidState)
	}
	return allow()
}

// Decide dispatches to the Can* function for action.
func (m *Machine) Decide(req *domain.DonationRequest, actor domain.Actor, action domain.Action) Decision {
	switch action {
	case domain.ActionDonate:
		return m.CanDonate(req, actor)
	case domain.ActionUpdate:
		return m.CanEdit(req, actor)
	case domain.ActionComplete:
		return m.CanComplete(req, actor)
	case domain.ActionCancel:
		return m.CanCancel(req, actor)
	case domain.ActionDelete:
		return m.CanDelete(req, actor)
	default:
		return deny(domain.ErrNotAuthorized)
	}
}

// DecideAll returns a decision for every request action except force_status,
// which needs a target status.
func (m *Machine) DecideAll(req *domain.DonationRequest, actor domain.Actor) map[domain.Action]Decision {
	out := make(map[domain.Action]Decision, len(domain.RequestActions))
	for _, a := range domain.RequestActions {
		if a == domain.ActionForceStatus {
			continue
		}
		out[a] = m.Decide(req, actor, a)
	}
	return out
}

func (m *Machine) Donate(req *domain.DonationRequest, actor domain.Actor) (*Result, error) {
	if d := m.CanDonate(req, actor); !d.Allowed {
		return nil, d.Err
	}
	next := req.Clone()
	next.Donor = &domain.Donor{ID: actor.ID, Name: actor.Name, Email: actor.Email, Role: actor.Role}
	return m.append(next, actor, domain.StatusInProgress, ""), nil
}

// Edit applies input to a pending request. The status stays pending and the
// edit is recorded as a new history entry.
func (m *Machine) Edit(req *domain.DonationRequest, actor domain.Actor, input domain.UpdateDonationRequestInput) (*Result, error) {
	if d := m.CanEdit(req, actor); !d.Allowed {
		return nil, d.Err
	}
	next := req.Clone()
	if err := input.ApplyTo(next, m.clock.Now(), m.loc); err != nil {
		return nil, err
	}
	return m.append(next, actor, domain.StatusPending, NoteEdited), nil
}

func (m *Machine) Complete(req *domain.DonationRequest, actor domain.Actor) (*Result, error) {
	if d := m.CanComplete(req, actor); !d.Allowed {
		return nil, d.Err
	}
	return m.append(req.Clone(), actor, domain.StatusCompleted, ""), nil
}

// Cancel moves the request to cancelled and releases any assigned donor.
func (m *Machine) Cancel(req *domain.DonationRequest, actor domain.Actor) (*Result, error) {
	if d := m.CanCancel(req, actor); !d.Allowed {
		return nil, d.Err
	}
	next := req.Clone()
	next.Donor = nil
	return m.append(next, actor, domain.StatusCancelled, ""), nil
}

func (m *Machine) ForceStatus(req *domain.DonationRequest, actor domain.Actor, target domain.RequestStatus, note string) (*Result, error) {
	if d := m.CanForceStatus(req, actor, target); !d.Allowed {
		return nil, d.Err
	}
	next := req.Clone()
	if target == domain.StatusCancelled {
		next.Donor = nil
	}
	return m.append(next, actor, target, note), nil
}

// Apply runs one of the argument-free transitions. Edits need an input and go
// through Edit; delete is not a transition.
func (m *Machine) Apply(req *domain.DonationRequest, action domain.Action, actor domain.Actor) (*Result, error) {
	switch action {
	case domain.ActionDonate:
		return m.Donate(req, actor)
	case domain.ActionComplete:
		return m.Complete(req, actor)
	case domain.ActionCancel:
		return m.Cancel(req, actor)
	default:
		return nil, domain.ErrInvalidState
	}
}

func (m *Machine) gate(req *domain.DonationRequest, actor domain.Actor, action domain.Action, from ...domain.RequestStatus) Decision {
	if req == nil {
		return deny(domain.ErrNotFound)
	}
	if !rolegate.Check(actor, req, action) {
		return deny(domain.ErrNotAuthorized)
	}
	for _, s := range from {
		if req.Status.Current == s {
			return allow()
		}
	}
	return deny(domain.ErrInvalidState)
}

func (m *Machine) append(next *domain.DonationRequest, actor domain.Actor, status domain.RequestStatus, note string) *Result {
	now := m.clock.Now()
	entry := domain.StatusEntry{
		Status:    status,
		ChangedAt: now,
		ChangedBy: domain.ChangedBy{ID: actor.ID, Name: actor.Name},
		Note:      note,
	}
	next.Status.Current = status
	next.Status.History = append(next.Status.History, entry)
	next.UpdatedAt = now
	return &Result{Request: next, Entry: entry}
}

// NewRequest builds the pending request for a validated create input.
func (m *Machine) NewRequest(input domain.CreateDonationRequestInput, requester domain.Actor, requesterSince time.Time) *domain.DonationRequest {
	now := m.clock.Now()
	return &domain.DonationRequest{
		Recipient: domain.Recipient{Name: input.RecipientName, Hospital: input.Hospital},
		DonationInfo: domain.DonationInfo{
			BloodGroup:     input.BloodGroup,
			RequiredDate:   input.RequiredDate,
			RequiredTime:   input.RequiredTime,
			Urgency:        input.Urgency,
			AdditionalInfo: input.AdditionalInfo,
		},
		Location: domain.RequestLocation{
			Division:    input.Division,
			District:    input.District,
			Upazila:     input.Upazila,
			FullAddress: input.FullAddress,
		},
		Requester: domain.Requester{
			ID:        requester.ID,
			Name:      requester.Name,
			Email:     requester.Email,
			Role:      requester.Role,
			CreatedAt: requesterSince,
		},
		Status: domain.RequestState{
			Current: domain.StatusPending,
			History: []domain.StatusEntry{{
				Status:    domain.StatusPending,
				ChangedAt: now,
				ChangedBy: domain.ChangedBy{ID: requester.ID, Name: requester.Name},
			}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
