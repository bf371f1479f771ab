// Package rolegate decides which actions an actor may attempt, given its role
// and its relationship to a donation request. It answers "may this actor try",
// not "is this transition legal now"; the lifecycle package checks the latter.
package rolegate

import (
	"github.com/google/uuid"

	"blood-donation/internal/domain"
)

type Relationship string

const (
	RelRequester     Relationship = "requester"
	RelAssignedDonor Relationship = "assigned_donor"
	RelNeither       Relationship = "neither"
)

var Relationships = []Relationship{RelRequester, RelAssignedDonor, RelNeither}

// RelationshipOf classifies actorID against req. The requester check wins if a
// malformed record names the same identity twice.
func RelationshipOf(actorID uuid.UUID, req *domain.DonationRequest) Relationship {
	switch {
	case req == nil:
		return RelNeither
	case req.IsRequester(actorID):
		return RelRequester
	case req.IsAssignedDonor(actorID):
		return RelAssignedDonor
	default:
		return RelNeither
	}
}

type rule struct {
	roles         []domain.Role
	relationships []Relationship
}

var (
	anyMember  = []domain.Role{domain.RoleDonor, domain.RoleVolunteer, domain.RoleAdmin}
	moderators = []domain.Role{domain.RoleVolunteer, domain.RoleAdmin}
	adminsOnly = []domain.Role{domain.RoleAdmin}
)

// rules is the whole permission table. A nil relationships list means the
// action does not depend on the actor's relationship to the request.
var rules = map[domain.Action]rule{
	domain.ActionDonate:      {roles: anyMember, relationships: []Relationship{RelNeither}},
	domain.ActionUpdate:      {roles: anyMember, relationships: []Relationship{RelRequester}},
	domain.ActionComplete:    {roles: anyMember, relationships: []Relationship{RelRequester, RelAssignedDonor}},
	domain.ActionCancel:      {roles: anyMember, relationships: []Relationship{RelRequester}},
	domain.ActionDelete:      {roles: anyMember, relationships: []Relationship{RelRequester}},
	domain.ActionForceStatus: {roles: moderators},
	domain.ActionBlockUser:   {roles: adminsOnly},
	domain.ActionAssignRole:  {roles: adminsOnly},
}

// Allowed is the pure permission function over (role, relationship, action).
func Allowed(role domain.Role, rel Relationship, action domain.Action) bool {
	r, ok := rules[action]
	if !ok {
		return false
	}
	if !containsRole(r.roles, role) {
		return false
	}
	if r.relationships == nil {
		return true
	}
	return containsRel(r.relationships, rel)
}

// Check applies Allowed to an actor and a request.
func Check(actor domain.Actor, req *domain.DonationRequest, action domain.Action) bool {
	if !actor.IsAuthenticated() {
		return false
	}
	return Allowed(actor.Role, RelationshipOf(actor.ID, req), action)
}

// VisibleActions lists the request actions whose controls should be shown to actor.
func VisibleActions(actor domain.Actor, req *domain.DonationRequest) []domain.Action {
	actions := make([]domain.Action, 0, len(domain.RequestActions))
	for _, a := range domain.RequestActions {
		if Check(actor, req, a) {
			actions = append(actions, a)
		}
	}
	return actions
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func containsRel(rels []Relationship, rel Relationship) bool {
	for _, r := range rels {
		if r == rel {
			return true
		}
	}
	return false
}
