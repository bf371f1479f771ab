// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"blood-donation/internal/domain"
)

// Dhaka is a fixed +06:00 zone so tests do not depend on tzdata.
var Dhaka = time.FixedZone("BDT", 6*60*60)

// Now is the instant the fixed test clock reports.
var Now = time.Date(2026, 3, 10, 9, 0, 0, 0, Dhaka)

func NewActor(role domain.Role, name string) domain.Actor {
	return domain.Actor{ID: uuid.New(), Name: name, Email: name + "@example.com", Role: role}
}

func NewUser(role domain.Role, name string) *domain.User {
	return &domain.User{
		ID:       uuid.New(),
		Email:    name + "@example.com",
		FullName: name,
		Role:     role,
		Status:   domain.UserActive,
	}
}

// PendingRequest returns a fresh pending request owned by requester with a
// deadline one day after Now.
func PendingRequest(requester domain.Actor) *domain.DonationRequest {
	return &domain.DonationRequest{
		ID:        uuid.New(),
		Recipient: domain.Recipient{Name: "Rahim", Hospital: "Dhaka Medical College"},
		DonationInfo: domain.DonationInfo{
			BloodGroup:   domain.BloodOPos,
			RequiredDate: "2026-03-11",
			RequiredTime: "14:30",
			Urgency:      domain.UrgencyUrgent,
		},
		Location: domain.RequestLocation{
			Division:    "Dhaka",
			District:    "Dhaka",
			Upazila:     "Savar",
			FullAddress: "Ward 3, Savar",
		},
		Requester: domain.Requester{ID: requester.ID, Name: requester.Name, Email: requester.Email, Role: requester.Role},
		Status: domain.RequestState{
			Current: domain.StatusPending,
			History: []domain.StatusEntry{{
				Status:    domain.StatusPending,
				ChangedAt: Now.Add(-time.Hour),
				ChangedBy: domain.ChangedBy{ID: requester.ID, Name: requester.Name},
			}},
		},
		Version:   1,
		CreatedAt: Now.Add(-time.Hour),
		UpdatedAt: Now.Add(-time.Hour),
	}
}

// InProgressRequest returns PendingRequest with donor committed.
func InProgressRequest(requester, donor domain.Actor) *domain.DonationRequest {
	req := PendingRequest(requester)
	req.Donor = &domain.Donor{ID: donor.ID, Name: donor.Name, Email: donor.Email, Role: donor.Role}
	req.Status.Current = domain.StatusInProgress
	req.Status.History = append(req.Status.History, domain.StatusEntry{
		Status:    domain.StatusInProgress,
		ChangedAt: Now.Add(-30 * time.Minute),
		ChangedBy: domain.ChangedBy{ID: donor.ID, Name: donor.Name},
	})
	req.Version = 2
	return req
}

func WithStatus(req *domain.DonationRequest, status domain.RequestStatus) *domain.DonationRequest {
	req.Status.Current = status
	req.Status.History = append(req.Status.History, domain.StatusEntry{Status: status, ChangedAt: Now.Add(-10 * time.Minute)})
	req.Version++
	return req
}

func Ptr[T any](v T) *T {
	return &v
}
