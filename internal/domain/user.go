package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleGuest     Role = "guest"
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleDonor, RoleVolunteer, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsModerator reports whether the role may moderate requests and users.
func (r Role) IsModerator() bool {
	return r == RoleVolunteer || r == RoleAdmin
}

type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserBlocked UserStatus = "blocked"
)

type User struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Email      string     `json:"email" db:"email"`
	FullName   string     `json:"full_name" db:"full_name"`
	AvatarURL  *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Role       Role       `json:"role" db:"role"`
	Status     UserStatus `json:"status" db:"status"`
	BloodGroup BloodGroup `json:"blood_group" db:"blood_group"`
	Division   string     `json:"division" db:"division"`
	District   string     `json:"district" db:"district"`
	Upazila    string     `json:"upazila" db:"upazila"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

func (u *User) IsBlocked() bool {
	return u.Status == UserBlocked
}

func (u *User) HasRole(required Role) bool {
	switch required {
	case RoleAdmin:
		return u.Role == RoleAdmin
	case RoleVolunteer:
		return u.Role == RoleVolunteer || u.Role == RoleAdmin
	case RoleDonor:
		return u.Role.IsValid()
	default:
		return false
	}
}

// Actor is the identity attempting an action. A blocked user acts as a guest.
func (u *User) Actor() Actor {
	if u == nil {
		return Guest()
	}
	role := u.Role
	if u.IsBlocked() || !role.IsValid() {
		role = RoleGuest
	}
	return Actor{ID: u.ID, Name: u.FullName, Email: u.Email, Role: role}
}

type Actor struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

func Guest() Actor {
	return Actor{Role: RoleGuest}
}

func (a Actor) IsAuthenticated() bool {
	return a.ID != uuid.Nil && a.Role.IsValid()
}

type UpdateProfileInput struct {
	FullName   *string     `json:"full_name,omitempty"`
	AvatarURL  *string     `json:"avatar_url,omitempty"`
	BloodGroup *BloodGroup `json:"blood_group,omitempty"`
	Division   *string     `json:"division,omitempty"`
	District   *string     `json:"district,omitempty"`
	Upazila    *string     `json:"upazila,omitempty"`
}

type AssignRoleInput struct {
	Role Role `json:"role"`
}

type SetUserStatusInput struct {
	Status UserStatus `json:"status"`
}

// DonorProfile is the public projection of a user returned by donor search.
type DonorProfile struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	FullName   string     `json:"full_name" db:"full_name"`
	Email      string     `json:"email" db:"email"`
	AvatarURL  *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	BloodGroup BloodGroup `json:"blood_group" db:"blood_group"`
	Division   string     `json:"division" db:"division"`
	District   string     `json:"district" db:"district"`
	Upazila    string     `json:"upazila" db:"upazila"`
}
