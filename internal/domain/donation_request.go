package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BloodGroup string

const (
	BloodAPos  BloodGroup = "A+"
	BloodANeg  BloodGroup = "A-"
	BloodBPos  BloodGroup = "B+"
	BloodBNeg  BloodGroup = "B-"
	BloodABPos BloodGroup = "AB+"
	BloodABNeg BloodGroup = "AB-"
	BloodOPos  BloodGroup = "O+"
	BloodONeg  BloodGroup = "O-"
)

var BloodGroups = []BloodGroup{BloodAPos, BloodANeg, BloodBPos, BloodBNeg, BloodABPos, BloodABNeg, BloodOPos, BloodONeg}

func (b BloodGroup) IsValid() bool {
	for _, g := range BloodGroups {
		if b == g {
			return true
		}
	}
	return false
}

type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "inprogress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

func (u Urgency) IsValid() bool {
	return u == UrgencyNormal || u == UrgencyUrgent || u == UrgencyCritical
}

// Action names something an actor can attempt against a request or a user.
type Action string

const (
	ActionDonate   Action = "donate"
	ActionUpdate   Action = "update"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionDelete   Action = "delete"

	ActionForceStatus Action = "force_status"
	ActionBlockUser   Action = "block_user"
	ActionAssignRole  Action = "assign_role"
)

var RequestActions = []Action{ActionDonate, ActionUpdate, ActionComplete, ActionCancel, ActionDelete, ActionForceStatus}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Recipient struct {
	Name     string `json:"name"`
	Hospital string `json:"hospital"`
}

type DonationInfo struct {
	BloodGroup     BloodGroup `json:"blood_group"`
	RequiredDate   string     `json:"required_date"`
	RequiredTime   string     `json:"required_time"`
	Urgency        Urgency    `json:"urgency"`
	AdditionalInfo string     `json:"additional_info,omitempty"`
}

type RequestLocation struct {
	Division    string `json:"division"`
	District    string `json:"district"`
	Upazila     string `json:"upazila"`
	FullAddress string `json:"full_address"`
}

type Requester struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Donor struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

type ChangedBy struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type StatusEntry struct {
	Status    RequestStatus `json:"status"`
	ChangedAt time.Time     `json:"changed_at"`
	ChangedBy ChangedBy     `json:"changed_by"`
	Note      string        `json:"note,omitempty"`
}

type RequestState struct {
	Current RequestStatus `json:"current"`
	History []StatusEntry `json:"history"`
}

type DonationRequest struct {
	ID           uuid.UUID       `json:"id"`
	Recipient    Recipient       `json:"recipient"`
	DonationInfo DonationInfo    `json:"donation_info"`
	Location     RequestLocation `json:"location"`
	Requester    Requester       `json:"requester"`
	Donor        *Donor          `json:"donor"`
	Status       RequestState    `json:"status"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Deadline combines the required date and time in loc.
func (r *DonationRequest) Deadline(loc *time.Location) (time.Time, error) {
	return ParseDeadline(r.DonationInfo.RequiredDate, r.DonationInfo.RequiredTime, loc)
}

// IsExpired reports whether now is at or after the deadline. An unparseable
// deadline counts as expired so it can never attract a new donor.
func (r *DonationRequest) IsExpired(now time.Time, loc *time.Location) bool {
	deadline, err := r.Deadline(loc)
	if err != nil {
		return true
	}
	return !now.Before(deadline)
}

// HistoryNewestFirst returns a sorted copy for display; storage order is untouched.
func (r *DonationRequest) HistoryNewestFirst() []StatusEntry {
	out := make([]StatusEntry, len(r.Status.History))
	copy(out, r.Status.History)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChangedAt.After(out[j].ChangedAt)
	})
	return out
}

func (r *DonationRequest) IsRequester(id uuid.UUID) bool {
	return id != uuid.Nil && r.Requester.ID == id
}

func (r *DonationRequest) IsAssignedDonor(id uuid.UUID) bool {
	return id != uuid.Nil && r.Donor != nil && r.Donor.ID == id
}

// Clone returns a copy that shares no slices or pointers with r.
func (r *DonationRequest) Clone() *DonationRequest {
	c := *r
	c.Status.History = make([]StatusEntry, len(r.Status.History))
	copy(c.Status.History, r.Status.History)
	if r.Donor != nil {
		d := *r.Donor
		c.Donor = &d
	}
	return &c
}

// CheckInvariants verifies the structural rules every stored request must satisfy.
func (r *DonationRequest) CheckInvariants() error {
	history := r.Status.History
	if len(history) == 0 {
		return NewValidationError("status.history", "history must not be empty")
	}
	if history[0].Status != StatusPending {
		return NewValidationError("status.history", "first history entry must be pending")
	}
	if history[len(history)-1].Status != r.Status.Current {
		return NewValidationError("status.current", "current status must match the latest history entry")
	}
	hasDonor := r.Donor != nil
	needsDonor := r.Status.Current == StatusInProgress || r.Status.Current == StatusCompleted
	if hasDonor != needsDonor {
		return NewValidationError("donor", "donor must be set exactly when the request is in progress or completed")
	}
	if hasDonor && r.Donor.ID == r.Requester.ID {
		return NewValidationError("donor", "donor and requester must differ")
	}
	return nil
}

func ParseDeadline(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock), loc)
}

type CreateDonationRequestInput struct {
	RecipientName  string     `json:"recipient_name"`
	Hospital       string     `json:"hospital"`
	BloodGroup     BloodGroup `json:"blood_group"`
	RequiredDate   string     `json:"required_date"`
	RequiredTime   string     `json:"required_time"`
	Urgency        Urgency    `json:"urgency"`
	AdditionalInfo string     `json:"additional_info"`
	Division       string     `json:"division"`
	District       string     `json:"district"`
	Upazila        string     `json:"upazila"`
	FullAddress    string     `json:"full_address"`
}

// Validate checks required fields and formats; the deadline must lie after now.
func (in *CreateDonationRequestInput) Validate(now time.Time, loc *time.Location) error {
	if strings.TrimSpace(in.RecipientName) == "" {
		return NewValidationError("recipient_name", "is required")
	}
	if strings.TrimSpace(in.Hospital) == "" {
		return NewValidationError("hospital", "is required")
	}
	if !in.BloodGroup.IsValid() {
		return NewValidationError("blood_group", "must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	}
	if in.Urgency == "" {
		in.Urgency = UrgencyNormal
	}
	if !in.Urgency.IsValid() {
		return NewValidationError("urgency", "must be normal, urgent or critical")
	}
	if in.Division == "" || in.District == "" || in.Upazila == "" {
		return NewValidationError("location", "division, district and upazila are required")
	}
	if strings.TrimSpace(in.FullAddress) == "" {
		return NewValidationError("full_address", "is required")
	}
	return validateDeadline(in.RequiredDate, in.RequiredTime, now, loc)
}

// UpdateDonationRequestInput lists the only fields an edit may touch. Blood
// group, donor and the division/district/upazila triple are fixed at creation.
type UpdateDonationRequestInput struct {
	RecipientName  *string `json:"recipient_name,omitempty"`
	Hospital       *string `json:"hospital,omitempty"`
	RequiredDate   *string `json:"required_date,omitempty"`
	RequiredTime   *string `json:"required_time,omitempty"`
	FullAddress    *string `json:"full_address,omitempty"`
	AdditionalInfo *string `json:"additional_info,omitempty"`
}

func (in *UpdateDonationRequestInput) IsEmpty() bool {
	return in.RecipientName == nil && in.Hospital == nil && in.RequiredDate == nil &&
		in.RequiredTime == nil && in.FullAddress == nil && in.AdditionalInfo == nil
}

// ApplyTo validates the edit against req and writes the new values into req.
func (in *UpdateDonationRequestInput) ApplyTo(req *DonationRequest, now time.Time, loc *time.Location) error {
	if in.IsEmpty() {
		return NewValidationError("body", "no editable fields supplied")
	}
	if in.RecipientName != nil && strings.TrimSpace(*in.RecipientName) == "" {
		return NewValidationError("recipient_name", "must not be empty")
	}
	if in.Hospital != nil && strings.TrimSpace(*in.Hospital) == "" {
		return NewValidationError("hospital", "must not be empty")
	}
	if in.FullAddress != nil && strings.TrimSpace(*in.FullAddress) == "" {
		return NewValidationError("full_address", "must not be empty")
	}

	date, clock := req.DonationInfo.RequiredDate, req.DonationInfo.RequiredTime
	if in.RequiredDate != nil {
		date = *in.RequiredDate
	}
	if in.RequiredTime != nil {
		clock = *in.RequiredTime
	}
	if in.RequiredDate != nil || in.RequiredTime != nil {
		if err := validateDeadline(date, clock, now, loc); err != nil {
			return err
		}
	}

	if in.RecipientName != nil {
		req.Recipient.Name = *in.RecipientName
	}
	if in.Hospital != nil {
		req.Recipient.Hospital = *in.Hospital
	}
	if in.FullAddress != nil {
		req.Location.FullAddress = *in.FullAddress
	}
	if in.AdditionalInfo != nil {
		req.DonationInfo.AdditionalInfo = *in.AdditionalInfo
	}
	req.DonationInfo.RequiredDate = date
	req.DonationInfo.RequiredTime = clock
	return nil
}

func validateDeadline(date, clock string, now time.Time, loc *time.Location) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return NewValidationError("required_date", "must be formatted YYYY-MM-DD")
	}
	if _, err := time.Parse(TimeLayout, clock); err != nil {
		return NewValidationError("required_time", "must be formatted HH:MM")
	}
	deadline, err := ParseDeadline(date, clock, loc)
	if err != nil {
		return NewValidationError("required_date", "invalid deadline")
	}
	if !now.Before(deadline) {
		return NewValidationError("required_date", "deadline must be in the future")
	}
	return nil
}

type ListRequestsFilter struct {
	Status      *RequestStatus
	BloodGroup  *BloodGroup
	RequesterID *uuid.UUID
	DonorID     *uuid.UUID
}

type ForceStatusInput struct {
	Status RequestStatus `json:"status"`
	Note   string        `json:"note,omitempty"`
}
