package search

import (
	"net/url"
	"strconv"
	"strings"

	"blood-donation/internal/domain"
	"blood-donation/internal/service/location"
)

const (
	FieldBloodGroup = "blood_group"
	FieldDivision   = "division"
	FieldDistrict   = "district"
	FieldUpazila    = "upazila"
)

// Filter is a donor-directory query. Only supplied fields are present; an
// absent field means "no constraint" and is never sent as an empty string.
type Filter struct {
	fields map[string]string
}

func NewFilter(bloodGroup, division, district, upazila string) Filter {
	f := Filter{fields: make(map[string]string, 4)}
	f.set(FieldBloodGroup, bloodGroup)
	f.set(FieldDivision, division)
	f.set(FieldDistrict, district)
	f.set(FieldUpazila, upazila)
	return f
}

func (f Filter) set(key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		f.fields[key] = v
	}
}

func (f Filter) Get(key string) (string, bool) {
	v, ok := f.fields[key]
	return v, ok
}

// Fields returns a copy of the present constraints.
func (f Filter) Fields() map[string]string {
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return out
}

func (f Filter) IsEmpty() bool {
	return len(f.fields) == 0
}

func (f Filter) BloodGroup() (domain.BloodGroup, bool) {
	v, ok := f.fields[FieldBloodGroup]
	return domain.BloodGroup(v), ok
}

// Validate rejects unknown blood groups and location levels that do not exist
// or do not belong to the supplied parent. Location checks are skipped while
// the reference data is not loaded.
func (f Filter) Validate(h *location.Hierarchy) error {
	if bg, ok := f.BloodGroup(); ok && !bg.IsValid() {
		return domain.NewValidationError(FieldBloodGroup, "unknown blood group")
	}
	if !h.Loaded() {
		return nil
	}

	div, hasDiv := f.fields[FieldDivision]
	dist, hasDist := f.fields[FieldDistrict]
	upa, hasUpa := f.fields[FieldUpazila]

	if hasDiv {
		if _, ok := h.FindDivision(div); !ok {
			return domain.NewValidationError(FieldDivision, "unknown division")
		}
	}
	if hasDist {
		if _, ok := h.FindDistrict(dist); !ok {
			return domain.NewValidationError(FieldDistrict, "unknown district")
		}
		if hasDiv && !contains(h.DistrictsOf(div), dist) {
			return domain.NewValidationError(FieldDistrict, "district is not in the selected division")
		}
	}
	if hasUpa {
		if _, ok := h.FindUpazila(upa); !ok {
			return domain.NewValidationError(FieldUpazila, "unknown upazila")
		}
		if hasDist && !contains(h.UpazilasOf(dist), upa) {
			return domain.NewValidationError(FieldUpazila, "upazila is not in the selected district")
		}
	}
	return nil
}

func contains(nodes []domain.LocationNode, value string) bool {
	for _, n := range nodes {
		if n.Matches(value) {
			return true
		}
	}
	return false
}

// Query renders the filter plus pagination as URL query values.
func (f Filter) Query(page, limit int) url.Values {
	q := url.Values{}
	for k, v := range f.fields {
		q.Set(k, v)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// CacheKey is stable for equal filters and pages. Values are query-escaped so
// separators inside a value cannot imitate another field.
func (f Filter) CacheKey(page, limit int) string {
	return "donors:" + f.Query(page, limit).Encode()
}
