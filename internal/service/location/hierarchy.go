package location

import (
	"fmt"

	"blood-donation/internal/domain"
)

type Dataset struct {
	Divisions []domain.LocationNode `json:"divisions"`
	Districts []domain.LocationNode `json:"districts"`
	Upazilas  []domain.LocationNode `json:"upazilas"`
}

// Hierarchy answers cascading lookups over a loaded Dataset. It is immutable
// after construction and safe for concurrent use. A nil *Hierarchy behaves as
// "not loaded yet" and returns empty results.
type Hierarchy struct {
	divisions []domain.LocationNode
	districts []domain.LocationNode
	upazilas  []domain.LocationNode

	districtsByDivision map[string][]domain.LocationNode
	upazilasByDistrict  map[string][]domain.LocationNode
}

// NewHierarchy indexes ds. Children whose parent id is missing are dropped;
// use Problems on the raw dataset to report them.
func NewHierarchy(ds Dataset) *Hierarchy {
	h := &Hierarchy{
		districtsByDivision: make(map[string][]domain.LocationNode),
		upazilasByDistrict:  make(map[string][]domain.LocationNode),
	}

	divisionIDs := make(map[string]struct{}, len(ds.Divisions))
	for _, d := range ds.Divisions {
		if d.ID == "" {
			continue
		}
		divisionIDs[d.ID] = struct{}{}
		h.divisions = append(h.divisions, d)
	}

	districtIDs := make(map[string]struct{}, len(ds.Districts))
	for _, d := range ds.Districts {
		if _, ok := divisionIDs[d.ParentID]; !ok || d.ID == "" {
			continue
		}
		districtIDs[d.ID] = struct{}{}
		h.districts = append(h.districts, d)
		h.districtsByDivision[d.ParentID] = append(h.districtsByDivision[d.ParentID], d)
	}

	for _, u := range ds.Upazilas {
		if _, ok := districtIDs[u.ParentID]; !ok || u.ID == "" {
			continue
		}
		h.upazilas = append(h.upazilas, u)
		h.upazilasByDistrict[u.ParentID] = append(h.upazilasByDistrict[u.ParentID], u)
	}

	return h
}

// Problems lists every district or upazila whose parent does not exist.
func Problems(ds Dataset) []string {
	var out []string
	divisions := make(map[string]struct{}, len(ds.Divisions))
	for _, d := range ds.Divisions {
		divisions[d.ID] = struct{}{}
	}
	districts := make(map[string]struct{}, len(ds.Districts))
	for _, d := range ds.Districts {
		districts[d.ID] = struct{}{}
		if _, ok := divisions[d.ParentID]; !ok {
			out = append(out, fmt.Sprintf("district %s (%s) references unknown division %q", d.ID, d.DisplayName(), d.ParentID))
		}
	}
	for _, u := range ds.Upazilas {
		if _, ok := districts[u.ParentID]; !ok {
			out = append(out, fmt.Sprintf("upazila %s (%s) references unknown district %q", u.ID, u.DisplayName(), u.ParentID))
		}
	}
	return out
}

func (h *Hierarchy) Loaded() bool {
	return h != nil && len(h.divisions) > 0
}

func (h *Hierarchy) Divisions() []domain.LocationNode {
	if h == nil {
		return []domain.LocationNode{}
	}
	return clone(h.divisions)
}

// DistrictsOf returns the districts of the division named divisionValue.
func (h *Hierarchy) DistrictsOf(divisionValue string) []domain.LocationNode {
	if h == nil {
		return []domain.LocationNode{}
	}
	division, ok := find(h.divisions, divisionValue)
	if !ok {
		return []domain.LocationNode{}
	}
	return clone(h.districtsByDivision[division.ID])
}

// UpazilasOf returns the upazilas of the district named districtValue.
func (h *Hierarchy) UpazilasOf(districtValue string) []domain.LocationNode {
	if h == nil {
		return []domain.LocationNode{}
	}
	district, ok := find(h.districts, districtValue)
	if !ok {
		return []domain.LocationNode{}
	}
	return clone(h.upazilasByDistrict[district.ID])
}

func (h *Hierarchy) FindDivision(value string) (domain.LocationNode, bool) {
	if h == nil {
		return domain.LocationNode{}, false
	}
	return find(h.divisions, value)
}

func (h *Hierarchy) FindDistrict(value string) (domain.LocationNode, bool) {
	if h == nil {
		return domain.LocationNode{}, false
	}
	return find(h.districts, value)
}

func (h *Hierarchy) FindUpazila(value string) (domain.LocationNode, bool) {
	if h == nil {
		return domain.LocationNode{}, false
	}
	return find(h.upazilas, value)
}

// ValidSelection reports whether the given values name existing places that
// belong to each other. Empty trailing values are allowed; a child without its
// parent is not.
func (h *Hierarchy) ValidSelection(division, district, upazila string) bool {
	if h == nil {
		return false
	}
	if division == "" {
		return district == "" && upazila == ""
	}
	div, ok := find(h.divisions, division)
	if !ok {
		return false
	}
	if district == "" {
		return upazila == ""
	}
	dist, ok := find(h.districtsByDivision[div.ID], district)
	if !ok {
		return false
	}
	if upazila == "" {
		return true
	}
	_, ok = find(h.upazilasByDistrict[dist.ID], upazila)
	return ok
}

func find(nodes []domain.LocationNode, value string) (domain.LocationNode, bool) {
	if value == "" {
		return domain.LocationNode{}, false
	}
	for _, n := range nodes {
		if n.Matches(value) {
			return n, true
		}
	}
	return domain.LocationNode{}, false
}

func clone(nodes []domain.LocationNode) []domain.LocationNode {
	out := make([]domain.LocationNode, len(nodes))
	copy(out, nodes)
	return out
}
