package location

// Selection is the division/district/upazila triple chosen in a form. Every
// setter returns a new value; changing a parent clears all of its descendants
// in the same step so a stale child can never be submitted.
type Selection struct {
	Division string `json:"division"`
	District string `json:"district"`
	Upazila  string `json:"upazila"`
}

func (s Selection) SelectDivision(value string) Selection {
	if value == s.Division {
		return s
	}
	return Selection{Division: value}
}

func (s Selection) SelectDistrict(value string) Selection {
	if value == s.District {
		return s
	}
	return Selection{Division: s.Division, District: value}
}

func (s Selection) SelectUpazila(value string) Selection {
	s.Upazila = value
	return s
}

// Options returns the child lists the form should offer for s.
func (s Selection) Options(h *Hierarchy) (districts, upazilas []string) {
	for _, d := range h.DistrictsOf(s.Division) {
		districts = append(districts, d.DisplayName())
	}
	for _, u := range h.UpazilasOf(s.District) {
		upazilas = append(upazilas, u.DisplayName())
	}
	return districts, upazilas
}

// Complete reports whether all three levels are set and consistent.
func (s Selection) Complete(h *Hierarchy) bool {
	return s.Division != "" && s.District != "" && s.Upazila != "" &&
		h.ValidSelection(s.Division, s.District, s.Upazila)
}
