package domain

// LocationNode is one entry of the division, district or upazila reference lists.
// A name may be present under Name, EnName or both.
type LocationNode struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	EnName   string `json:"en_name,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

// Matches is a case-sensitive exact comparison against either name field.
func (n LocationNode) Matches(value string) bool {
	if value == "" {
		return false
	}
	return n.Name == value || n.EnName == value
}

// DisplayName prefers the English name.
func (n LocationNode) DisplayName() string {
	if n.EnName != "" {
		return n.EnName
	}
	return n.Name
}
