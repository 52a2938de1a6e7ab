package types

// Subject identifies a single stock under analysis.
type Subject struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// Identifier returns "name(code)" when a name is known, otherwise the code.
func (s Subject) Identifier() string {
	if s.Name != "" {
		return s.Name + "(" + s.Code + ")"
	}
	return s.Code
}
