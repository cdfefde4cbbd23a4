// Package fields defines the form-field data model shared by the mapping
// orchestrator, the layout validator and the fill renderer.
package fields

import "strings"

// Type is the closed set of supported field types. Dispatch on Type is done
// with exhaustive switches at validation and render sites so an added type
// fails loudly until handled everywhere.
type Type string

const (
	TypeText      Type = "text"
	TypeNumber    Type = "number"
	TypeEmail     Type = "email"
	TypeTextarea  Type = "textarea"
	TypeCheckbox  Type = "checkbox"
	TypeDropdown  Type = "dropdown"
	TypeSignature Type = "signature"
	TypeRadio     Type = "radio"
)

// Valid reports whether t is a member of the closed type set.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeNumber, TypeEmail, TypeTextarea,
		TypeCheckbox, TypeDropdown, TypeSignature, TypeRadio:
		return true
	}
	return false
}

// NormalizeSuggested maps a raw type tag coming back from the language
// service onto the closed set. Radio-shaped suggestions fold into checkbox:
// first-class radio grouping is only honored for manually placed fields.
// Unknown tags fall back to text.
func NormalizeSuggested(raw string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))

	switch t {
	case TypeRadio:
		return TypeCheckbox
	case "date":
		return TypeText
	case "select":
		return TypeDropdown
	}

	if t.Valid() {
		return t
	}
	return TypeText
}

// Suggestion is an unconfirmed, AI-produced field carrying a confidence
// score. Coordinates are top-left-origin PDF points.
type Suggestion struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Type       Type     `json:"type"`
	Page       int      `json:"page"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	Confidence float64  `json:"confidence"`
	GroupName  string   `json:"groupName,omitempty"`
	Value      string   `json:"value,omitempty"`
	Options    []string `json:"options,omitempty"`
}

// Placement is a confirmed field belonging to a persisted form layout.
// The core never mutates a placement after creation; external edits re-enter
// as a fresh placement list.
type Placement struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Type      Type     `json:"type"`
	Page      int      `json:"page"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	GroupName string   `json:"groupName,omitempty"`
	Value     string   `json:"value,omitempty"`
	Options   []string `json:"options,omitempty"`
}
