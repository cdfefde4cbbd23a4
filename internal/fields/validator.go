package fields

import "github.com/eformly/formfill/internal/layout"

// Minimum usable field box in PDF points.
const (
	MinWidth  = 10.0
	MinHeight = 10.0
)

// Box is the geometry of a field in top-left coordinate space.
type Box struct {
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Box returns the suggestion's geometry.
func (s Suggestion) Box() Box {
	return Box{Page: s.Page, X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// Box returns the placement's geometry.
func (p Placement) Box() Box {
	return Box{Page: p.Page, X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// ValidateCoordinates reports whether the box references an existing page,
// lies entirely within that page's bounds and meets the minimum size. Pure:
// it is used both to filter AI suggestions and to re-validate externally
// edited placements before persistence or rendering.
func ValidateCoordinates(b Box, pages []layout.PageMetadata) bool {
	pageIndex := b.Page - 1
	if pageIndex < 0 || pageIndex >= len(pages) {
		return false
	}

	page := pages[pageIndex]

	fitsX := b.X >= 0 && b.X+b.Width <= page.Width
	fitsY := b.Y >= 0 && b.Y+b.Height <= page.Height
	hasMinSize := b.Width >= MinWidth && b.Height >= MinHeight

	return fitsX && fitsY && hasMinSize
}
