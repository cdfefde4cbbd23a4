package fields

import (
	"testing"

	"github.com/eformly/formfill/internal/layout"
)

func TestValidateCoordinates(t *testing.T) {
	pages := []layout.PageMetadata{
		{Number: 1, Width: 612, Height: 792},
		{Number: 2, Width: 842, Height: 595},
	}

	tests := []struct {
		name string
		box  Box
		want bool
	}{
		{
			name: "well inside page one",
			box:  Box{Page: 1, X: 50, Y: 50, Width: 150, Height: 30},
			want: true,
		},
		{
			name: "flush against bottom-right corner",
			box:  Box{Page: 1, X: 512, Y: 762, Width: 100, Height: 30},
			want: true,
		},
		{
			name: "exactly minimum size",
			box:  Box{Page: 1, X: 0, Y: 0, Width: MinWidth, Height: MinHeight},
			want: true,
		},
		{
			name: "landscape second page",
			box:  Box{Page: 2, X: 700, Y: 500, Width: 100, Height: 50},
			want: true,
		},
		{
			name: "page zero",
			box:  Box{Page: 0, X: 50, Y: 50, Width: 100, Height: 30},
			want: false,
		},
		{
			name: "page beyond document",
			box:  Box{Page: 3, X: 50, Y: 50, Width: 100, Height: 30},
			want: false,
		},
		{
			name: "negative x",
			box:  Box{Page: 1, X: -1, Y: 50, Width: 100, Height: 30},
			want: false,
		},
		{
			name: "negative y",
			box:  Box{Page: 1, X: 50, Y: -1, Width: 100, Height: 30},
			want: false,
		},
		{
			name: "overflows right edge",
			box:  Box{Page: 1, X: 600, Y: 50, Width: 100, Height: 30},
			want: false,
		},
		{
			name: "overflows bottom edge",
			box:  Box{Page: 1, X: 50, Y: 780, Width: 100, Height: 30},
			want: false,
		},
		{
			name: "too narrow",
			box:  Box{Page: 1, X: 50, Y: 50, Width: MinWidth - 1, Height: 30},
			want: false,
		},
		{
			name: "too short",
			box:  Box{Page: 1, X: 50, Y: 50, Width: 100, Height: MinHeight - 1},
			want: false,
		},
		{
			name: "fits portrait but not landscape dims",
			box:  Box{Page: 2, X: 50, Y: 700, Width: 100, Height: 30},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCoordinates(tt.box, pages); got != tt.want {
				t.Errorf("ValidateCoordinates(%+v) = %v, want %v", tt.box, got, tt.want)
			}
		})
	}
}

func TestValidateCoordinates_NoPages(t *testing.T) {
	box := Box{Page: 1, X: 0, Y: 0, Width: 100, Height: 30}
	if ValidateCoordinates(box, nil) {
		t.Error("expected false for empty page list")
	}
}

func TestBoxAccessors(t *testing.T) {
	s := Suggestion{Page: 2, X: 10, Y: 20, Width: 100, Height: 40}
	if got := s.Box(); got != (Box{Page: 2, X: 10, Y: 20, Width: 100, Height: 40}) {
		t.Errorf("Suggestion.Box() = %+v", got)
	}

	p := Placement{Page: 1, X: 5, Y: 15, Width: 80, Height: 25}
	if got := p.Box(); got != (Box{Page: 1, X: 5, Y: 15, Width: 80, Height: 25}) {
		t.Errorf("Placement.Box() = %+v", got)
	}
}
