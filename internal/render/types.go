// Package render draws submitted field values onto a source PDF.
//
// Rendering runs in two stages: BuildPlan converts field geometry from the
// shared top-left layout space into the PDF-native bottom-left render space
// and resolves per-type draw semantics; Renderer turns the plan into page
// content via pdfcpu stamps. The split keeps all coordinate math testable
// without touching a document.
package render

import "github.com/eformly/formfill/internal/fields"

// RenderField is the transient union of a placement's geometry and type
// with a resolved value and optional styling. It exists for one render pass
// and is never persisted.
type RenderField struct {
	ID     string      `json:"id"`
	Label  string      `json:"label,omitempty"`
	Type   fields.Type `json:"type"`
	Page   int         `json:"page"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Value  string      `json:"value"`
	Color  string      `json:"color,omitempty"`      // colorMap key, default black
	Bold   bool        `json:"fontWeight,omitempty"` // bold vs normal
}

// RGB is a color with components in [0,1].
type RGB struct {
	R, G, B float64
}

// Field ink colors selectable per render field.
var colorMap = map[string]RGB{
	"black":   {0, 0, 0},
	"blue":    {0.145, 0.388, 0.922},
	"red":     {0.863, 0.149, 0.149},
	"green":   {0.02, 0.588, 0.412},
	"emerald": {0.02, 0.588, 0.412},
}

var (
	colorBlack      = RGB{0, 0, 0}
	colorRed        = RGB{1, 0, 0}
	colorFooterGray = RGB{0.5, 0.5, 0.5}
)

// fieldColor resolves a style name, defaulting to black.
func fieldColor(name string) RGB {
	if c, ok := colorMap[name]; ok {
		return c
	}
	return colorBlack
}

// MarkKind discriminates the draw operations a plan can carry.
type MarkKind int

const (
	// MarkText draws a single styled text run.
	MarkText MarkKind = iota
	// MarkCheck draws a checkmark glyph sized to the field box.
	MarkCheck
	// MarkImage embeds a decoded image scaled to fit the field box.
	MarkImage
)

// Mark is one draw operation in render (bottom-left) coordinate space.
// X and Y anchor the lower-left corner of the drawn content.
type Mark struct {
	Page int
	Kind MarkKind

	X float64
	Y float64

	// MarkText / MarkCheck
	Text     string
	FontSize float64
	Color    RGB
	Bold     bool

	// MarkCheck
	Size float64

	// MarkImage
	Image  []byte
	Scale  float64
	Width  float64
	Height float64
}

// Plan is the complete set of draw operations for one render pass. Footer
// marks are kept separate because they apply to every page regardless of
// whether the page received field marks.
type Plan struct {
	Marks   []Mark
	Footers []Mark
}

// GenerationError indicates the source document could not be loaded or the
// filled document could not be serialized. Per-field draw failures never
// surface as this; they are logged and skipped.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "pdf generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
