package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/sirupsen/logrus"

	"github.com/eformly/formfill/internal/fields"
	"github.com/eformly/formfill/internal/layout"
)

const (
	fieldFontSize    = 9.0
	fallbackFontSize = 8.0

	// FooterText is stamped centered on every page of a filled document.
	FooterText     = "Filled with eformly (eformly.app)"
	footerFontSize = 8.0
	footerYOffset  = 20.0

	signatureErrorLabel = "(Signature Error)"
)

// selectedTokens are the boolean-like values that mark a checkbox or radio
// field as selected, compared case-insensitively.
var selectedTokens = map[string]bool{
	"true":    true,
	"checked": true,
	"yes":     true,
	"on":      true,
	"1":       true,
}

// IsSelected reports whether a raw submission value counts as a selection
// mark for checkbox and radio fields.
func IsSelected(value string) bool {
	return selectedTokens[strings.ToLower(strings.TrimSpace(value))]
}

// ResolveValues merges a submission onto a placement list, producing the
// transient render fields for one pass. Radio group exclusivity is resolved
// here: a radio field is selected iff the submitted group selector equals
// the field's own value. The selector is read from the group name key, with
// the field id as fallback for ungrouped radios.
func ResolveValues(placements []fields.Placement, values map[string]string) []RenderField {
	resolved := make([]RenderField, 0, len(placements))

	for _, p := range placements {
		rf := RenderField{
			ID:     p.ID,
			Label:  p.Label,
			Type:   p.Type,
			Page:   p.Page,
			X:      p.X,
			Y:      p.Y,
			Width:  p.Width,
			Height: p.Height,
		}

		switch p.Type {
		case fields.TypeRadio:
			selector, ok := values[p.GroupName]
			if !ok || p.GroupName == "" {
				selector = values[p.ID]
			}
			if selector != "" && selector == p.Value {
				rf.Value = "true"
			}
		case fields.TypeText, fields.TypeNumber, fields.TypeEmail,
			fields.TypeTextarea, fields.TypeCheckbox, fields.TypeDropdown,
			fields.TypeSignature:
			rf.Value = values[p.ID]
		}

		resolved = append(resolved, rf)
	}

	return resolved
}

// BuildPlan converts render fields into draw operations. Fields with empty
// values are skipped; a field referencing a missing page is logged and
// skipped rather than aborting the pass. Footer marks are emitted for every
// page unconditionally.
func BuildPlan(rfs []RenderField, pages []layout.PageMetadata, log *logrus.Entry) *Plan {
	if log == nil {
		log = logrus.WithField("component", "render")
	}

	plan := &Plan{}

	for _, f := range rfs {
		if f.Value == "" {
			continue
		}

		pageIndex := f.Page - 1
		if pageIndex < 0 || pageIndex >= len(pages) {
			log.WithFields(logrus.Fields{
				"field": f.ID,
				"page":  f.Page,
				"pages": len(pages),
			}).Warn("field page out of range, skipping")
			continue
		}

		page := pages[pageIndex]

		// Flip into render space: y grows upward from the page bottom.
		y := page.Height - f.Y - f.Height
		// Baseline that vertically centers a 9pt run inside the box.
		textY := y + f.Height/2 - 4

		ink := fieldColor(f.Color)

		switch f.Type {
		case fields.TypeText, fields.TypeNumber, fields.TypeEmail,
			fields.TypeTextarea, fields.TypeDropdown:
			plan.Marks = append(plan.Marks, Mark{
				Page:     f.Page,
				Kind:     MarkText,
				Text:     clipToWidth(f.Value, f.Width, fieldFontSize),
				X:        f.X + 2,
				Y:        textY,
				FontSize: fieldFontSize,
				Color:    ink,
				Bold:     f.Bold,
			})

		case fields.TypeCheckbox, fields.TypeRadio:
			if !IsSelected(f.Value) {
				continue
			}
			size := f.Width
			if f.Height < size {
				size = f.Height
			}
			plan.Marks = append(plan.Marks, Mark{
				Page:  f.Page,
				Kind:  MarkCheck,
				X:     f.X + (f.Width-size)/2,
				Y:     y + (f.Height-size)/2,
				Size:  size,
				Color: ink,
				Bold:  f.Bold,
			})

		case fields.TypeSignature:
			mark, ok := signatureMark(f, y, textY, log)
			if !ok {
				continue
			}
			plan.Marks = append(plan.Marks, mark)
		}
	}

	for _, page := range pages {
		plan.Footers = append(plan.Footers, Mark{
			Page:     page.Number,
			Kind:     MarkText,
			Text:     FooterText,
			Y:        footerYOffset,
			FontSize: footerFontSize,
			Color:    colorFooterGray,
		})
	}

	return plan
}

// signatureMark decodes a base64 image data URI and fits it into the field
// box preserving aspect ratio. Decode failures degrade to a small red
// fallback label instead of aborting the render.
func signatureMark(f RenderField, y, textY float64, log *logrus.Entry) (Mark, bool) {
	fallback := Mark{
		Page:     f.Page,
		Kind:     MarkText,
		Text:     signatureErrorLabel,
		X:        f.X,
		Y:        textY,
		FontSize: fallbackFontSize,
		Color:    colorRed,
	}

	if !strings.HasPrefix(f.Value, "data:image") {
		// Not an image payload; nothing to draw.
		return Mark{}, false
	}

	_, payload, found := strings.Cut(f.Value, ",")
	if !found {
		log.WithField("field", f.ID).Warn("malformed signature data URI")
		return fallback, true
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		log.WithField("field", f.ID).WithError(err).Warn("failed to decode signature image")
		return fallback, true
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		log.WithField("field", f.ID).WithError(err).Warn("failed to read signature image dimensions")
		return fallback, true
	}

	scale := f.Width / float64(cfg.Width)
	if s := f.Height / float64(cfg.Height); s < scale {
		scale = s
	}

	scaledW := float64(cfg.Width) * scale
	scaledH := float64(cfg.Height) * scale

	return Mark{
		Page:   f.Page,
		Kind:   MarkImage,
		X:      f.X + (f.Width-scaledW)/2,
		Y:      y + (f.Height-scaledH)/2,
		Image:  raw,
		Scale:  scale,
		Width:  scaledW,
		Height: scaledH,
	}, true
}

// clipToWidth truncates a value that cannot fit the field box. Helvetica
// has no fixed advance width, so this uses an average glyph width of half
// the font size; an approximation, not a metric measurement.
func clipToWidth(s string, width, fontSize float64) string {
	maxChars := int(width / (fontSize * 0.5))
	if maxChars < 1 {
		maxChars = 1
	}

	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
