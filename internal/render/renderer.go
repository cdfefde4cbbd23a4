package render

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sirupsen/logrus"
)

// checkGlyph is the heavy checkmark in the ZapfDingbats base-14 font.
// Drawing a dingbat avoids WinAnsi encoding issues with U+2713 in the
// text fonts.
const checkGlyph = "4"

// Renderer stamps a plan's draw operations onto a source document.
type Renderer struct {
	log *logrus.Entry
}

// NewRenderer creates a renderer.
func NewRenderer() *Renderer {
	return &Renderer{
		log: logrus.WithField("component", "render"),
	}
}

// Render applies every mark in the plan to the source document and returns
// the filled PDF bytes. A single mark that cannot be built is logged and
// skipped; failure to load the source or serialize the output is fatal and
// surfaces as a *GenerationError.
func (r *Renderer) Render(src []byte, plan *Plan) ([]byte, error) {
	if len(src) == 0 {
		return nil, &GenerationError{Err: fmt.Errorf("empty source document")}
	}

	stamps := make(map[int][]*model.Watermark)
	for _, mk := range plan.Marks {
		wm, err := r.buildStamp(mk)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"page": mk.Page,
				"kind": mk.Kind,
			}).WithError(err).Warn("failed to build field mark, skipping")
			continue
		}
		stamps[mk.Page] = append(stamps[mk.Page], wm)
	}
	for _, mk := range plan.Footers {
		wm, err := r.footerStamp(mk)
		if err != nil {
			r.log.WithField("page", mk.Page).WithError(err).Warn("failed to build footer mark, skipping")
			continue
		}
		stamps[mk.Page] = append(stamps[mk.Page], wm)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(src), &out, stamps, conf); err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("failed to stamp document: %w", err)}
	}

	r.log.WithFields(logrus.Fields{
		"marks": len(plan.Marks),
		"pages": len(plan.Footers),
		"bytes": out.Len(),
	}).Info("generated filled document")

	return out.Bytes(), nil
}

// buildStamp converts one mark into a pdfcpu watermark anchored at the
// page's bottom-left corner with an absolute offset.
func (r *Renderer) buildStamp(mk Mark) (*model.Watermark, error) {
	switch mk.Kind {
	case MarkText:
		font := "Helvetica"
		if mk.Bold {
			font = "Helvetica-Bold"
		}
		desc := fmt.Sprintf(
			"fontname:%s, points:%d, scale:1 abs, pos:bl, off:%.2f %.2f, fillcolor:%s, rot:0, op:1",
			font, int(mk.FontSize), mk.X, mk.Y, hexColor(mk.Color))
		return api.TextWatermark(mk.Text, desc, true, false, types.POINTS)

	case MarkCheck:
		desc := fmt.Sprintf(
			"fontname:ZapfDingbats, points:%d, scale:1 abs, pos:bl, off:%.2f %.2f, fillcolor:%s, rot:0, op:1",
			int(mk.Size), mk.X, mk.Y, hexColor(mk.Color))
		return api.TextWatermark(checkGlyph, desc, true, false, types.POINTS)

	case MarkImage:
		desc := fmt.Sprintf(
			"pos:bl, off:%.2f %.2f, scale:%.4f abs, rot:0, op:1",
			mk.X, mk.Y, mk.Scale)
		return api.ImageWatermarkForReader(bytes.NewReader(mk.Image), desc, true, false, types.POINTS)

	default:
		return nil, fmt.Errorf("unknown mark kind %d", mk.Kind)
	}
}

// footerStamp centers the branding line horizontally near the page bottom.
func (r *Renderer) footerStamp(mk Mark) (*model.Watermark, error) {
	desc := fmt.Sprintf(
		"fontname:Helvetica, points:%d, scale:1 abs, pos:bc, off:0 %.0f, fillcolor:%s, rot:0, op:1",
		int(mk.FontSize), mk.Y, hexColor(mk.Color))
	return api.TextWatermark(mk.Text, desc, true, false, types.POINTS)
}

func hexColor(c RGB) string {
	return fmt.Sprintf("#%02x%02x%02x",
		int(c.R*255+0.5), int(c.G*255+0.5), int(c.B*255+0.5))
}
