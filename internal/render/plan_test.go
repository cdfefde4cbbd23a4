package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/eformly/formfill/internal/fields"
	"github.com/eformly/formfill/internal/layout"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

var letterPage = []layout.PageMetadata{{Number: 1, Width: 612, Height: 792}}

func TestIsSelected(t *testing.T) {
	for _, v := range []string{"true", "TRUE", " yes ", "checked", "on", "1"} {
		if !IsSelected(v) {
			t.Errorf("IsSelected(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"", "false", "no", "0", "maybe", "2"} {
		if IsSelected(v) {
			t.Errorf("IsSelected(%q) = true, want false", v)
		}
	}
}

func TestResolveValues_Text(t *testing.T) {
	placements := []fields.Placement{
		{ID: "f1", Type: fields.TypeText, Page: 1, X: 50, Y: 50, Width: 150, Height: 30},
		{ID: "f2", Type: fields.TypeEmail, Page: 1, X: 50, Y: 100, Width: 150, Height: 30},
	}
	values := map[string]string{"f1": "Jane Doe"}

	rfs := ResolveValues(placements, values)
	if len(rfs) != 2 {
		t.Fatalf("expected 2 render fields but got %d", len(rfs))
	}
	if rfs[0].Value != "Jane Doe" {
		t.Errorf("f1 value = %q, want %q", rfs[0].Value, "Jane Doe")
	}
	if rfs[1].Value != "" {
		t.Errorf("unsubmitted f2 value = %q, want empty", rfs[1].Value)
	}
}

func TestResolveValues_RadioExclusivity(t *testing.T) {
	placements := []fields.Placement{
		{ID: "r1", Type: fields.TypeRadio, GroupName: "size", Value: "A", Page: 1, X: 50, Y: 50, Width: 15, Height: 15},
		{ID: "r2", Type: fields.TypeRadio, GroupName: "size", Value: "B", Page: 1, X: 80, Y: 50, Width: 15, Height: 15},
	}

	rfs := ResolveValues(placements, map[string]string{"size": "B"})
	if rfs[0].Value != "" {
		t.Errorf("unselected radio r1 got value %q", rfs[0].Value)
	}
	if rfs[1].Value != "true" {
		t.Errorf("selected radio r2 value = %q, want %q", rfs[1].Value, "true")
	}

	// A selector matching no member selects nothing.
	rfs = ResolveValues(placements, map[string]string{"size": "C"})
	if rfs[0].Value != "" || rfs[1].Value != "" {
		t.Error("selector matching no member should select nothing")
	}
}

func TestResolveValues_RadioFallsBackToID(t *testing.T) {
	placements := []fields.Placement{
		{ID: "r1", Type: fields.TypeRadio, Value: "opt", Page: 1, X: 50, Y: 50, Width: 15, Height: 15},
	}

	rfs := ResolveValues(placements, map[string]string{"r1": "opt"})
	if rfs[0].Value != "true" {
		t.Errorf("ungrouped radio keyed by id not selected: %q", rfs[0].Value)
	}
}

func TestBuildPlan_TextBaselineWithinBox(t *testing.T) {
	rfs := []RenderField{
		{ID: "f1", Type: fields.TypeText, Page: 1, X: 50, Y: 50, Width: 150, Height: 30, Value: "Jane"},
	}

	plan := BuildPlan(rfs, letterPage, testLog())
	if len(plan.Marks) != 1 {
		t.Fatalf("expected 1 mark but got %d", len(plan.Marks))
	}

	mk := plan.Marks[0]
	if mk.Kind != MarkText {
		t.Fatalf("expected text mark, got kind %d", mk.Kind)
	}
	if mk.X != 52 {
		t.Errorf("x = %g, want 52 (box x plus inset)", mk.X)
	}

	// The box occupies [712, 742] in render space (792 - 50 - 30 = 712);
	// the baseline must land inside it.
	if mk.Y != 723 {
		t.Errorf("baseline y = %g, want 723", mk.Y)
	}
	if mk.Y < 712 || mk.Y > 742 {
		t.Errorf("baseline y = %g outside box band [712, 742]", mk.Y)
	}
	if mk.Color != colorBlack {
		t.Errorf("default ink = %+v, want black", mk.Color)
	}
}

func TestBuildPlan_CheckboxCenteredSquare(t *testing.T) {
	rfs := []RenderField{
		{ID: "c1", Type: fields.TypeCheckbox, Page: 1, X: 100, Y: 200, Width: 30, Height: 16, Value: "yes", Color: "blue"},
		{ID: "c2", Type: fields.TypeCheckbox, Page: 1, X: 100, Y: 240, Width: 30, Height: 16, Value: "false"},
	}

	plan := BuildPlan(rfs, letterPage, testLog())
	if len(plan.Marks) != 1 {
		t.Fatalf("expected only the selected checkbox, got %d marks", len(plan.Marks))
	}

	mk := plan.Marks[0]
	if mk.Kind != MarkCheck {
		t.Fatalf("expected check mark, got kind %d", mk.Kind)
	}
	if mk.Size != 16 {
		t.Errorf("size = %g, want min(width, height) = 16", mk.Size)
	}
	// Centered horizontally: 100 + (30-16)/2 = 107.
	if mk.X != 107 {
		t.Errorf("x = %g, want 107", mk.X)
	}
	// Box bottom: 792 - 200 - 16 = 576; square already fills the height.
	if mk.Y != 576 {
		t.Errorf("y = %g, want 576", mk.Y)
	}
	if mk.Color != colorMap["blue"] {
		t.Errorf("ink = %+v, want blue", mk.Color)
	}
}

func TestBuildPlan_EmptySubmissionIsFooterOnly(t *testing.T) {
	pages := []layout.PageMetadata{
		{Number: 1, Width: 612, Height: 792},
		{Number: 2, Width: 612, Height: 792},
	}
	rfs := []RenderField{
		{ID: "f1", Type: fields.TypeText, Page: 1, X: 50, Y: 50, Width: 150, Height: 30},
	}

	plan := BuildPlan(rfs, pages, testLog())
	if len(plan.Marks) != 0 {
		t.Errorf("expected no field marks but got %d", len(plan.Marks))
	}
	if len(plan.Footers) != 2 {
		t.Fatalf("expected a footer per page but got %d", len(plan.Footers))
	}

	for i, ft := range plan.Footers {
		if ft.Page != i+1 {
			t.Errorf("footer %d on page %d", i, ft.Page)
		}
		if ft.Text != FooterText {
			t.Errorf("footer text = %q", ft.Text)
		}
		if ft.Color != colorFooterGray {
			t.Errorf("footer color = %+v, want gray", ft.Color)
		}
		if ft.Y != footerYOffset {
			t.Errorf("footer y = %g, want %g", ft.Y, footerYOffset)
		}
	}
}

func TestBuildPlan_OutOfRangePageSkipped(t *testing.T) {
	rfs := []RenderField{
		{ID: "f1", Type: fields.TypeText, Page: 7, X: 50, Y: 50, Width: 150, Height: 30, Value: "x"},
		{ID: "f2", Type: fields.TypeText, Page: 0, X: 50, Y: 50, Width: 150, Height: 30, Value: "y"},
	}

	plan := BuildPlan(rfs, letterPage, testLog())
	if len(plan.Marks) != 0 {
		t.Errorf("marks on missing pages should be skipped, got %d", len(plan.Marks))
	}
	if len(plan.Footers) != 1 {
		t.Errorf("footer still expected on the real page, got %d", len(plan.Footers))
	}
}

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestBuildPlan_SignatureScaledToFit(t *testing.T) {
	rfs := []RenderField{
		{ID: "s1", Type: fields.TypeSignature, Page: 1, X: 50, Y: 50, Width: 150, Height: 30,
			Value: pngDataURI(t, 20, 10)},
	}

	plan := BuildPlan(rfs, letterPage, testLog())
	if len(plan.Marks) != 1 {
		t.Fatalf("expected 1 mark but got %d", len(plan.Marks))
	}

	mk := plan.Marks[0]
	if mk.Kind != MarkImage {
		t.Fatalf("expected image mark, got kind %d", mk.Kind)
	}
	// 20x10 source limited by height: scale = 30/10 = 3, so 60x30 centered
	// in a 150x30 box starting at x=50.
	if mk.Scale != 3 {
		t.Errorf("scale = %g, want 3", mk.Scale)
	}
	if mk.Width != 60 || mk.Height != 30 {
		t.Errorf("scaled size = %gx%g, want 60x30", mk.Width, mk.Height)
	}
	if mk.X != 95 {
		t.Errorf("x = %g, want 95 (centered)", mk.X)
	}
	if mk.Y != 712 {
		t.Errorf("y = %g, want 712", mk.Y)
	}
}

func TestBuildPlan_SignatureFallbacks(t *testing.T) {
	t.Run("corrupt payload degrades to error label", func(t *testing.T) {
		rfs := []RenderField{
			{ID: "s1", Type: fields.TypeSignature, Page: 1, X: 50, Y: 50, Width: 150, Height: 30,
				Value: "data:image/png;base64,!!!not-base64!!!"},
		}

		plan := BuildPlan(rfs, letterPage, testLog())
		if len(plan.Marks) != 1 {
			t.Fatalf("expected fallback mark but got %d marks", len(plan.Marks))
		}
		mk := plan.Marks[0]
		if mk.Kind != MarkText || mk.Text != signatureErrorLabel {
			t.Errorf("unexpected fallback mark: %+v", mk)
		}
		if mk.Color != colorRed {
			t.Errorf("fallback color = %+v, want red", mk.Color)
		}
	})

	t.Run("non image payload draws nothing", func(t *testing.T) {
		rfs := []RenderField{
			{ID: "s1", Type: fields.TypeSignature, Page: 1, X: 50, Y: 50, Width: 150, Height: 30,
				Value: "John Hancock"},
		}

		plan := BuildPlan(rfs, letterPage, testLog())
		if len(plan.Marks) != 0 {
			t.Errorf("expected no marks for a non-image value, got %d", len(plan.Marks))
		}
	})
}

func TestClipToWidth(t *testing.T) {
	// 150pt at 9pt font allows about 33 characters.
	long := strings.Repeat("a", 60)
	clipped := clipToWidth(long, 150, fieldFontSize)
	if len(clipped) != 33 {
		t.Errorf("clipped length = %d, want 33", len(clipped))
	}

	if got := clipToWidth("short", 150, fieldFontSize); got != "short" {
		t.Errorf("short value modified: %q", got)
	}

	// Degenerate box still keeps at least one character.
	if got := clipToWidth("ab", 1, fieldFontSize); got != "a" {
		t.Errorf("degenerate clip = %q, want %q", got, "a")
	}
}

func TestFieldColor(t *testing.T) {
	if fieldColor("blue") != colorMap["blue"] {
		t.Error("named color not resolved")
	}
	if fieldColor("") != colorBlack {
		t.Error("empty name should default to black")
	}
	if fieldColor("chartreuse") != colorBlack {
		t.Error("unknown name should default to black")
	}
}
