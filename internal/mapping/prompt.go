package mapping

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/eformly/formfill/internal/layout"
)

// systemInstruction pins the reply shape; the service must return a single
// JSON object.
const systemInstruction = "You are a PDF form analysis expert. Respond only with valid, minified JSON."

type promptPageDims struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type promptPage struct {
	Number     int            `json:"number"`
	Dimensions promptPageDims `json:"dimensions"`
}

type promptBlock struct {
	Text string     `json:"text"`
	Box  [4]float64 `json:"box"`
	Page int        `json:"page"`
}

type promptContext struct {
	PageCount  int           `json:"pageCount"`
	Pages      []promptPage  `json:"pages"`
	TextBlocks []promptBlock `json:"textBlocks"`
}

// buildLayoutContext serializes page metadata and text blocks into the
// structured JSON context embedded in the prompt.
func buildLayoutContext(l *layout.Layout) string {
	ctx := promptContext{
		PageCount:  l.PageCount,
		Pages:      make([]promptPage, 0, len(l.Pages)),
		TextBlocks: make([]promptBlock, 0, len(l.Blocks)),
	}

	for _, p := range l.Pages {
		ctx.Pages = append(ctx.Pages, promptPage{
			Number: p.Number,
			Dimensions: promptPageDims{
				Width:  math.Round(p.Width),
				Height: math.Round(p.Height),
			},
		})
	}

	for _, b := range l.Blocks {
		ctx.TextBlocks = append(ctx.TextBlocks, promptBlock{
			Text: b.Text,
			Box:  [4]float64{b.X, b.Y, b.Width, b.Height},
			Page: b.Page,
		})
	}

	out, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		// promptContext contains no unmarshalable types.
		return "{}"
	}
	return string(out)
}

// buildPrompt produces the field-detection prompt for one document layout.
func buildPrompt(l *layout.Layout) string {
	var b strings.Builder

	b.WriteString(`You are a specialized PDF Form Layout Analyzer. Your job is to "see" the form structure based on the provided text coordinates and identify input fields.

You will receive:
1. **PDF Metadata**: Page counts and dimensions.
2. **Text Blocks**: A list of text segments with their exact bounding boxes [x, y, width, height].
   * Origin (0,0) is Top-Left.
   * Text is extracted from the PDF.

**Goal**: Return a JSON list of logical input fields that perfectly align with where a user would type or click.

**Critical Rules for Bounding Boxes (TIGHTER IS BETTER):**
* **Do NOT create massive boxes.** The height of a text input should typically be 20-30 units, just enough for a single line of text.
* **Do NOT overlap fields.** If fields are vertically stacked, ensure their y-coordinates + height do not intersect.
* **Do NOT include the label text inside the field box.** The field should be adjacent to the label (to the right, or below).
* For **Checkboxes/Radio Buttons**, the box should be small (approx 15x15 or 20x20) and placed exactly where the visual square/circle is (usually to the left or right of the option text).

**Understanding Spatial Relationships:**
* "Name: ________" -> Field starts immediately after "Name:".
* "Address" (centered heading) -> Field is likely a large text area below it.
* GRID/TABLES: If you see a row of labels "Date | Signature", the fields are below them.

**Field Types & Groups:**
* **Radio Buttons**: Group related options together using the ` + "`groupName`" + ` property (e.g., "gender", "YesNo_Question1"). Assign a meaningful ` + "`value`" + ` to each option (e.g., "Male", "Yes").
* **Checkboxes**: Detect standalone checkboxes.

**JSON Output Format:**
Return ONLY a raw JSON string (no markdown formatting) with this structure:
{
  "fields": [
    {
      "type": "text" | "number" | "date" | "radio" | "checkbox" | "select" | "textarea" | "signature",
      "label": "Label text closest to field",
      "page": 1,
      "x": 100,
      "y": 200,
      "width": 150,
      "height": 30,
      "groupName": "shared_name_for_radios",
      "value": "option_value",
      "confidence": 0.95
    }
  ]
}

**Analysis Context:**
`)
	b.WriteString(buildLayoutContext(l))
	b.WriteString("\n\nLimit to 50 most important fields. Respond ONLY with valid JSON.")

	return b.String()
}
