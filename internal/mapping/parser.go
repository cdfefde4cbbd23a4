package mapping

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eformly/formfill/internal/fields"
)

// maxSuggestions caps every parsed reply, valid or repaired.
const maxSuggestions = 50

const (
	defaultLabel      = "Unnamed Field"
	defaultWidth      = 100.0
	defaultHeight     = 20.0
	defaultConfidence = 0.5
)

// flexNumber tolerates the service returning numbers as JSON strings.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexNumber(v)
	return nil
}

// wireField is the loosely typed shape of one field entry in the reply.
type wireField struct {
	Type       string     `json:"type"`
	Label      string     `json:"label"`
	Page       flexNumber `json:"page"`
	X          flexNumber `json:"x"`
	Y          flexNumber `json:"y"`
	Width      flexNumber `json:"width"`
	Height     flexNumber `json:"height"`
	Confidence flexNumber `json:"confidence"`
	GroupName  string     `json:"groupName"`
	Value      string     `json:"value"`
	Options    []string   `json:"options"`
}

type wireResponse struct {
	Fields []wireField `json:"fields"`
}

// parseSuggestions turns raw reply text into normalized suggestions. Parse
// failures are absorbed: after strict parsing, one truncation-repair pass
// and a trailing-comma fallback, an unparseable reply yields an empty list
// rather than an error.
func parseSuggestions(raw string, log *logrus.Entry) []fields.Suggestion {
	clean := stripCodeFences(strings.TrimSpace(raw))
	if clean == "" {
		return nil
	}

	wire, ok := decodeFields(clean)
	if !ok {
		log.Warn("strict JSON parse failed, attempting truncation repair")
		repaired, repairable := repairTruncated(clean)
		if repairable {
			wire, ok = decodeFields(repaired)
		}
		if !ok {
			if fallback, fine := repairTrailingComma(clean); fine {
				wire, ok = decodeFields(fallback)
			}
		}
		if !ok {
			log.Warn("reply unparseable after repair, returning empty suggestion list")
			return nil
		}
	}

	if len(wire) > maxSuggestions {
		wire = wire[:maxSuggestions]
	}

	suggestions := make([]fields.Suggestion, 0, len(wire))
	for _, w := range wire {
		suggestions = append(suggestions, normalize(w))
	}
	return suggestions
}

// decodeFields accepts either the documented {"fields":[...]} object or a
// bare array of field entries.
func decodeFields(s string) ([]wireField, bool) {
	var resp wireResponse
	if err := json.Unmarshal([]byte(s), &resp); err == nil && resp.Fields != nil {
		return resp.Fields, true
	}

	var bare []wireField
	if err := json.Unmarshal([]byte(s), &bare); err == nil {
		return bare, true
	}
	return nil, false
}

// repairTruncated cuts the text back to the last complete `}` boundary and
// closes the enclosing array and object. This recovers every complete field
// entry from a reply truncated mid-array, at the cost of silently dropping
// the partial trailing entry.
func repairTruncated(s string) (string, bool) {
	lastBrace := strings.LastIndex(s, "}")
	lastBracket := strings.LastIndex(s, "]")
	if lastBrace < 0 || lastBracket < 0 {
		return "", false
	}

	repaired := s[:lastBrace+1]
	switch {
	case !strings.HasSuffix(repaired, "}"):
		repaired += "}]}"
	case !strings.HasSuffix(repaired, "]"):
		repaired += "]}"
	}
	return repaired, true
}

// repairTrailingComma drops everything from the last comma and closes the
// structure; the last resort before giving up.
func repairTrailingComma(s string) (string, bool) {
	lastComma := strings.LastIndex(s, ",")
	if lastComma < 0 {
		return "", false
	}
	return s[:lastComma] + "]}", true
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// normalize maps one wire entry onto the closed field model: type folding,
// geometry floors and a clamped confidence.
func normalize(w wireField) fields.Suggestion {
	label := strings.TrimSpace(w.Label)
	if label == "" {
		label = defaultLabel
	}

	page := int(w.Page)
	if page < 1 {
		page = 1
	}

	width := float64(w.Width)
	if width == 0 {
		width = defaultWidth
	}
	if width < fields.MinWidth {
		width = fields.MinWidth
	}

	height := float64(w.Height)
	if height == 0 {
		height = defaultHeight
	}
	if height < fields.MinHeight {
		height = fields.MinHeight
	}

	confidence := float64(w.Confidence)
	if confidence == 0 {
		confidence = defaultConfidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return fields.Suggestion{
		ID:         "ai-field-" + uuid.NewString(),
		Label:      label,
		Type:       fields.NormalizeSuggested(w.Type),
		Page:       page,
		X:          max0(float64(w.X)),
		Y:          max0(float64(w.Y)),
		Width:      width,
		Height:     height,
		Confidence: confidence,
		GroupName:  w.GroupName,
		Value:      w.Value,
		Options:    w.Options,
	}
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
