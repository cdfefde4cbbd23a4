package layout

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
)

// capHeightFactor approximates the visible text height above the baseline.
// The text interface reports a baseline position, not a tight bounding box,
// so the top-left y is derived as pageHeight - baseline - factor*runHeight.
// This is an empirical heuristic, not an exact measurement; treat it as a
// tunable.
const capHeightFactor = 0.8

// defaultRunHeight is used when a text run carries no font size.
const defaultRunHeight = 12.0

// Extractor parses PDF bytes into page metadata and positioned text blocks.
type Extractor struct {
	maxFileSize int64
	log         *logrus.Entry
}

// NewExtractor creates an extractor enforcing the given document size limit.
func NewExtractor(maxFileSize int64) *Extractor {
	return &Extractor{
		maxFileSize: maxFileSize,
		log:         logrus.WithField("component", "layout"),
	}
}

// Extract parses the document and returns per-page metadata plus every
// non-whitespace text run converted to top-left coordinates. Any parser
// failure aborts the whole extraction with an *ExtractionError.
func (e *Extractor) Extract(data []byte) (result *Layout, err error) {
	// The underlying text parser panics on some malformed documents.
	// Convert that into the same fatal extraction failure as a plain error.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ExtractionError{Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	if len(data) == 0 {
		return nil, &ExtractionError{Err: fmt.Errorf("empty document")}
	}
	if e.maxFileSize > 0 && int64(len(data)) > e.maxFileSize {
		return nil, &ExtractionError{
			Err: fmt.Errorf("document too large: %d bytes (max: %d bytes)", len(data), e.maxFileSize),
		}
	}

	pages, err := e.PageDims(data)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	reader, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Err: fmt.Errorf("failed to open PDF: %w", err)}
	}

	if reader.NumPage() != len(pages) {
		return nil, &ExtractionError{
			Err: fmt.Errorf("page count mismatch: %d text pages vs %d geometry pages",
				reader.NumPage(), len(pages)),
		}
	}

	var blocks []TextBlock
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			return nil, &ExtractionError{Err: fmt.Errorf("page %d is unreadable", i)}
		}

		pageHeight := pages[i-1].Height
		for _, run := range page.Content().Text {
			if strings.TrimSpace(run.S) == "" {
				continue
			}

			height := run.FontSize
			if height == 0 {
				height = defaultRunHeight
			}

			// run.Y is a bottom-left baseline; flip into top-left space.
			yTop := pageHeight - run.Y - capHeightFactor*height

			blocks = append(blocks, TextBlock{
				Text:   run.S,
				X:      math.Round(run.X),
				Y:      math.Round(yTop),
				Width:  math.Round(run.W),
				Height: math.Round(height),
				Page:   i,
			})
		}
	}

	e.log.WithFields(logrus.Fields{
		"pages":  len(pages),
		"blocks": len(blocks),
	}).Debug("extracted document layout")

	return &Layout{
		PageCount: len(pages),
		Pages:     pages,
		Blocks:    blocks,
	}, nil
}

// PageDims reads per-page dimensions at 1.0 scale without running text
// extraction. The renderer uses this to resolve page geometry cheaply.
func (e *Extractor) PageDims(data []byte) ([]PageMetadata, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	pages := make([]PageMetadata, len(dims))
	for i, d := range dims {
		pages[i] = PageMetadata{
			Number: i + 1,
			Width:  d.Width,
			Height: d.Height,
		}
	}
	return pages, nil
}
