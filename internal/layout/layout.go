// Package layout extracts positional text layout from PDF documents.
//
// All coordinates produced by this package use a top-left origin in PDF
// point units at 1.0 scale. This is the shared coordinate space used by
// the field editor, the mapping orchestrator and the coordinate validator.
// The renderer converts back to the PDF-native bottom-left space.
package layout

// PageMetadata describes a single page's geometry. Page numbers are 1-based.
type PageMetadata struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextBlock is a positioned text run in top-left coordinate space.
// Blocks are immutable once produced by the Extractor.
type TextBlock struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   int     `json:"page"`
}

// Layout is the full extraction result for one document.
type Layout struct {
	PageCount int            `json:"pageCount"`
	Pages     []PageMetadata `json:"pages"`
	Blocks    []TextBlock    `json:"textBlocks"`
}

// ExtractionError indicates that the document could not be parsed. A single
// corrupt page invalidates the whole document for mapping purposes, so no
// partial result is attached.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return "layout extraction failed: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
