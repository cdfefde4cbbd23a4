// Package form orchestrates the document pipeline: layout extraction,
// AI-assisted field mapping and fill rendering. Persistence of forms and
// submissions, session handling and file storage are external
// collaborators; this package only consumes bytes and typed field lists.
package form

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/eformly/formfill/internal/fields"
	"github.com/eformly/formfill/internal/layout"
	"github.com/eformly/formfill/internal/mapping"
	"github.com/eformly/formfill/internal/render"
)

// Service wires the extractor, the mapping orchestrator and the renderer.
type Service struct {
	extractor    *layout.Extractor
	orchestrator *mapping.Orchestrator
	renderer     *render.Renderer
	fetcher      *Fetcher
	log          *logrus.Entry
}

// NewService creates a form service from its three pipeline stages.
func NewService(extractor *layout.Extractor, orchestrator *mapping.Orchestrator, fetcher *Fetcher) *Service {
	return &Service{
		extractor:    extractor,
		orchestrator: orchestrator,
		renderer:     render.NewRenderer(),
		fetcher:      fetcher,
		log:          logrus.WithField("component", "form"),
	}
}

// AnalysisResult is the outcome of an AI mapping run over one document.
// NoFieldsDetected distinguishes an empty success from a failure: the
// caller should offer manual field placement, not a retry.
type AnalysisResult struct {
	PageCount        int                 `json:"pageCount"`
	Suggestions      []fields.Suggestion `json:"suggestions"`
	NoFieldsDetected bool                `json:"noFieldsDetected"`
	TokensUsed       int                 `json:"tokensUsed"`
	ProcessingTimeMS int64               `json:"processingTime"`
	UsageCount       int                 `json:"usageCount"`
}

// AnalyzeDocument extracts the document layout and runs the mapping
// orchestrator over it. Policy errors (quota, rate) pass through untouched
// so callers can map them onto user-facing responses.
func (s *Service) AnalyzeDocument(ctx context.Context, user mapping.User, data []byte) (*AnalysisResult, error) {
	doc, err := s.extractor.Extract(data)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.MapFields(ctx, user, doc)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		PageCount:        doc.PageCount,
		Suggestions:      result.Fields,
		NoFieldsDetected: len(result.Fields) == 0,
		TokensUsed:       result.TokensUsed,
		ProcessingTimeMS: result.ProcessingTime.Milliseconds(),
		UsageCount:       result.UsageCount,
	}, nil
}

// CheckEligibility reports mapping quota and rate headroom for a user
// without consuming either.
func (s *Service) CheckEligibility(ctx context.Context, user mapping.User) (*mapping.Eligibility, error) {
	return s.orchestrator.CheckEligibility(ctx, user)
}

// GenerateFilled renders a submission onto the source document and returns
// the filled PDF bytes.
func (s *Service) GenerateFilled(ctx context.Context, src []byte, placements []fields.Placement, values map[string]string) ([]byte, error) {
	pages, err := s.extractor.PageDims(src)
	if err != nil {
		return nil, &render.GenerationError{Err: fmt.Errorf("failed to load source document: %w", err)}
	}

	resolved := render.ResolveValues(placements, values)
	plan := render.BuildPlan(resolved, pages, s.log)

	return s.renderer.Render(src, plan)
}

// GenerateFilledAdhoc renders caller-supplied render fields (already
// carrying values and styling) without a placement list. Used by the
// quick-fill flow where no persisted form exists.
func (s *Service) GenerateFilledAdhoc(ctx context.Context, src []byte, rfs []render.RenderField) ([]byte, error) {
	pages, err := s.extractor.PageDims(src)
	if err != nil {
		return nil, &render.GenerationError{Err: fmt.Errorf("failed to load source document: %w", err)}
	}

	plan := render.BuildPlan(rfs, pages, s.log)
	return s.renderer.Render(src, plan)
}

// FetchDocument retrieves a source PDF from the storage collaborator by
// URL.
func (s *Service) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("no document fetcher configured")
	}
	return s.fetcher.Fetch(ctx, url)
}
