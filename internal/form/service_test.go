package form

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/eformly/formfill/internal/fields"
	"github.com/eformly/formfill/internal/layout"
	"github.com/eformly/formfill/internal/mapping"
	"github.com/eformly/formfill/internal/pdftest"
	"github.com/eformly/formfill/internal/render"
)

// scriptedModel returns a fixed reply for every call.
type scriptedModel struct {
	reply string
	err   error
}

func (m *scriptedModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.reply}},
	}, nil
}

func (m *scriptedModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func newTestService(model llms.Model) *Service {
	orchestrator := mapping.NewOrchestrator(model,
		mapping.NewMemoryUsageStore(),
		mapping.NewMemoryRateLimiter(time.Minute, 5))
	return NewService(layout.NewExtractor(layout.MaxUploadSize), orchestrator, nil)
}

func TestAnalyzeDocument(t *testing.T) {
	model := &scriptedModel{reply: `{"fields":[
		{"type":"text","label":"Name","page":1,"x":120,"y":80,"width":150,"height":30,"confidence":0.9}
	]}`}
	svc := newTestService(model)

	doc := pdftest.Build([]string{"Name:"})
	result, err := svc.AnalyzeDocument(context.Background(), mapping.User{ID: "alice"}, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PageCount != 1 {
		t.Errorf("page count = %d, want 1", result.PageCount)
	}
	if len(result.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion but got %d", len(result.Suggestions))
	}
	if result.NoFieldsDetected {
		t.Error("NoFieldsDetected set despite suggestions")
	}
	if result.Suggestions[0].Label != "Name" {
		t.Errorf("unexpected suggestion: %+v", result.Suggestions[0])
	}
	if result.UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", result.UsageCount)
	}
}

func TestAnalyzeDocument_NoFieldsDetected(t *testing.T) {
	svc := newTestService(&scriptedModel{reply: `{"fields":[]}`})

	result, err := svc.AnalyzeDocument(context.Background(), mapping.User{ID: "alice"}, pdftest.Build([]string{"x"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NoFieldsDetected {
		t.Error("expected NoFieldsDetected for an empty field list")
	}
}

func TestAnalyzeDocument_PolicyErrorsPassThrough(t *testing.T) {
	svc := newTestService(&scriptedModel{reply: `{"fields":[]}`})
	ctx := context.Background()
	user := mapping.User{ID: "alice"}

	// First run consumes the free-tier allowance.
	if _, err := svc.AnalyzeDocument(ctx, user, pdftest.Build([]string{"x"})); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	_, err := svc.AnalyzeDocument(ctx, user, pdftest.Build([]string{"x"}))
	if !errors.Is(err, mapping.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded but got %v", err)
	}
}

func TestAnalyzeDocument_BadDocument(t *testing.T) {
	svc := newTestService(&scriptedModel{reply: `{"fields":[]}`})

	_, err := svc.AnalyzeDocument(context.Background(), mapping.User{ID: "alice"}, []byte("not a pdf"))
	var extErr *layout.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *layout.ExtractionError but got %v", err)
	}
}

func TestGenerateFilled(t *testing.T) {
	svc := newTestService(&scriptedModel{})
	src := pdftest.Build([]string{"Name:", ""})

	placements := []fields.Placement{
		{ID: "f1", Type: fields.TypeText, Page: 1, X: 120, Y: 80, Width: 150, Height: 30},
		{ID: "c1", Type: fields.TypeCheckbox, Page: 2, X: 100, Y: 200, Width: 16, Height: 16},
	}
	values := map[string]string{"f1": "Jane Doe", "c1": "yes"}

	out, err := svc.GenerateFilled(context.Background(), src, placements, values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
	if bytes.Equal(out, src) {
		t.Error("output identical to source; nothing was stamped")
	}
}

func TestGenerateFilled_BadSource(t *testing.T) {
	svc := newTestService(&scriptedModel{})

	_, err := svc.GenerateFilled(context.Background(), []byte("junk"), nil, nil)
	var genErr *render.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *render.GenerationError but got %v", err)
	}
}

func TestGenerateFilledAdhoc(t *testing.T) {
	svc := newTestService(&scriptedModel{})
	src := pdftest.Build([]string{"x"})

	out, err := svc.GenerateFilledAdhoc(context.Background(), src, []render.RenderField{
		{ID: "f1", Type: fields.TypeText, Page: 1, X: 72, Y: 80, Width: 200, Height: 24,
			Value: "ad hoc note", Color: "blue", Bold: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}

func TestFetchDocument_NoFetcher(t *testing.T) {
	svc := newTestService(&scriptedModel{})
	if _, err := svc.FetchDocument(context.Background(), "https://example.com/doc.pdf"); err == nil {
		t.Error("expected error when no fetcher is configured")
	}
}
