package form

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultFetchTimeout = 30 * time.Second

// Fetcher retrieves source documents from the storage collaborator by URL,
// bounded by a size cap so a misbehaving endpoint cannot exhaust memory.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

// NewFetcher creates a fetcher with the given document size cap.
func NewFetcher(maxSize int64) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: defaultFetchTimeout},
		maxSize: maxSize,
	}
}

// Fetch downloads the document at url and returns its bytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PDF: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch PDF: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF body: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("document exceeds size limit of %d bytes", f.maxSize)
	}

	return data, nil
}
