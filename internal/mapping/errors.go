package mapping

import (
	"errors"
	"fmt"
)

// Policy rejections: no service call has been made and no usage is charged.
var (
	// ErrQuotaExceeded means a free-tier caller already consumed their one
	// lifetime successful mapping. Callers surface an upgrade prompt.
	ErrQuotaExceeded = errors.New("free tier mapping quota exhausted")

	// ErrRateLimited means the caller exceeded the per-user rate window.
	// Callers surface a retry-later message.
	ErrRateLimited = errors.New("mapping rate limit exceeded")
)

// ServiceUnavailableError is returned once every retry attempt against the
// language service has failed. The caller may retry later.
type ServiceUnavailableError struct {
	Attempts int
	Err      error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("language service unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error {
	return e.Err
}
