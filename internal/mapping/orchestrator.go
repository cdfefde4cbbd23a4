// Package mapping produces AI-assisted form-field suggestions from document
// layout data, under per-user quota and rate policy.
package mapping

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"

	"github.com/eformly/formfill/internal/fields"
	"github.com/eformly/formfill/internal/layout"
)

const (
	// DefaultTimeout bounds a single language-service call.
	DefaultTimeout = 45 * time.Second

	// DefaultMaxAttempts covers the initial call plus retries.
	DefaultMaxAttempts = 3

	// DefaultFreeTierLimit is the lifetime successful-mapping allowance for
	// non-subscribed users.
	DefaultFreeTierLimit = 1

	// Sampling settings; low temperature keeps box geometry consistent
	// across runs.
	callTemperature = 0.2
	callMaxTokens   = 4096

	baseBackoff = 1 * time.Second
	maxBackoff  = 10 * time.Second
)

// User identifies a caller for quota and rate accounting.
type User struct {
	ID         string
	Subscribed bool
}

// Result is a successful mapping outcome. An empty Fields slice is the
// distinct "no fields detected" outcome, not an error, and it still counts
// as a used attempt.
type Result struct {
	Fields         []fields.Suggestion `json:"fields"`
	TokensUsed     int                 `json:"tokensUsed"`
	ProcessingTime time.Duration       `json:"processingTime"`
	Attempts       int                 `json:"attempts"`
	UsageCount     int                 `json:"usageCount"`
}

// Eligibility reports quota and rate headroom without consuming either.
type Eligibility struct {
	Eligible        bool `json:"eligible"`
	UsageCount      int  `json:"usageCount"`
	UsageLimit      int  `json:"usageLimit"` // 0 means unlimited
	RateRemaining   int  `json:"rateRemaining"`
	UpgradeRequired bool `json:"upgradeRequired"`
}

// Orchestrator drives the per-call sequence: quota gate, rate gate, prompt
// construction, service invocation, parse/repair, normalization, cap and
// geometric validation, with retry and backoff around the service call.
type Orchestrator struct {
	llm           llms.Model
	usage         UsageStore
	rate          RateLimiter
	timeout       time.Duration
	maxAttempts   int
	freeTierLimit int
	log           *logrus.Entry

	// sleep is replaced in tests to skip real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires a mapping orchestrator with default policy.
func NewOrchestrator(llm llms.Model, usage UsageStore, rate RateLimiter) *Orchestrator {
	return &Orchestrator{
		llm:           llm,
		usage:         usage,
		rate:          rate,
		timeout:       DefaultTimeout,
		maxAttempts:   DefaultMaxAttempts,
		freeTierLimit: DefaultFreeTierLimit,
		log:           logrus.WithField("component", "mapping"),
		sleep:         sleepContext,
	}
}

// MapFields runs the full mapping sequence for one document layout.
//
// The usage counter is incremented exactly once, and only on a returned
// success; a zero-field success still counts. Policy rejections
// (ErrQuotaExceeded, ErrRateLimited) happen before any service call.
func (o *Orchestrator) MapFields(ctx context.Context, user User, l *layout.Layout) (*Result, error) {
	start := time.Now()
	log := o.log.WithField("user", user.ID)

	if !user.Subscribed {
		used, err := o.usage.Count(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read usage counter: %w", err)
		}
		if used >= o.freeTierLimit {
			return nil, ErrQuotaExceeded
		}
	}

	allowed, err := o.rate.Allow(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	prompt := buildPrompt(l)

	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		valid, tokens, attemptErr := o.analyzeOnce(ctx, prompt, l)
		if attemptErr == nil {
			count, incErr := o.usage.Increment(ctx, user.ID)
			if incErr != nil {
				// The mapping succeeded; a broken counter must not turn it
				// into a failure.
				log.WithError(incErr).Error("failed to increment usage counter")
			}

			log.WithFields(logrus.Fields{
				"fields":   len(valid),
				"attempts": attempt,
				"tokens":   tokens,
			}).Info("mapping succeeded")

			return &Result{
				Fields:         valid,
				TokensUsed:     tokens,
				ProcessingTime: time.Since(start),
				Attempts:       attempt,
				UsageCount:     count,
			}, nil
		}

		lastErr = attemptErr
		log.WithError(attemptErr).WithField("attempt", attempt).Warn("mapping attempt failed")

		if attempt < o.maxAttempts {
			if err := o.sleep(ctx, backoffDelay(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	return nil, &ServiceUnavailableError{Attempts: o.maxAttempts, Err: lastErr}
}

// CheckEligibility reports whether the user could run a mapping right now,
// without consuming quota or a rate slot.
func (o *Orchestrator) CheckEligibility(ctx context.Context, user User) (*Eligibility, error) {
	used, err := o.usage.Count(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage counter: %w", err)
	}

	remaining, err := o.rate.Remaining(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate limit: %w", err)
	}

	e := &Eligibility{
		UsageCount:    used,
		RateRemaining: remaining,
	}
	if user.Subscribed {
		e.Eligible = remaining > 0
		return e, nil
	}

	e.UsageLimit = o.freeTierLimit
	e.UpgradeRequired = used >= o.freeTierLimit
	e.Eligible = !e.UpgradeRequired && remaining > 0
	return e, nil
}

// analyzeOnce performs one service call: invoke, parse/repair, normalize,
// cap, validate. Parse failures degrade to an empty list; only transport
// or service errors count as attempt failures.
func (o *Orchestrator) analyzeOnce(ctx context.Context, prompt string, l *layout.Layout) ([]fields.Suggestion, int, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.llm.GenerateContent(callCtx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemInstruction),
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		},
		llms.WithTemperature(callTemperature),
		llms.WithMaxTokens(callMaxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("language service call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, 0, fmt.Errorf("language service returned no choices")
	}

	choice := resp.Choices[0]
	suggestions := parseSuggestions(choice.Content, o.log)

	valid := suggestions[:0]
	for _, s := range suggestions {
		if fields.ValidateCoordinates(s.Box(), l.Pages) {
			valid = append(valid, s)
		}
	}

	if dropped := len(suggestions) - len(valid); dropped > 0 {
		o.log.WithField("dropped", dropped).Debug("discarded suggestions outside page bounds")
	}

	return valid, tokensUsed(choice), nil
}

// tokensUsed pulls the total token count out of the provider-specific
// generation info when present.
func tokensUsed(choice *llms.ContentChoice) int {
	if choice.GenerationInfo == nil {
		return 0
	}
	if v, ok := choice.GenerationInfo["TotalTokens"].(int); ok {
		return v
	}
	return 0
}

// backoffDelay is exponential from 1s, capped at 10s.
func backoffDelay(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
