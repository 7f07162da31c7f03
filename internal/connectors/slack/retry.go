package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/logger"
)

// Tier is a Slack Web API rate-limit tier.
type Tier int

// Rate-limit tiers, most restrictive first.
const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
	Tier4
)

// String returns the tier name.
func (t Tier) String() string {
	return fmt.Sprintf("tier%d", int(t))
}

// RetryPolicy controls how rate-limited calls are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Wait is the fixed pause between a rate-limited attempt and the next.
	Wait time.Duration
}

// RetryTiers holds one RetryPolicy per tier.
type RetryTiers struct {
	policies [4]RetryPolicy
}

// NewRetryTiers builds tier policies from settings.
// Non-positive attempts fall back to domain.DefaultMaxAttempts.
func NewRetryTiers(s domain.RetrySettings) RetryTiers {
	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = domain.DefaultMaxAttempts
	}
	var tiers RetryTiers
	for i, wait := range s.TierWaits {
		tiers.policies[i] = RetryPolicy{MaxAttempts: attempts, Wait: wait}
	}
	return tiers
}

// DefaultRetryTiers returns three attempts with waits of 60s, 3s, 1s and 1s.
func DefaultRetryTiers() RetryTiers {
	return NewRetryTiers(domain.RetrySettings{
		MaxAttempts: domain.DefaultMaxAttempts,
		TierWaits:   domain.DefaultTierWaits,
	})
}

// Policy returns the policy for a tier. Unknown tiers get the Tier1 policy.
func (t RetryTiers) Policy(tier Tier) RetryPolicy {
	if tier < Tier1 || tier > Tier4 {
		return t.policies[0]
	}
	return t.policies[tier-1]
}

// RawResponse is the outcome of one HTTP exchange with the body fully read.
type RawResponse struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Call performs one attempt of an API call.
// It is invoked once per attempt and must build a fresh request each time.
type Call func(ctx context.Context) (*RawResponse, error)

// FailureMode classifies a failed attempt.
type FailureMode int

const (
	// FailureUnknown is any failure other than rate limiting. Never retried.
	FailureUnknown FailureMode = iota
	// FailureRateLimited is an HTTP 429 answer. Retried while attempts remain.
	FailureRateLimited
)

func (m FailureMode) String() string {
	if m == FailureRateLimited {
		return "rate limited"
	}
	return "unknown"
}

// CallOutcome is the classification of a single attempt.
type CallOutcome[T any] struct {
	Value      T
	OK         bool
	Failure    FailureMode
	StatusCode int
}

// Classify turns a response into an outcome and logs unsuccessful responses.
func Classify(resp *RawResponse) CallOutcome[[]byte] {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("Request to '%s' was unsuccessful", resp.URL)
		logger.Warn("Status code: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		if len(resp.Body) > 0 {
			logger.Warn("Error response body:\n%s", resp.Body)
		}
		failure := FailureUnknown
		if resp.StatusCode == http.StatusTooManyRequests {
			failure = FailureRateLimited
		}
		return CallOutcome[[]byte]{Failure: failure, StatusCode: resp.StatusCode}
	}
	if len(resp.Body) == 0 {
		logger.Warn("Request to '%s' returned no body", resp.URL)
		return CallOutcome[[]byte]{Failure: FailureUnknown, StatusCode: resp.StatusCode}
	}
	return CallOutcome[[]byte]{Value: resp.Body, OK: true, StatusCode: resp.StatusCode}
}

// Executor runs calls under a RetryPolicy.
type Executor struct {
	sleep func(ctx context.Context, d time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// NewExecutor creates an Executor that waits on a timer.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{sleep: sleepWithContext}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs call until it succeeds, fails with a non-retryable error or
// every attempt is rate limited. It returns the success body.
func (e *Executor) Execute(ctx context.Context, endpoint string, policy RetryPolicy, call Call) ([]byte, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastStatus int
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(endpoint, err)
		}

		resp, err := call(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, cancelled(endpoint, ctxErr)
			}
			return nil, &CallError{
				Endpoint: endpoint,
				Attempts: attempt,
				Err:      fmt.Errorf("%w: %w", domain.ErrUnknownCallFailure, err),
			}
		}

		outcome := Classify(resp)
		if outcome.OK {
			return outcome.Value, nil
		}
		lastStatus = outcome.StatusCode

		if outcome.Failure != FailureRateLimited {
			return nil, &CallError{
				Endpoint:   endpoint,
				StatusCode: outcome.StatusCode,
				Attempts:   attempt,
				Err:        domain.ErrUnknownCallFailure,
			}
		}

		if attempt < maxAttempts {
			logger.Warn("Rate limited on %s, waiting %s before attempt %d of %d",
				endpoint, policy.Wait, attempt+1, maxAttempts)
			if err := e.sleep(ctx, policy.Wait); err != nil {
				return nil, cancelled(endpoint, err)
			}
		}
	}

	return nil, &CallError{
		Endpoint:   endpoint,
		StatusCode: lastStatus,
		Attempts:   maxAttempts,
		Err:        fmt.Errorf("%w: %w", domain.ErrRetriesExhausted, domain.ErrRateLimited),
	}
}

// Do executes call and decodes the success body into T.
// A body that does not decode is an unknown failure.
func Do[T any](ctx context.Context, e *Executor, endpoint string, policy RetryPolicy, call Call) (T, error) {
	var out T
	body, err := e.Execute(ctx, endpoint, policy, call)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, &CallError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("%w: decode response: %w", domain.ErrUnknownCallFailure, err),
		}
	}
	return out, nil
}

// sleepWithContext waits for d or until ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
