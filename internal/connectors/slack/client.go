package slack

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/logger"
)

const (
	// DefaultTimeout bounds each API request attempt. File downloads are
	// bounded only by their context.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error body is kept for logging.
	maxErrorBody = 64 << 10
)

// Options configures a Client.
type Options struct {
	// Token is the Slack API token, sent as a bearer token.
	Token string

	// BaseURL is the Web API root. Defaults to domain.DefaultBaseURL.
	BaseURL string

	// Tiers holds the retry policy per tier. Nil uses DefaultRetryTiers.
	Tiers *RetryTiers

	// Limiter throttles requests per tier. Nil disables throttling.
	Limiter *TierLimiter

	// Executor runs calls. Nil uses NewExecutor().
	Executor *Executor

	// HTTPClient is the base client wrapped by the bearer token transport.
	HTTPClient *http.Client

	// Timeout bounds each API request attempt. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Client is a Slack Web API client.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	tiers   RetryTiers
	limiter *TierLimiter
	exec    *Executor
	timeout time.Duration
}

// NewClient creates a Client authenticating with opts.Token.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("%w: slack token is required", domain.ErrInvalidInput)
	}

	raw := opts.BaseURL
	if raw == "" {
		raw = domain.DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", domain.ErrInvalidInput, opts.BaseURL)
	}

	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})
	// No client-wide Timeout: it would also cut off long file downloads.
	hc := oauth2.NewClient(ctx, ts)

	c := &Client{
		http:    hc,
		baseURL: base,
		tiers:   DefaultRetryTiers(),
		limiter: opts.Limiter,
		exec:    opts.Executor,
		timeout: opts.Timeout,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if opts.Tiers != nil {
		c.tiers = *opts.Tiers
	}
	if c.limiter == nil {
		c.limiter = Unlimited()
	}
	if c.exec == nil {
		c.exec = NewExecutor()
	}
	return c, nil
}

// methodURL builds the URL of an API method with query parameters.
func (c *Client) methodURL(method string, params url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: method})
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// call returns a Call that issues a fresh GET request on every attempt.
func (c *Client) call(tier Tier, method string, params url.Values) Call {
	target := c.methodURL(method, params)

	return func(ctx context.Context) (*RawResponse, error) {
		if err := c.limiter.Wait(ctx, tier); err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		logger.Debug("GET %s", target)
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		var reader io.Reader = resp.Body
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			reader = io.LimitReader(resp.Body, maxErrorBody)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		return &RawResponse{URL: target, StatusCode: resp.StatusCode, Body: body}, nil
	}
}

// get runs an API method under its tier's policy and checks the "ok" envelope.
func get[T envelope](ctx context.Context, c *Client, tier Tier, method string, params url.Values) (T, error) {
	out, err := Do[T](ctx, c.exec, method, c.tiers.Policy(tier), c.call(tier, method, params))
	if err != nil {
		return out, err
	}
	if ok, code := out.status(); !ok {
		if code == "" {
			code = "unknown_error"
		}
		return out, &APIError{Endpoint: method, Code: code}
	}
	return out, nil
}

// Download streams an authenticated file URL into w.
func (c *Client) Download(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, cancelled("download", ctx.Err())
		}
		return 0, fmt.Errorf("download %s: %w: %w", redact(fileURL), domain.ErrUnknownCallFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &CallError{
			Endpoint:   "download " + redact(fileURL),
			StatusCode: resp.StatusCode,
			Attempts:   1,
			Err:        domain.ErrUnknownCallFailure,
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return n, cancelled("download", ctx.Err())
		}
		return n, fmt.Errorf("download %s: %w", redact(fileURL), err)
	}
	return n, nil
}

// redact strips the query string, which may carry tokens on file URLs.
func redact(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
