// Package httpx provides the retrying HTTP client used for every outbound
// call: classification-based retries with exponential backoff, and a typed
// error once all attempts are spent.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Retryable response statuses. Anything else is returned to the caller
// immediately, success or not.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true, // 429
	http.StatusRequestTimeout:      true, // 408
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

type Config struct {
	MaxAttempts int           // total attempts per logical call
	BaseDelay   time.Duration // backoff before attempt k+1 is BaseDelay * 2^(k-1)
	Timeout     time.Duration // per-attempt timeout on the underlying client
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Request is one logical HTTP call. Body (if any) is buffered so attempts
// can be replayed.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Body       []byte
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RequestError is returned when all attempts are exhausted. Callers decide
// whether to treat it as fatal or degrade to an empty result.
type RequestError struct {
	URL      string
	Attempts int
	Status   int // last retryable status, 0 when the failure was transport-level
	Err      error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("request %s failed after %d attempts: status %d", e.URL, e.Attempts, e.Status)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client executes logical HTTP calls with retry. Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger

	// onAttempt, when set, observes every attempt (metrics hook).
	onAttempt func(retry bool)
}

func New(cfg Config, log zerolog.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// OnAttempt installs an observer called once per attempt with retry=true
// for every attempt after the first. Must be set before first use.
func (c *Client) OnAttempt(fn func(retry bool)) { c.onAttempt = fn }

// Execute performs req with the client's configured attempt budget.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	return c.ExecuteWithRetry(ctx, req, c.cfg.MaxAttempts)
}

// ExecuteWithRetry performs req with an explicit attempt budget.
//
// Transport failures (dial, DNS, timeout) and the retryable status set are
// retried with exponential backoff; any other response is returned as-is.
// Context cancellation during backoff surfaces as ctx.Err().
func (c *Client) ExecuteWithRetry(ctx context.Context, req Request, maxAttempts int) (*Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = c.cfg.MaxAttempts
	}

	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.onAttempt != nil {
			c.onAttempt(attempt > 1)
		}

		resp, err := c.do(ctx, req)
		switch {
		case err == nil && retryStatuses[resp.StatusCode] && attempt < maxAttempts:
			lastStatus = resp.StatusCode
			lastErr = nil
			c.log.Warn().
				Str("url", req.URL).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Int("max", maxAttempts).
				Msg("retryable status, backing off")
		case err == nil:
			return resp, nil
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			// Dial failures, DNS errors, timeouts and any other transport
			// error: worth another attempt.
			lastErr = err
			lastStatus = 0
			c.log.Warn().
				Str("url", req.URL).
				Int("attempt", attempt).
				Int("max", maxAttempts).
				Err(err).
				Msg("transport failure, backing off")
		}

		if attempt < maxAttempts {
			if err := c.sleep(ctx, backoff(c.cfg.BaseDelay, attempt)); err != nil {
				return nil, err
			}
		}
	}

	c.log.Error().Str("url", req.URL).Int("attempts", maxAttempts).Msg("request failed, attempts exhausted")
	return nil, &RequestError{URL: req.URL, Attempts: maxAttempts, Status: lastStatus, Err: lastErr}
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: b}, nil
}

// sleep waits for d or until ctx is done, whichever comes first.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff returns the delay before attempt k+1: base * 2^(k-1).
func backoff(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}
