// Package chzzk is a small client for the CHZZK live-status and live-detail endpoints.
package chzzk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/ellier/internal/platform/httpx"
	"github.com/ManuGH/ellier/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	routeLiveStatus = "/polling/v2/channels/{id}/live-status"
	routeLiveDetail = "/service/v2/channels/{id}/live-detail"
)

// Client talks to the CHZZK API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	rnd        *rand.Rand
	mu         sync.Mutex
}

// Options configures the client behavior.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	HTTPClient     *http.Client
}

const (
	defaultTimeout        = 10 * time.Second
	defaultBackoff        = 500 * time.Millisecond
	defaultMaxBackoff     = 4 * time.Second
	defaultRateLimit      = 2
	defaultRateLimitBurst = 4
)

// NewClient creates a client for baseURL, e.g. https://api.chzzk.naver.com.
func NewClient(baseURL string, opts Options) *Client {
	opts = normalizeOptions(opts)
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpx.NewClient(opts.Timeout)
	}
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: httpClient,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		maxBackoff: opts.MaxBackoff,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	return opts
}

// GetLiveStatus fetches the polling status of a channel.
func (c *Client) GetLiveStatus(ctx context.Context, channelID string, auth *Auth) (*LiveStatus, error) {
	const op = "get_live_status"
	raw, err := c.get(ctx, op, routeLiveStatus, "/polling/v2/channels/"+url.PathEscape(channelID)+"/live-status", auth)
	if err != nil {
		return nil, err
	}
	var out LiveStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Sentinel: ErrUpstreamBadResponse, Operation: op, Status: http.StatusOK, Err: err}
	}
	out.Raw = raw
	return &out, nil
}

// GetLiveDetail fetches the detail of the channel's current or last broadcast.
func (c *Client) GetLiveDetail(ctx context.Context, channelID string, auth *Auth) (*LiveDetail, error) {
	const op = "get_live_detail"
	raw, err := c.get(ctx, op, routeLiveDetail, "/service/v2/channels/"+url.PathEscape(channelID)+"/live-detail", auth)
	if err != nil {
		return nil, err
	}
	var out LiveDetail
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Sentinel: ErrUpstreamBadResponse, Operation: op, Status: http.StatusOK, Err: err}
	}
	out.Raw = raw
	return &out, nil
}

// get performs the request and unwraps the {code, message, content} envelope.
func (c *Client) get(ctx context.Context, op, route, path string, auth *Auth) (json.RawMessage, error) {
	resp, err := c.doGet(ctx, route, c.BaseURL+path, auth)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, err
		}
		return nil, transportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, transportError(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp.StatusCode, truncate(string(body), 256))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &APIError{Sentinel: ErrUpstreamBadResponse, Operation: op, Status: resp.StatusCode, Err: err}
	}
	if env.Code != http.StatusOK {
		msg := ""
		if env.Message != nil {
			msg = *env.Message
		}
		sentinel := ErrUpstreamBadResponse
		if env.Code >= 500 {
			sentinel = ErrUpstreamError
		}
		return nil, &APIError{Sentinel: sentinel, Operation: op, Status: resp.StatusCode, Code: env.Code, Message: msg}
	}
	if len(env.Content) == 0 || string(env.Content) == "null" {
		return nil, &APIError{Sentinel: ErrUpstreamBadResponse, Operation: op, Status: resp.StatusCode, Code: env.Code, Message: "empty content"}
	}
	return env.Content, nil
}

func (c *Client) doGet(ctx context.Context, route, rawURL string, auth *Auth) (*http.Response, error) {
	tracer := telemetry.Tracer("ellier.chzzk")
	ctx, span := tracer.Start(ctx, "ellier.chzzk.request", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String(telemetry.HTTPMethodKey, http.MethodGet),
		attribute.String(telemetry.HTTPRouteKey, route),
	)
	defer span.End()

	maxAttempts := c.maxRetries + 1
	var lastErr error
	var lastStatus int
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, attemptSpan := tracer.Start(ctx, "ellier.chzzk.request.attempt", trace.WithSpanKind(trace.SpanKindClient))
		attemptSpan.SetAttributes(
			attribute.Int("attempt", attempt),
			attribute.Bool("retry", attempt > 1),
		)

		if c.limiter != nil {
			if err := c.limiter.Wait(attemptCtx); err != nil {
				endSpanWithError(attemptSpan, err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			endSpanWithError(attemptSpan, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for _, ck := range auth.Cookies() {
			req.AddCookie(ck)
		}
		otel.GetTextMapPropagator().Inject(attemptCtx, propagation.HeaderCarrier(req.Header))

		start := time.Now()
		resp, err := c.HTTPClient.Do(req)
		duration := time.Since(start)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}

		retry := (err != nil || status != http.StatusOK) && attempt < maxAttempts && shouldRetry(resp, err) && ctx.Err() == nil
		recordAttemptMetrics(route, status, duration, err, retry)

		attemptSpan.SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, status))
		if err != nil {
			attemptSpan.RecordError(err)
		}
		if err != nil || status >= http.StatusBadRequest {
			statusText := http.StatusText(status)
			if statusText == "" {
				statusText = "request failed"
			}
			attemptSpan.SetStatus(codes.Error, statusText)
		} else {
			attemptSpan.SetStatus(codes.Ok, "")
		}
		attemptSpan.End()

		if err == nil && status < http.StatusInternalServerError {
			span.SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, status))
			if status >= http.StatusBadRequest {
				span.SetStatus(codes.Error, http.StatusText(status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return resp, nil
		}

		if !retry {
			if err == nil {
				// Final 5xx: hand the response to the caller for classification.
				span.SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, status))
				span.SetStatus(codes.Error, http.StatusText(status))
				return resp, nil
			}
			lastErr = err
			lastStatus = status
			break
		}

		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		lastErr = err
		lastStatus = status

		if err := sleepWithContext(ctx, c.backoffFor(attempt-1)); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if lastStatus > 0 {
		span.SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, lastStatus))
	}
	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
		return nil, lastErr
	}
	return nil, fmt.Errorf("request failed")
}

func endSpanWithError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil || resp == nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError
}

func (c *Client) backoffFor(attempt int) time.Duration {
	wait := c.backoff * time.Duration(1<<attempt)
	if wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	jitter := time.Duration(c.randInt63n(int64(wait/5 + 1)))
	return wait + jitter
}

func (c *Client) randInt63n(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Int63n(n)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
