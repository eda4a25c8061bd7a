package ratelimit

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/chand1012/personal-site/internal/metrics"
	"github.com/chand1012/personal-site/internal/model"
)

// maxInspectBody caps how much of an error body is read to look for a rate-limit message.
const maxInspectBody = 64 << 10

// Transport is an http.RoundTripper that throttles requests with a Limiter
// and waits out upstream rate limits.
type Transport struct {
	name    string
	base    http.RoundTripper
	limiter *Limiter
	state   *State
	clock   clockwork.Clock
	margin  time.Duration
	logger  *slog.Logger
}

// Option customises a Transport.
type Option func(*Transport)

// WithBase sets the underlying RoundTripper. Defaults to http.DefaultTransport.
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) { t.base = rt }
}

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(t *Transport) { t.clock = c }
}

// WithLogger sets the logger used for rate-limit warnings.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// NewTransport builds a Transport named after the API it talks to.
func NewTransport(name string, cfg Config, opts ...Option) *Transport {
	t := &Transport{
		name:   name,
		base:   http.DefaultTransport,
		state:  &State{},
		clock:  clockwork.NewRealClock(),
		margin: cfg.SafetyMargin,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.limiter = NewLimiter(cfg, t.clock)
	t.logger = t.logger.With("api", name)
	return t
}

// RateLimit returns the last rate-limit state reported by the upstream API.
func (t *Transport) RateLimit() (model.RateLimitInfo, bool) {
	return t.state.Snapshot()
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	release, err := t.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if info, ok := t.state.Snapshot(); ok && info.Remaining == 0 {
		if wait := t.untilReset(info); wait > 0 {
			t.logger.Warn("Rate limit exhausted, waiting before request",
				"wait", wait.String(), "reset", info.ResetTime().UTC().Format(time.RFC3339))
			metrics.RateLimitWaits.WithLabelValues(t.name, "precheck").Inc()
			if err := sleep(ctx, t.clock, wait); err != nil {
				return nil, err
			}
		}
	}

	resp, err := t.send(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return resp, nil
	}

	limited, err := t.isRateLimited(resp)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if !limited {
		return resp, nil
	}

	wait := t.margin
	if info, ok := t.state.Snapshot(); ok && info.Remaining == 0 {
		if w := t.untilReset(info); w > 0 {
			wait = w
		}
	}
	if retryAfter := parseRetryAfter(resp.Header); retryAfter > wait {
		wait = retryAfter
	}
	t.logger.Warn("Rate limited by upstream, retrying once after reset",
		"status", resp.StatusCode, "wait", wait.String(), "url", req.URL.String())
	metrics.RateLimitWaits.WithLabelValues(t.name, "retry").Inc()

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if err := sleep(ctx, t.clock, wait); err != nil {
		return nil, err
	}

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.send(retry)
}

// send performs one request and records its rate-limit headers.
func (t *Transport) send(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	info, ok := t.state.Update(resp.Header)
	if ok {
		metrics.RateLimitRemaining.WithLabelValues(t.name).Set(float64(info.Remaining))
		if info.Limit > 0 && float64(info.Remaining) < float64(info.Limit)*0.1 {
			t.logger.Warn("Rate limit running low",
				"remaining", info.Remaining,
				"limit", info.Limit,
				"reset", info.ResetTime().UTC().Format(time.RFC3339))
		}
	}
	return resp, nil
}

// isRateLimited decides whether a 403/429 was caused by rate limiting: either
// the remaining budget is zero or the body mentions a rate limit. The body is
// restored so callers can still read it.
func (t *Transport) isRateLimited(resp *http.Response) (bool, error) {
	if resp.Header.Get(headerRemaining) == "0" {
		return true, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests && resp.Header.Get("Retry-After") != "" {
		return true, nil
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxInspectBody))
	if err != nil {
		return false, err
	}
	rest := resp.Body
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), rest), rest}

	return strings.Contains(strings.ToLower(string(buf)), "rate limit"), nil
}

func (t *Transport) untilReset(info model.RateLimitInfo) time.Duration {
	if info.Reset == 0 {
		return 0
	}
	return info.ResetTime().Add(t.margin).Sub(t.clock.Now())
}

func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
