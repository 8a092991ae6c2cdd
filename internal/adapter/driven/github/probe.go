// Package github implements the KeyProbe port for GitHub tokens using the
// go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit/github_primary_ratelimit"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit/github_secondary_ratelimit"
	gh "github.com/google/go-github/v82/github"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driven/transport"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

// DefaultTimeout bounds a single probe call.
const DefaultTimeout = 10 * time.Second

// Compile-time interface satisfaction check.
var _ driven.KeyProbe = (*Probe)(nil)

// Probe validates a GitHub token with one authenticated GET /user call.
type Probe struct {
	base    http.RoundTripper
	baseURL *url.URL
	timeout time.Duration
}

// Option configures a Probe.
type Option func(*Probe) error

// WithTransport replaces the base round tripper under the rate-limit layer.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Probe) error {
		if rt != nil {
			p.base = rt
		}
		return nil
	}
}

// WithBaseURL points the probe at a GitHub Enterprise host or a test server.
func WithBaseURL(raw string) Option {
	return func(p *Probe) error {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing base URL: %w", err)
		}
		p.baseURL = u
		return nil
	}
}

// WithTimeout bounds a single probe call. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *Probe) error {
		if d > 0 {
			p.timeout = d
		}
		return nil
	}
}

// NewProbe creates a Probe over http.DefaultTransport unless WithTransport
// says otherwise.
func NewProbe(opts ...Option) (*Probe, error) {
	p := &Probe{base: http.DefaultTransport, timeout: DefaultTimeout}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Probe fetches the authenticated user for candidate.
func (p *Probe) Probe(ctx context.Context, candidate string) (model.ProbeResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client := gh.NewClient(p.newHTTPClient()).WithAuthToken(candidate)
	if p.baseURL != nil {
		client.BaseURL = p.baseURL
	}

	user, _, err := client.Users.Get(callCtx, "")
	if err == nil {
		if user.GetLogin() == "" {
			return model.NewProbeRejected(string(model.ReasonEmptyResponse)), nil
		}
		return model.NewProbeOK(), nil
	}

	if ctx.Err() != nil {
		return model.ProbeResult{}, ctx.Err()
	}
	return classifyError(err)
}

// newHTTPClient builds the rate-limit layer for one call. Limiter state
// belongs to the token being checked, so it is never shared between calls.
// A secondary-limit pause longer than the call timeout is not waited out.
func (p *Probe) newHTTPClient() *http.Client {
	return github_ratelimit.NewClient(p.base,
		github_secondary_ratelimit.WithSingleSleepLimit(p.timeout, nil),
	)
}

func classifyError(err error) (model.ProbeResult, error) {
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	var reachedErr *github_primary_ratelimit.RateLimitReachedError
	var respErr *gh.ErrorResponse

	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr), errors.As(err, &reachedErr):
		return model.NewProbeIndeterminate(string(model.ReasonRateLimited)), nil
	case errors.As(err, &respErr) && respErr.Response != nil:
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return model.NewProbeInvalid(string(model.ReasonUnauthorized)), nil
		case http.StatusTooManyRequests:
			return model.NewProbeIndeterminate(string(model.ReasonRateLimited)), nil
		}
		if msg := strings.TrimSpace(respErr.Message); msg != "" {
			return model.NewProbeIndeterminate(msg), nil
		}
		return model.NewProbeIndeterminate(fmt.Sprintf("unexpected status %d", respErr.Response.StatusCode)), nil
	case transport.IsTimeout(err):
		return model.NewProbeIndeterminate("timed out"), nil
	case transport.IsUnreachable(err):
		return model.ProbeResult{}, &model.InfrastructureError{Provider: model.ProviderGitHub, Err: err}
	default:
		return model.NewProbeIndeterminate("connection failed: " + transport.Describe(err)), nil
	}
}
