// Package anthropic implements the KeyProbe port against the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driven/transport"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-haiku-20240307"
	DefaultMaxTokens = 10
	DefaultTimeout   = 10 * time.Second

	apiVersion  = "2023-06-01"
	probePrompt = "Hi"
	maxBodySize = 1 << 20
)

// Compile-time interface satisfaction check.
var _ driven.KeyProbe = (*Probe)(nil)

// Probe sends a single-turn, low-token completion request with the candidate
// key and classifies the answer.
type Probe struct {
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
	timeout    time.Duration
}

// Option configures a Probe.
type Option func(*Probe)

// WithHTTPClient sets the client used for the probe request.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Probe) {
		p.httpClient = c
	}
}

// WithBaseURL points the probe at a different API host (tests, proxies).
func WithBaseURL(u string) Option {
	return func(p *Probe) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			p.baseURL = u
		}
	}
}

// WithModel pins the model used for the probe. It should be the cheapest tier.
func WithModel(m string) Option {
	return func(p *Probe) {
		if m = strings.TrimSpace(m); m != "" {
			p.model = m
		}
	}
}

// WithMaxTokens sets the output token budget, clamped to 1..DefaultMaxTokens.
func WithMaxTokens(n int) Option {
	return func(p *Probe) {
		p.maxTokens = min(max(n, 1), DefaultMaxTokens)
	}
}

// WithTimeout bounds a single probe call. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *Probe) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewProbe creates a Probe with production defaults.
func NewProbe(opts ...Option) *Probe {
	p := &Probe{
		// Deadlines come from the per-call context, not the client.
		httpClient: &http.Client{Timeout: 0},
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		maxTokens:  DefaultMaxTokens,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Probe issues one POST /v1/messages call with candidate as x-api-key.
func (p *Probe) Probe(ctx context.Context, candidate string) (model.ProbeResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(messagesRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages:  []message{{Role: "user", Content: probePrompt}},
	})
	if err != nil {
		return model.ProbeResult{}, p.infraError(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return model.ProbeResult{}, p.infraError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", candidate)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.transportFailure(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return model.ProbeResult{}, ctx.Err()
		}
		if transport.IsTimeout(err) {
			return model.NewProbeIndeterminate("timed out"), nil
		}
		return model.NewProbeIndeterminate(fmt.Sprintf("read response: %v", err)), nil
	}

	return classify(resp.StatusCode, raw), nil
}

// transportFailure sorts errors that happened before any response arrived.
// Caller cancellation is passed through. Only failures to reach the host at
// all are infrastructure errors; a connection dropped mid-exchange leaves the
// key's status unknown.
func (p *Probe) transportFailure(parent context.Context, err error) (model.ProbeResult, error) {
	if parent.Err() != nil {
		return model.ProbeResult{}, parent.Err()
	}
	if transport.IsTimeout(err) {
		return model.NewProbeIndeterminate("timed out"), nil
	}
	if transport.IsUnreachable(err) {
		return model.ProbeResult{}, p.infraError(err)
	}
	return model.NewProbeIndeterminate("connection failed: " + transport.Describe(err)), nil
}

func (p *Probe) infraError(err error) error {
	return &model.InfrastructureError{Provider: model.ProviderAnthropic, Err: err}
}

func classify(status int, raw []byte) model.ProbeResult {
	if status >= 200 && status < 300 {
		var mr messagesResponse
		if err := json.Unmarshal(raw, &mr); err != nil || !hasText(mr.Content) {
			return model.NewProbeRejected(string(model.ReasonEmptyResponse))
		}
		return model.NewProbeOK()
	}

	var er errorResponse
	_ = json.Unmarshal(raw, &er)

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		er.Error.Type == "authentication_error", er.Error.Type == "permission_error":
		return model.NewProbeInvalid(string(model.ReasonUnauthorized))
	case status == http.StatusTooManyRequests, er.Error.Type == "rate_limit_error":
		return model.NewProbeIndeterminate(string(model.ReasonRateLimited))
	}

	if msg := strings.TrimSpace(er.Error.Message); msg != "" {
		return model.NewProbeIndeterminate(msg)
	}
	return model.NewProbeIndeterminate(fmt.Sprintf("unexpected status %d", status))
}

func hasText(blocks []contentBlock) bool {
	for _, b := range blocks {
		if strings.TrimSpace(b.Text) != "" {
			return true
		}
	}
	return false
}
