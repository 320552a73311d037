// Package ollama is a small resilient wrapper over the Ollama HTTP API used
// for listing copy: per-request timeout, retries with linear backoff and a
// failure-count circuit breaker.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/garnizeh/realty/internal/config"
)

var ErrCircuitOpen = errors.New("ollama circuit open")

// package-level logger for pkg/ollama; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/ollama. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

type Client struct {
	api  *api.Client
	cfg  config.OllamaConfig
	http *http.Client

	failures  atomic.Int32
	openUntil atomic.Int64 // unix nano
	closed    atomic.Bool
}

// Prompt is one generation request.
type Prompt struct {
	Model  string
	System string
	Text   string
	// JSON asks the model to answer with a single JSON object.
	JSON bool
	// Temperature 0 keeps the model default.
	Temperature float64
}

// GenerateResult is the text produced for one prompt with the counters of
// the final streamed chunk.
type GenerateResult struct {
	Text           string        `json:"text"`
	Model          string        `json:"model"`
	PromptTokens   int           `json:"prompt_tokens"`
	ResponseTokens int           `json:"response_tokens"`
	Latency        time.Duration `json:"latency"`
	Attempts       int           `json:"attempts"`
}

func NewClient(cfg config.OllamaConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	logger.Debug("ollama: client created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return &Client{api: api.NewClient(u, httpClient), cfg: cfg, http: httpClient}, nil
}

// NewDefaultClient uses a pooled transport tuned for a local Ollama.
func NewDefaultClient(cfg config.OllamaConfig) (*Client, error) {
	return NewClient(cfg, &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	})
}

// Close releases idle connections held by the transport. It is idempotent.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.http != nil && c.http.Transport != nil {
		if tr, ok := c.http.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
			logger.Debug("ollama: idle connections closed")
		}
	}
	return nil
}

func (c *Client) circuitOpen() bool {
	limit := int32(c.cfg.CircuitFailureThreshold)
	if limit <= 0 || c.failures.Load() < limit {
		return false
	}
	if time.Now().UnixNano() < c.openUntil.Load() {
		return true
	}
	// half-open: let one request through
	c.failures.Store(0)
	return false
}

func (c *Client) recordFailure() {
	limit := int32(c.cfg.CircuitFailureThreshold)
	if n := c.failures.Add(1); limit > 0 && n >= limit {
		c.openUntil.Store(time.Now().Add(c.cfg.CircuitReset).UnixNano())
		logger.Warn("ollama: circuit opened", slog.Int("failures", int(n)), slog.Duration("reset", c.cfg.CircuitReset))
	}
}

func (c *Client) recordSuccess() { c.failures.Store(0) }

// Health checks that the instance answers and has at least one model.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	installed, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(installed) == 0 {
		c.recordFailure()
		return errors.New("health check failed: no models installed")
	}
	return nil
}

// ModelInfo is a lightweight model descriptor returned by ListModels.
type ModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if c.circuitOpen() {
		return nil, ErrCircuitOpen
	}

	resp, err := c.api.List(ctx)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("list models: %w", err)
	}
	c.recordSuccess()

	out := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		out = append(out, ModelInfo{Name: name, Size: m.Size})
	}
	return out, nil
}

func (p Prompt) request() *api.GenerateRequest {
	req := &api.GenerateRequest{Model: p.Model, Prompt: p.Text, System: p.System}
	if p.JSON {
		req.Format = json.RawMessage(`"json"`)
	}
	if p.Temperature > 0 {
		req.Options = map[string]any{"temperature": p.Temperature}
	}
	return req
}

// Generate streams a completion and joins the chunks. Failed attempts are
// retried with linear backoff while the circuit stays closed.
func (c *Client) Generate(ctx context.Context, p Prompt) (GenerateResult, error) {
	if p.Model == "" {
		return GenerateResult{}, errors.New("model is required")
	}
	if c.circuitOpen() {
		return GenerateResult{}, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return GenerateResult{}, ctx.Err()
			case <-time.After(c.cfg.Backoff * time.Duration(attempt)):
			}
			if c.circuitOpen() {
				return GenerateResult{}, ErrCircuitOpen
			}
		}

		res, err := c.generateOnce(ctx, p)
		if err == nil {
			c.recordSuccess()
			res.Attempts = attempt + 1
			return res, nil
		}
		lastErr = err
		c.recordFailure()
		logger.Warn("ollama: generate attempt failed", slog.Int("attempt", attempt+1), slog.String("model", p.Model), slog.Any("err", err))
	}
	return GenerateResult{}, fmt.Errorf("generate failed after retries: %w", lastErr)
}

func (c *Client) generateOnce(ctx context.Context, p Prompt) (GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var sb strings.Builder
	var last api.GenerateResponse
	start := time.Now()
	err := c.api.Generate(ctx, p.request(), func(r api.GenerateResponse) error {
		sb.WriteString(r.Response)
		last = r
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}
	return GenerateResult{
		Text:           sb.String(),
		Model:          p.Model,
		PromptTokens:   last.PromptEvalCount,
		ResponseTokens: last.EvalCount,
		Latency:        time.Since(start),
	}, nil
}
