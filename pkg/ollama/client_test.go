package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garnizeh/realty/internal/config"
	"github.com/garnizeh/realty/pkg/ollama"
)

// writeSequence writes each object as a JSON line and flushes, the way
// Ollama streams a completion.
func writeSequence(w http.ResponseWriter, seq []map[string]any, delay time.Duration) {
	enc := json.NewEncoder(w)
	for i, obj := range seq {
		_ = enc.Encode(obj)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if i < len(seq)-1 && delay > 0 {
			time.Sleep(delay)
		}
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, cfg config.OllamaConfig) *ollama.Client {
	t.Helper()
	cfg.BaseURL = srv.URL
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	c, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	if _, err := ollama.NewClient(config.OllamaConfig{BaseURL: "not a url"}, nil); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}

func TestClient_ListModelsAndHealth(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		wantCount int
		healthy   bool
	}{
		{"one model", `{"models":[{"name":"llama3:latest","size":42}]}`, 1, true},
		{"name falls back to model", `{"models":[{"model":"mistral","size":7}]}`, 1, true},
		{"no models", `{"models":[]}`, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet && r.URL.Path == "/api/tags" {
					w.Header().Set("Content-Type", "application/json")
					_, _ = w.Write([]byte(tc.body))
					return
				}
				http.NotFound(w, r)
			}))
			defer srv.Close()
			client := newTestClient(t, srv, config.OllamaConfig{})

			got, err := client.ListModels(context.Background())
			if err != nil {
				t.Fatalf("ListModels failed: %v", err)
			}
			if len(got) != tc.wantCount {
				t.Fatalf("expected %d models, got %#v", tc.wantCount, got)
			}
			if tc.wantCount > 0 && got[0].Name == "" {
				t.Fatalf("model name is empty: %#v", got)
			}
			if err := client.Health(context.Background()); (err == nil) != tc.healthy {
				t.Fatalf("Health() error = %v, healthy want %v", err, tc.healthy)
			}
		})
	}
}

func TestClient_Generate_JoinsStreamAndSendsOptions(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/x-ndjson")
		writeSequence(w, []map[string]any{
			{"response": `{"title":`, "done": false},
			{"response": `"Green Acres"}`, "done": true, "prompt_eval_count": 12, "eval_count": 7},
		}, 10*time.Millisecond)
	}))
	defer srv.Close()
	client := newTestClient(t, srv, config.OllamaConfig{})

	res, err := client.Generate(context.Background(), ollama.Prompt{
		Model: "llama3", System: "You write listing copy.", Text: "seo please", JSON: true, Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Text != `{"title":"Green Acres"}` {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.PromptTokens != 12 || res.ResponseTokens != 7 || res.Attempts != 1 || res.Model != "llama3" {
		t.Fatalf("unexpected counters %+v", res)
	}

	if got["model"] != "llama3" || got["prompt"] != "seo please" || got["system"] != "You write listing copy." {
		t.Fatalf("unexpected request %v", got)
	}
	if got["format"] != "json" {
		t.Fatalf("expected json format, got %v", got["format"])
	}
	opts, _ := got["options"].(map[string]any)
	if opts["temperature"] != 0.2 {
		t.Fatalf("expected temperature option, got %v", got["options"])
	}
}

func TestClient_Generate_RequiresModel(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	client := newTestClient(t, srv, config.OllamaConfig{})

	if _, err := client.Generate(context.Background(), ollama.Prompt{Text: "p"}); err == nil {
		t.Fatalf("expected error without a model")
	}
}

func TestClient_Generate_Failures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "server error", http.StatusInternalServerError)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{ this is : not json `))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			client := newTestClient(t, srv, config.OllamaConfig{})

			if _, err := client.Generate(context.Background(), ollama.Prompt{Model: "m", Text: "p"}); err == nil {
				t.Fatalf("expected Generate to fail")
			}
		})
	}
}

func TestClient_Generate_RetriesWithBackoff(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "temporary", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		writeSequence(w, []map[string]any{{"response": "ok", "done": true}}, 0)
	}))
	defer srv.Close()
	client := newTestClient(t, srv, config.OllamaConfig{Retries: 2, Backoff: 10 * time.Millisecond, CircuitFailureThreshold: 10})

	res, err := client.Generate(context.Background(), ollama.Prompt{Model: "m", Text: "p"})
	if err != nil {
		t.Fatalf("Generate expected success after retry, got error: %v", err)
	}
	if res.Attempts != 2 || attempts.Load() != 2 {
		t.Fatalf("expected 2 attempts, result says %d, server saw %d", res.Attempts, attempts.Load())
	}
	if res.Latency <= 0 {
		t.Fatalf("expected latency to be recorded")
	}
}

func TestClient_CircuitBreaker_Opens(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "permanent", http.StatusInternalServerError)
	}))
	defer srv.Close()
	client := newTestClient(t, srv, config.OllamaConfig{Timeout: time.Second, Backoff: time.Millisecond, CircuitFailureThreshold: 2, CircuitReset: time.Minute})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.Generate(ctx, ollama.Prompt{Model: "m", Text: "p"}); err == nil || err == ollama.ErrCircuitOpen {
			t.Fatalf("attempt %d: expected upstream error, got %v", i+1, err)
		}
	}
	if _, err := client.Generate(ctx, ollama.Prompt{Model: "m", Text: "p"}); err != ollama.ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if _, err := client.ListModels(ctx); err != ollama.ErrCircuitOpen {
		t.Fatalf("expected ListModels to respect the open circuit, got %v", err)
	}
	if n := attempts.Load(); n != 2 {
		t.Fatalf("expected the open circuit to stop requests, server saw %d", n)
	}
}

type closeTransport struct{ calls atomic.Int32 }

func (t *closeTransport) RoundTrip(*http.Request) (*http.Response, error) { panic("not used") }
func (t *closeTransport) CloseIdleConnections()                           { t.calls.Add(1) }

func TestClient_CloseIsIdempotent(t *testing.T) {
	tr := &closeTransport{}
	c, err := ollama.NewClient(config.OllamaConfig{BaseURL: "http://localhost:11434", Timeout: time.Second}, &http.Client{Transport: tr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if n := tr.calls.Load(); n != 1 {
		t.Fatalf("expected one CloseIdleConnections call, got %d", n)
	}
	var nilClient *ollama.Client
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
