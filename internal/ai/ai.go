package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/garnizeh/realty/internal/config"
	"github.com/garnizeh/realty/pkg/ollama"
	"github.com/garnizeh/realty/pkg/repository"
)

const (
	TemplateDescription = "description"
	TemplateSEO         = "seo"
)

// package-level logger; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the ai package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Generator is the subset of *ollama.Client the engine needs.
type Generator interface {
	Generate(ctx context.Context, p ollama.Prompt) (ollama.GenerateResult, error)
}

const (
	descriptionSystem = "You write concise, factual real-estate listing copy. Answer with plain text only."
	seoSystem         = "You write search metadata for real-estate pages. Answer with one JSON object with keys title, description and keywords."
)

// Engine renders prompt templates stored in the database and asks the model
// for listing copy.
type Engine struct {
	gen       Generator
	cfg       config.EngineConfig
	templates repository.TemplateRepo
}

// NewEngine checks that both prompt templates exist for the configured
// version.
func NewEngine(ctx context.Context, gen Generator, cfg config.EngineConfig, tr repository.TemplateRepo) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("template repo is required")
	}
	if cfg.TemplateVersion == "" {
		cfg.TemplateVersion = "v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	e := &Engine{gen: gen, cfg: cfg, templates: tr}
	for _, name := range []string{TemplateDescription, TemplateSEO} {
		if _, err := e.template(ctx, name); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// DescriptionInput feeds the description prompt.
type DescriptionInput struct {
	Title         string   `json:"title"`
	ListingType   string   `json:"listing_type"`
	Category      string   `json:"category"`
	Location      string   `json:"location"`
	City          string   `json:"city"`
	Price         string   `json:"price"`
	Configuration string   `json:"configuration"`
	Amenities     []string `json:"amenities"`
	Notes         string   `json:"notes"`
}

// SEOInput feeds the SEO prompt.
type SEOInput struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
}

// SEOResult is the metadata the model returns for a page.
type SEOResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// GenerateDescription returns plain-text marketing copy for a listing.
func (e *Engine) GenerateDescription(ctx context.Context, in DescriptionInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", errors.New("title is required")
	}
	out, err := e.run(ctx, TemplateDescription, in, ollama.Prompt{System: descriptionSystem, Temperature: 0.7})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(StripCodeFences(out))
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

// GenerateSEO returns page metadata parsed from the model's JSON answer.
func (e *Engine) GenerateSEO(ctx context.Context, in SEOInput) (*SEOResult, error) {
	if strings.TrimSpace(in.Path) == "" {
		return nil, errors.New("path is required")
	}
	out, err := e.run(ctx, TemplateSEO, in, ollama.Prompt{System: seoSystem, JSON: true, Temperature: 0.2})
	if err != nil {
		return nil, err
	}
	res, err := ParseSEO(out)
	if err != nil {
		logger.Warn("ai: unparseable seo response", slog.String("path", in.Path), slog.Any("err", err), slog.String("raw", out))
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return res, nil
}

func (e *Engine) run(ctx context.Context, name string, data any, p ollama.Prompt) (string, error) {
	tpl, err := e.template(ctx, name)
	if err != nil {
		return "", err
	}
	prompt, err := ollama.RenderTemplate(tpl, data)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}

	ctxReq, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	p.Model = e.cfg.Model
	p.Text = prompt
	res, err := e.gen.Generate(ctxReq, p)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	logger.Info("ai: generated",
		slog.String("template", name),
		slog.String("model", p.Model),
		slog.Duration("latency", res.Latency),
		slog.Int("prompt_tokens", res.PromptTokens),
		slog.Int("response_tokens", res.ResponseTokens),
	)
	return res.Text, nil
}

// template loads the prompt on every call so edits in the database apply
// without a restart.
func (e *Engine) template(ctx context.Context, name string) (string, error) {
	tpl, err := e.templates.GetTemplate(ctx, name, e.cfg.TemplateVersion)
	if err != nil {
		return "", fmt.Errorf("load template: %w", err)
	}
	if tpl == nil || tpl.TemplateTxt == "" {
		return "", fmt.Errorf("template %s:%s not found", name, e.cfg.TemplateVersion)
	}
	return tpl.TemplateTxt, nil
}

var fence = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)```")

// StripCodeFences returns the body of the first markdown code fence, or the
// input unchanged when there is none.
func StripCodeFences(s string) string {
	if m := fence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// ParseSEO extracts the SEO JSON object from arbitrary model output.
func ParseSEO(s string) (*SEOResult, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty response")
	}

	j := extractJSON(StripCodeFences(s))
	if j == "" {
		return nil, errors.New("no JSON object found in response")
	}

	var r SEOResult
	if err := json.Unmarshal([]byte(j), &r); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	if r.Title == "" {
		return nil, errors.New("response has no title")
	}
	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	return &r, nil
}

// extractJSON returns the substring from the first '{' to the last '}' in the input.
func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}
