package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/garnizeh/realty/internal/ai"
)

// Copywriter generates listing text.
type Copywriter interface {
	GenerateDescription(ctx context.Context, in ai.DescriptionInput) (string, error)
	GenerateSEO(ctx context.Context, in ai.SEOInput) (*ai.SEOResult, error)
}

type AIHandler struct {
	engine Copywriter
}

func NewAIHandler(engine Copywriter) *AIHandler {
	return &AIHandler{engine: engine}
}

func (h *AIHandler) available(w http.ResponseWriter) bool {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "ai generation is not configured")
		return false
	}
	return true
}

func (h *AIHandler) Description(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var in ai.DescriptionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	text, err := h.engine.GenerateDescription(r.Context(), in)
	if err != nil {
		serverError(w, r, "generate description", err)
		return
	}
	writeJSON(w, map[string]string{"description": text}, http.StatusOK)
}

func (h *AIHandler) SEO(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var in ai.SEOInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	res, err := h.engine.GenerateSEO(r.Context(), in)
	if err != nil {
		serverError(w, r, "generate seo", err)
		return
	}
	writeJSON(w, res, http.StatusOK)
}
