package api

import (
	"net/http"
	"strings"

	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

type SEOHandler struct {
	pages repository.SEORepo
}

func NewSEOHandler(sr repository.SEORepo) *SEOHandler {
	return &SEOHandler{pages: sr}
}

// Get returns the stored metadata for ?path=.
func (h *SEOHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	p, err := h.pages.GetSEOPage(r.Context(), path)
	if err != nil {
		serverError(w, r, "get seo page", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "seo page not found")
		return
	}
	writeJSON(w, p, http.StatusOK)
}

func (h *SEOHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var p models.SEOPage
	if !decodeJSON(w, r, &p) {
		return
	}
	p.Path = strings.TrimSpace(p.Path)
	if p.Path == "" || !strings.HasPrefix(p.Path, "/") {
		writeError(w, http.StatusBadRequest, "path must start with /")
		return
	}
	if err := h.pages.UpsertSEOPage(r.Context(), &p); err != nil {
		serverError(w, r, "upsert seo page", err)
		return
	}
	stored, err := h.pages.GetSEOPage(r.Context(), p.Path)
	if err != nil || stored == nil {
		serverError(w, r, "get seo page", err)
		return
	}
	writeJSON(w, stored, http.StatusOK)
}
