package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

type BuildersHandler struct {
	builders repository.BuilderRepo
	projects repository.ProjectRepo
}

func NewBuildersHandler(br repository.BuilderRepo, pr repository.ProjectRepo) *BuildersHandler {
	return &BuildersHandler{builders: br, projects: pr}
}

type builderDetail struct {
	models.Builder
	Projects []models.Project `json:"projects"`
}

func (h *BuildersHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	items, err := h.builders.ListBuilders(r.Context(), limit, offset)
	if err != nil {
		serverError(w, r, "list builders", err)
		return
	}
	if items == nil {
		items = []models.Builder{}
	}
	writeJSON(w, items, http.StatusOK)
}

// GetBySlug returns a builder together with its approved projects.
func (h *BuildersHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := h.builders.GetBuilderBySlug(ctx, mux.Vars(r)["slug"])
	if err != nil {
		serverError(w, r, "get builder", err)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "builder not found")
		return
	}
	projects, err := h.projects.ListProjects(ctx, models.ProjectFilter{BuilderID: b.ID, ApprovalStatus: models.ApprovalApproved})
	if err != nil {
		serverError(w, r, "list builder projects", err)
		return
	}
	writeJSON(w, builderDetail{Builder: *b, Projects: nonNil(projects)}, http.StatusOK)
}

func (h *BuildersHandler) slugTaken(ctx context.Context, slug string) (bool, error) {
	b, err := h.builders.GetBuilderBySlug(ctx, slug)
	return b != nil, err
}

func (h *BuildersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var b models.Builder
	if !decodeJSON(w, r, &b) {
		return
	}
	b.Name = strings.TrimSpace(b.Name)
	if err := validateBuilder(&b); err != nil {
		invalid(w, err)
		return
	}
	ctx := r.Context()
	base := slugify(b.Slug)
	if base == "" {
		base = slugify(b.Name)
	}
	slug, err := uniqueSlug(ctx, base, h.slugTaken)
	if err != nil {
		serverError(w, r, "check slug", err)
		return
	}
	b.Slug = slug

	id, err := h.builders.CreateBuilder(ctx, &b)
	if err != nil {
		serverError(w, r, "create builder", err)
		return
	}
	b.ID = id
	writeJSON(w, b, http.StatusCreated)
}

func (h *BuildersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	current, err := h.builders.GetBuilderByID(ctx, id)
	if err != nil {
		serverError(w, r, "get builder", err)
		return
	}
	if current == nil {
		writeError(w, http.StatusNotFound, "builder not found")
		return
	}
	b := *current
	if !decodeJSON(w, r, &b) {
		return
	}
	b.ID = id
	b.Name = strings.TrimSpace(b.Name)
	if err := validateBuilder(&b); err != nil {
		invalid(w, err)
		return
	}
	if b.Slug != current.Slug {
		b.Slug = slugify(b.Slug)
		if taken, err := h.slugTaken(ctx, b.Slug); err != nil {
			serverError(w, r, "check slug", err)
			return
		} else if taken || b.Slug == "" {
			writeError(w, http.StatusConflict, "slug already in use")
			return
		}
	}
	if err := h.builders.UpdateBuilder(ctx, &b); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "builder not found")
			return
		}
		serverError(w, r, "update builder", err)
		return
	}
	writeJSON(w, b, http.StatusOK)
}

func (h *BuildersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.builders.DeleteBuilder(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "builder not found")
			return
		}
		serverError(w, r, "delete builder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
