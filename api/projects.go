package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/garnizeh/realty/internal/jobs"
	"github.com/garnizeh/realty/internal/notify"
	"github.com/garnizeh/realty/internal/pricing"
	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

type ProjectsHandler struct {
	projects repository.ProjectRepo
	users    repository.UserRepo
	queue    jobs.Enqueuer
	geo      jobs.Distancer
}

func NewProjectsHandler(pr repository.ProjectRepo, ur repository.UserRepo, q jobs.Enqueuer, geo jobs.Distancer) *ProjectsHandler {
	return &ProjectsHandler{projects: pr, users: ur, queue: q, geo: geo}
}

type projectList struct {
	Items  []models.Project `json:"items"`
	Count  int              `json:"count"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// priceBHKFilter narrows listings by price range and bedrooms after the
// database query.
type priceBHKFilter struct {
	min, max int64
	bhk      []string
	bedrooms []pricing.BedroomFilter
}

func (f priceBHKFilter) empty() bool {
	return f.min == 0 && f.max == 0 && len(f.bhk) == 0
}

func (f priceBHKFilter) match(p models.Project) bool {
	price := pricing.Price{Amount: p.PriceAmount}
	if price.IsZero() {
		price = pricing.PriceFromText(p.PriceText)
	}
	if !price.InRange(f.min, f.max) {
		return false
	}
	if len(f.bhk) == 0 {
		return true
	}
	// structured counts widen the text match, never narrow it
	if pricing.MatchesBHK(p.Configuration, p.Description, f.bhk) {
		return true
	}
	if p.Bedrooms > 0 && pricing.MatchesAny(f.bedrooms, p.Bedrooms) {
		return true
	}
	for _, n := range pricing.BedroomCounts(p.Configuration) {
		if pricing.MatchesAny(f.bedrooms, n) {
			return true
		}
	}
	return false
}

func parseProjectFilter(r *http.Request) (models.ProjectFilter, priceBHKFilter, error) {
	q := r.URL.Query()
	f := models.ProjectFilter{
		Query:       strings.TrimSpace(q.Get("q")),
		ListingType: models.ListingType(q.Get("listing_type")),
		Category:    q.Get("category"),
		City:        q.Get("city"),
		Status:      q.Get("status"),
	}
	if f.ListingType != "" && !f.ListingType.Valid() {
		return f, priceBHKFilter{}, errors.New("unknown listing_type")
	}
	if v := q.Get("builder_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, priceBHKFilter{}, errors.New("invalid builder_id")
		}
		f.BuilderID = id
	}
	if v := q.Get("featured"); v == "true" || v == "1" {
		f.FeaturedOnly = true
	}

	var pf priceBHKFilter
	pf.min = int64(pricing.ParsePrice(q.Get("min_price")))
	pf.max = int64(pricing.ParsePrice(q.Get("max_price")))
	for _, raw := range q["bhk"] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v == "" {
				continue
			}
			bf, err := pricing.ParseBedroomFilter(v)
			if err != nil {
				return f, pf, err
			}
			pf.bedrooms = append(pf.bedrooms, bf)
			pf.bhk = append(pf.bhk, strings.TrimSpace(strings.TrimSuffix(strings.ToLower(v), "bhk")))
		}
	}
	return f, pf, nil
}

// list runs the query and applies price and bedroom filters. Those filters
// need every candidate row, so pagination then happens here.
func (h *ProjectsHandler) list(ctx context.Context, f models.ProjectFilter, pf priceBHKFilter, limit, offset int) (projectList, error) {
	if pf.empty() {
		f.Limit, f.Offset = limit, offset
		items, err := h.projects.ListProjects(ctx, f)
		if err != nil {
			return projectList{}, err
		}
		return projectList{Items: nonNil(items), Count: len(items), Limit: limit, Offset: offset}, nil
	}

	all, err := h.projects.ListProjects(ctx, f)
	if err != nil {
		return projectList{}, err
	}
	matched := make([]models.Project, 0, len(all))
	for _, p := range all {
		if pf.match(p) {
			matched = append(matched, p)
		}
	}
	if offset >= len(matched) {
		matched = matched[:0]
	} else {
		matched = matched[offset:]
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return projectList{Items: matched, Count: len(matched), Limit: limit, Offset: offset}, nil
}

func nonNil(p []models.Project) []models.Project {
	if p == nil {
		return []models.Project{}
	}
	return p
}

// List serves the public catalogue; only approved listings are visible.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, pf, err := parseProjectFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.ApprovalStatus = models.ApprovalApproved
	limit, offset := page(r)

	out, err := h.list(r.Context(), f, pf, limit, offset)
	if err != nil {
		serverError(w, r, "list projects", err)
		return
	}
	writeJSON(w, out, http.StatusOK)
}

func (h *ProjectsHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.GetProjectBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		serverError(w, r, "get project", err)
		return
	}
	if p == nil || p.ApprovalStatus != models.ApprovalApproved {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, p, http.StatusOK)
}

// AdminList lists projects in any approval state.
func (h *ProjectsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	f, pf, err := parseProjectFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if v := r.URL.Query().Get("approval_status"); v != "" {
		f.ApprovalStatus = models.ApprovalStatus(v)
	}
	limit, offset := page(r)

	out, err := h.list(r.Context(), f, pf, limit, offset)
	if err != nil {
		serverError(w, r, "list projects", err)
		return
	}
	writeJSON(w, out, http.StatusOK)
}

func (h *ProjectsHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.projects.GetProjectByID(r.Context(), id)
	if err != nil {
		serverError(w, r, "get project", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, p, http.StatusOK)
}

// normalizeProject fills the derived price and bedroom columns.
func normalizeProject(p *models.Project) {
	p.Title = strings.TrimSpace(p.Title)
	if p.PriceAmount == 0 && p.PriceText != "" {
		price := pricing.PriceFromText(p.PriceText)
		p.PriceAmount = price.Rupees()
		p.PriceUnit = string(price.Unit)
	}
	if p.PriceText == "" && p.PriceAmount > 0 {
		unit, err := pricing.ParseUnit(p.PriceUnit)
		if err != nil {
			unit = pricing.Rupee
		}
		p.PriceText = pricing.Price{Amount: p.PriceAmount, Unit: unit}.String()
	}
	if p.Bedrooms == 0 {
		p.Bedrooms = pricing.BedroomsFromText(p.Configuration)
	}
}

// rederive clears derived columns whose source changed in an update so
// normalizeProject fills them again. Fields the body set are kept.
func rederive(p, current *models.Project, sent map[string]bool) {
	if sent["price"] && !sent["price_amount"] && p.PriceText != current.PriceText {
		p.PriceAmount = 0
	}
	if !sent["price"] && (p.PriceAmount != current.PriceAmount || p.PriceUnit != current.PriceUnit) {
		p.PriceText = ""
	}
	if !sent["bedrooms"] && p.Configuration != current.Configuration {
		p.Bedrooms = 0
	}
}

func (h *ProjectsHandler) slugTaken(ctx context.Context, slug string) (bool, error) {
	p, err := h.projects.GetProjectBySlug(ctx, slug)
	return p != nil, err
}

// Create inserts a listing authored by an admin; it is approved immediately
// unless the body says otherwise.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p models.Project
	if !decodeJSON(w, r, &p) {
		return
	}
	normalizeProject(&p)
	if p.Title == "" || p.Location == "" {
		writeError(w, http.StatusBadRequest, "title and location are required")
		return
	}
	if !p.ListingType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown listing_type")
		return
	}
	if p.ApprovalStatus == "" {
		p.ApprovalStatus = models.ApprovalApproved
	}

	ctx := r.Context()
	base := slugify(p.Slug)
	if base == "" {
		base = slugify(p.Title)
	}
	slug, err := uniqueSlug(ctx, base, h.slugTaken)
	if err != nil {
		serverError(w, r, "check slug", err)
		return
	}
	p.Slug = slug

	id, err := h.projects.CreateProject(ctx, &p)
	if err != nil {
		serverError(w, r, "create project", err)
		return
	}
	p.ID = id
	if len(p.Landmarks) > 0 && p.Latitude != nil && p.Longitude != nil {
		jobs.EnqueueDistances(ctx, h.queue, id)
	}
	writeJSON(w, p, http.StatusCreated)
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	current, err := h.projects.GetProjectByID(ctx, id)
	if err != nil {
		serverError(w, r, "get project", err)
		return
	}
	if current == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	// decode over the stored row so omitted fields keep their values
	p := *current
	sent, ok := decodeJSONFields(w, r, &p)
	if !ok {
		return
	}
	p.ID = id
	// approval only moves through Approve and Reject
	p.ApprovalStatus = current.ApprovalStatus
	p.RejectionReason = current.RejectionReason
	p.SubmittedBy = current.SubmittedBy
	rederive(&p, current, sent)
	normalizeProject(&p)
	if p.Title == "" || p.Location == "" {
		writeError(w, http.StatusBadRequest, "title and location are required")
		return
	}
	if !p.ListingType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown listing_type")
		return
	}
	if p.Slug != current.Slug {
		p.Slug = slugify(p.Slug)
		if taken, err := h.slugTaken(ctx, p.Slug); err != nil {
			serverError(w, r, "check slug", err)
			return
		} else if taken || p.Slug == "" {
			writeError(w, http.StatusConflict, "slug already in use")
			return
		}
	}

	if err := h.projects.UpdateProject(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		serverError(w, r, "update project", err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.projects.DeleteProject(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		serverError(w, r, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Approvals lists listings waiting for review, oldest first.
func (h *ProjectsHandler) Approvals(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	items, err := h.projects.ListProjects(r.Context(), models.ProjectFilter{ApprovalStatus: models.ApprovalPending, Limit: limit, Offset: offset})
	if err != nil {
		serverError(w, r, "list approvals", err)
		return
	}
	writeJSON(w, projectList{Items: nonNil(items), Count: len(items), Limit: limit, Offset: offset}, http.StatusOK)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *ProjectsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, models.ApprovalApproved, "")
}

func (h *ProjectsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	h.decide(w, r, models.ApprovalRejected, strings.TrimSpace(req.Reason))
}

func (h *ProjectsHandler) decide(w http.ResponseWriter, r *http.Request, status models.ApprovalStatus, reason string) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.projects.SetApproval(ctx, id, status, reason); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "project not found")
		case errors.Is(err, repository.ErrNotPending):
			writeError(w, http.StatusConflict, "project is not pending approval")
		default:
			serverError(w, r, "set approval", err)
		}
		return
	}

	p, err := h.projects.GetProjectByID(ctx, id)
	if err != nil || p == nil {
		serverError(w, r, "get project", errors.Join(err, repository.ErrNotFound))
		return
	}
	if to := h.ownerEmail(ctx, p); to != "" {
		jobs.EnqueueEmail(ctx, h.queue, jobs.TypeEmailDecision, notify.DecisionEmail{
			To:       to,
			Title:    p.Title,
			Slug:     p.Slug,
			Approved: status == models.ApprovalApproved,
			Reason:   reason,
		})
	}
	writeJSON(w, p, http.StatusOK)
}

// ownerEmail finds who to tell about a decision: the submitting user, or
// the contact email captured by the submission form.
func (h *ProjectsHandler) ownerEmail(ctx context.Context, p *models.Project) string {
	if p.SubmittedBy != nil && h.users != nil {
		u, err := h.users.GetUserByID(ctx, *p.SubmittedBy)
		if err != nil {
			logger.Warn("lookup submitter", slog.Int64("project_id", p.ID), slog.Any("err", err))
		} else if u != nil && u.Email != "" {
			return u.Email
		}
	}
	return contactEmail(p.DraftData)
}

// MySubmissions lists the caller's own submitted listings in every state.
func (h *ProjectsHandler) MySubmissions(w http.ResponseWriter, r *http.Request) {
	uid := UserIDFromContext(r.Context())
	limit, offset := page(r)
	items, err := h.projects.ListProjects(r.Context(), models.ProjectFilter{SubmittedBy: uid, Limit: limit, Offset: offset})
	if err != nil {
		serverError(w, r, "list submissions", err)
		return
	}
	writeJSON(w, projectList{Items: nonNil(items), Count: len(items), Limit: limit, Offset: offset}, http.StatusOK)
}

// Distances recomputes a listing's landmark distances synchronously.
func (h *ProjectsHandler) Distances(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if h.geo == nil {
		writeError(w, http.StatusServiceUnavailable, "distance lookups are not configured")
		return
	}
	got, err := jobs.RefreshDistances(r.Context(), h.projects, h.geo, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "project not found")
		return
	case errors.Is(err, jobs.ErrNoCoordinates):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		serverError(w, r, "refresh distances", err)
		return
	}
	if got == nil {
		got = []models.Landmark{}
	}
	writeJSON(w, map[string]any{"landmarks": got}, http.StatusOK)
}
