package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/garnizeh/realty/internal/export"
	"github.com/garnizeh/realty/internal/jobs"
	"github.com/garnizeh/realty/internal/notify"
	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

// leadExportLimit caps the rows written to one spreadsheet.
const leadExportLimit = 10000

type LeadsHandler struct {
	leads    repository.LeadRepo
	projects repository.ProjectRepo
	queue    jobs.Enqueuer
}

func NewLeadsHandler(lr repository.LeadRepo, pr repository.ProjectRepo, q jobs.Enqueuer) *LeadsHandler {
	return &LeadsHandler{leads: lr, projects: pr, queue: q}
}

type leadRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	ProjectID *int64 `json:"project_id"`
	Message   string `json:"message"`
	Source    string `json:"source"`
}

// Create stores an enquiry and queues the admin notification. A failed
// notification never fails the request.
func (h *LeadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if err := req.Validate(); err != nil {
		invalid(w, err)
		return
	}
	l := models.Lead{
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		ProjectID: req.ProjectID,
		Message:   req.Message,
		Source:    req.Source,
	}
	if l.Source == "" {
		l.Source = "website"
	}

	ctx := r.Context()
	if l.ProjectID != nil {
		p, err := h.projects.GetProjectByID(ctx, *l.ProjectID)
		if err != nil {
			serverError(w, r, "get project", err)
			return
		}
		if p == nil {
			writeError(w, http.StatusBadRequest, "unknown project_id")
			return
		}
		l.ProjectTitle = p.Title
	}

	id, err := h.leads.CreateLead(ctx, &l)
	if err != nil {
		serverError(w, r, "create lead", err)
		return
	}
	l.ID = id
	jobs.EnqueueEmail(ctx, h.queue, jobs.TypeEmailLead, notify.LeadFrom(l))
	writeJSON(w, l, http.StatusCreated)
}

func leadProjectFilter(r *http.Request) (int64, error) {
	v := r.URL.Query().Get("project_id")
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid project_id")
	}
	return id, nil
}

func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := leadProjectFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset := page(r)
	items, err := h.leads.ListLeads(r.Context(), projectID, limit, offset)
	if err != nil {
		serverError(w, r, "list leads", err)
		return
	}
	if items == nil {
		items = []models.Lead{}
	}
	writeJSON(w, items, http.StatusOK)
}

// Export downloads the leads as an xlsx workbook.
func (h *LeadsHandler) Export(w http.ResponseWriter, r *http.Request) {
	projectID, err := leadProjectFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.leads.ListLeads(r.Context(), projectID, leadExportLimit, 0)
	if err != nil {
		serverError(w, r, "list leads", err)
		return
	}
	b, err := export.LeadsWorkbook(items)
	if err != nil {
		serverError(w, r, "export leads", err)
		return
	}
	name := "leads-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *LeadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.leads.DeleteLead(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		serverError(w, r, "delete lead", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
