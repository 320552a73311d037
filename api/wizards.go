package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/garnizeh/realty/internal/jobs"
	"github.com/garnizeh/realty/internal/notify"
	"github.com/garnizeh/realty/internal/validation"
	"github.com/garnizeh/realty/internal/wizard"
	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

// ListingValidator checks a form document against its listing type.
type ListingValidator interface {
	Validate(ctx context.Context, listingType string, doc map[string]any) ([]validation.FieldError, error)
}

// WizardHandler drives one kind of multi-step form. Drafts are private to
// the token subject that created them.
type WizardHandler struct {
	kind      wizard.Kind
	drafts    wizard.Persister
	validator ListingValidator
	projects  repository.ProjectRepo
	queue     jobs.Enqueuer
}

func NewWizardHandler(kind wizard.Kind, drafts wizard.Persister, v ListingValidator, pr repository.ProjectRepo, q jobs.Enqueuer) *WizardHandler {
	return &WizardHandler{kind: kind, drafts: drafts, validator: v, projects: pr, queue: q}
}

type wizardResponse struct {
	ID string `json:"id"`
	wizard.State
}

type listingTypeRequest struct {
	ListingType string `json:"listing_type"`
}

func (h *WizardHandler) key(ctx context.Context, id string) string {
	return string(h.kind) + ":" + strconv.FormatInt(UserIDFromContext(ctx), 10) + ":" + id
}

// open loads an existing draft; it answers 404 when there is none.
func (h *WizardHandler) open(w http.ResponseWriter, r *http.Request) (*wizard.Store, string, bool) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "wizard not found")
		return nil, "", false
	}
	key := h.key(ctx, id)
	ok, err := wizard.Exists(ctx, h.drafts, key)
	if err != nil {
		serverError(w, r, "load wizard", err)
		return nil, "", false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "wizard not found")
		return nil, "", false
	}
	s, err := wizard.Open(ctx, h.drafts, key, h.kind)
	if err != nil {
		serverError(w, r, "load wizard", err)
		return nil, "", false
	}
	return s, id, true
}

func (h *WizardHandler) dispatch(w http.ResponseWriter, r *http.Request, s *wizard.Store, id string, a wizard.Action) {
	st, err := s.Dispatch(r.Context(), a)
	if err != nil {
		if errors.Is(err, wizard.ErrInvalidAction) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, r, "update wizard", err)
		return
	}
	writeJSON(w, wizardResponse{ID: id, State: st}, http.StatusOK)
}

// Create starts a draft. The body may preselect the listing type.
func (h *WizardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listingTypeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	ctx := r.Context()
	id := uuid.NewString()
	s, err := wizard.Open(ctx, h.drafts, h.key(ctx, id), h.kind)
	if err != nil {
		serverError(w, r, "create wizard", err)
		return
	}
	if req.ListingType != "" {
		if _, err := s.Dispatch(ctx, wizard.SetListingType{ListingType: req.ListingType}); err != nil {
			if errors.Is(err, wizard.ErrInvalidAction) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			serverError(w, r, "create wizard", err)
			return
		}
	}
	st, err := s.Dispatch(ctx, wizard.SetDraftID{ID: id})
	if err != nil {
		serverError(w, r, "create wizard", err)
		return
	}
	writeJSON(w, wizardResponse{ID: id, State: st}, http.StatusCreated)
}

func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.open(w, r)
	if !ok {
		return
	}
	writeJSON(w, wizardResponse{ID: id, State: s.State()}, http.StatusOK)
}

// UpdateForm merges the JSON object body into the form.
func (h *WizardHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var patch json.RawMessage
	if !decodeJSON(w, r, &patch) {
		return
	}
	s, id, ok := h.open(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r, s, id, wizard.UpdateForm{Patch: patch})
}

func (h *WizardHandler) SetType(w http.ResponseWriter, r *http.Request) {
	var req listingTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, id, ok := h.open(w, r)
	if !ok {
		return
	}
	h.dispatch(w, r, s, id, wizard.SetListingType{ListingType: req.ListingType})
}

func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	if s, id, ok := h.open(w, r); ok {
		h.dispatch(w, r, s, id, wizard.NextStep{})
	}
}

func (h *WizardHandler) Prev(w http.ResponseWriter, r *http.Request) {
	if s, id, ok := h.open(w, r); ok {
		h.dispatch(w, r, s, id, wizard.PrevStep{})
	}
}

// Reset returns the draft to step one with an empty form. The draft stays
// addressable under the same id.
func (h *WizardHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if s, id, ok := h.open(w, r); ok {
		h.dispatch(w, r, s, id, wizard.Reset{})
	}
}

func (h *WizardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := s.Discard(r.Context()); err != nil {
		serverError(w, r, "delete wizard", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit validates the draft, stores it as a project and removes the draft.
// Submissions wait for approval; admin listings go live immediately.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.open(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	st := s.State()
	if st.ListingType == "" {
		writeError(w, http.StatusBadRequest, "listing type has not been chosen")
		return
	}

	doc, err := st.Form.Document()
	if err != nil {
		serverError(w, r, "encode form", err)
		return
	}
	if h.validator != nil {
		fieldErrs, err := h.validator.Validate(ctx, st.ListingType, doc)
		if err != nil {
			if errors.Is(err, validation.ErrUnknownListingType) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			serverError(w, r, "validate form", err)
			return
		}
		if len(fieldErrs) > 0 {
			writeJSON(w, errorResponse{Error: validation.Summary(fieldErrs), Fields: fieldErrs}, http.StatusUnprocessableEntity)
			return
		}
	}

	p, err := wizard.Project(st)
	if err != nil {
		serverError(w, r, "build project", err)
		return
	}
	slug, err := uniqueSlug(ctx, slugify(p.Title), func(ctx context.Context, slug string) (bool, error) {
		existing, err := h.projects.GetProjectBySlug(ctx, slug)
		return existing != nil, err
	})
	if err != nil {
		serverError(w, r, "check slug", err)
		return
	}
	p.Slug = slug

	if h.kind == wizard.KindSubmission {
		uid := UserIDFromContext(ctx)
		p.ApprovalStatus = models.ApprovalPending
		p.SubmittedBy = &uid
	} else {
		p.ApprovalStatus = models.ApprovalApproved
	}

	pid, err := h.projects.CreateProject(ctx, &p)
	if err != nil {
		serverError(w, r, "create project", err)
		return
	}
	p.ID = pid

	if h.kind == wizard.KindSubmission {
		owner := EmailFromContext(ctx)
		if owner == "" {
			owner = st.Form.ContactEmail
		}
		jobs.EnqueueEmail(ctx, h.queue, jobs.TypeEmailSubmission, notify.SubmissionEmail{
			Title:       p.Title,
			ListingType: string(p.ListingType),
			Location:    p.Location,
			City:        p.City,
			OwnerEmail:  owner,
		})
	}
	if len(p.Landmarks) > 0 && p.Latitude != nil && p.Longitude != nil {
		jobs.EnqueueDistances(ctx, h.queue, pid)
	}

	if err := s.Discard(ctx); err != nil {
		logger.Warn("discard submitted wizard", slog.String("id", id), slog.Any("err", err))
	}
	writeJSON(w, p, http.StatusCreated)
}

// contactEmail reads the contact email captured in a submission form.
func contactEmail(draft json.RawMessage) string {
	if len(draft) == 0 {
		return ""
	}
	var f struct {
		ContactEmail string `json:"contact_email"`
	}
	if err := json.Unmarshal(draft, &f); err != nil {
		return ""
	}
	return f.ContactEmail
}
