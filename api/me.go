package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

// MeHandler serves the signed-in user's own profile and favorites.
type MeHandler struct {
	users     repository.UserRepo
	profiles  repository.ProfileRepo
	favorites repository.FavoriteRepo
	projects  repository.ProjectRepo
}

func NewMeHandler(ur repository.UserRepo, pr repository.ProfileRepo, fr repository.FavoriteRepo, projects repository.ProjectRepo) *MeHandler {
	return &MeHandler{users: ur, profiles: pr, favorites: fr, projects: projects}
}

type profileResponse struct {
	User        models.User     `json:"user"`
	Preferences json.RawMessage `json:"preferences"`
}

type profileRequest struct {
	Name        *string         `json:"name"`
	Phone       *string         `json:"phone"`
	Preferences json.RawMessage `json:"preferences"`
}

func (h *MeHandler) load(w http.ResponseWriter, r *http.Request) (*models.User, *models.Profile, bool) {
	ctx := r.Context()
	uid := UserIDFromContext(ctx)
	u, err := h.users.GetUserByID(ctx, uid)
	if err != nil {
		serverError(w, r, "get user", err)
		return nil, nil, false
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return nil, nil, false
	}
	p, err := h.profiles.GetProfile(ctx, uid)
	if err != nil {
		serverError(w, r, "get profile", err)
		return nil, nil, false
	}
	if p == nil {
		p = &models.Profile{UserID: uid, Preferences: json.RawMessage("{}")}
	}
	return u, p, true
}

func (h *MeHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, p, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, profileResponse{User: *u, Preferences: p.Preferences}, http.StatusOK)
}

// UpdateProfile changes name and phone and replaces the preferences object.
func (h *MeHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Preferences) > 0 && bytes.TrimSpace(req.Preferences)[0] != '{' {
		writeError(w, http.StatusBadRequest, "preferences must be a JSON object")
		return
	}
	u, p, ok := h.load(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if req.Name != nil || req.Phone != nil {
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				writeError(w, http.StatusBadRequest, "name cannot be empty")
				return
			}
			u.Name = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			u.Phone = strings.TrimSpace(*req.Phone)
		}
		if err := h.users.UpdateUser(ctx, u); err != nil {
			serverError(w, r, "update user", err)
			return
		}
	}
	if len(req.Preferences) > 0 {
		p.Preferences = req.Preferences
		if err := h.profiles.UpsertProfile(ctx, p); err != nil {
			serverError(w, r, "update profile", err)
			return
		}
	}
	writeJSON(w, profileResponse{User: *u, Preferences: p.Preferences}, http.StatusOK)
}

func (h *MeHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	items, err := h.favorites.ListFavorites(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		serverError(w, r, "list favorites", err)
		return
	}
	writeJSON(w, nonNil(items), http.StatusOK)
}

// AddFavorite and RemoveFavorite are idempotent.
func (h *MeHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "project_id")
	if !ok {
		return
	}
	ctx := r.Context()
	p, err := h.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		serverError(w, r, "get project", err)
		return
	}
	if p == nil || p.ApprovalStatus != models.ApprovalApproved {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err := h.favorites.AddFavorite(ctx, UserIDFromContext(ctx), projectID); err != nil {
		serverError(w, r, "add favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MeHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "project_id")
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.favorites.RemoveFavorite(ctx, UserIDFromContext(ctx), projectID); err != nil {
		serverError(w, r, "remove favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
