package api

import (
	"net/http"
	"time"

	"github.com/garnizeh/realty/pkg/repository"
)

type DashboardHandler struct {
	stats repository.DashboardRepo
	now   func() time.Time
}

func NewDashboardHandler(dr repository.DashboardRepo) *DashboardHandler {
	return &DashboardHandler{stats: dr, now: time.Now}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.DashboardStats(r.Context(), h.now().UnixMilli())
	if err != nil {
		serverError(w, r, "dashboard stats", err)
		return
	}
	writeJSON(w, s, http.StatusOK)
}
