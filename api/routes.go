package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/realty/internal/config"
	"github.com/garnizeh/realty/internal/db"
	"github.com/garnizeh/realty/internal/jobs"
	"github.com/garnizeh/realty/internal/metrics"
	"github.com/garnizeh/realty/internal/repository/sqlite"
	"github.com/garnizeh/realty/internal/wizard"
)

// Deps are the collaborators the HTTP surface needs. Queue, AI and Geo may
// be nil; the features behind them then degrade instead of failing.
type Deps struct {
	Config    *config.Config
	Version   string
	BuildTime string
	DB        *db.DB
	Queue     jobs.Enqueuer
	Drafts    wizard.Persister
	Validator ListingValidator
	AI        Copywriter
	Geo       jobs.Distancer
}

func SetupRoutes(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(d.DB, logger)
	drafts := d.Drafts
	if drafts == nil {
		drafts = wizard.NewRepoPersister(repo)
	}

	// Create handlers
	systemHandler := &SystemHandler{DB: d.DB.GetConn()}
	authHandler := NewAuthHandler(repo, repo, repo, d.Config.JWTSecret, d.Config.TokenDuration)
	projectsHandler := NewProjectsHandler(repo, repo, d.Queue, d.Geo)
	buildersHandler := NewBuildersHandler(repo, repo)
	leadsHandler := NewLeadsHandler(repo, repo, d.Queue)
	meHandler := NewMeHandler(repo, repo, repo, repo)
	seoHandler := NewSEOHandler(repo)
	dashboardHandler := NewDashboardHandler(repo)
	aiHandler := NewAIHandler(d.AI)
	submissionWizard := NewWizardHandler(wizard.KindSubmission, drafts, d.Validator, repo, d.Queue)
	listingWizard := NewWizardHandler(wizard.KindListing, drafts, d.Validator, repo, d.Queue)

	// CORS preflight
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(d.Version, d.BuildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")
	r.HandleFunc("/v1/admin/login", authHandler.AdminLogin).Methods("POST")
	r.HandleFunc("/v1/projects", projectsHandler.List).Methods("GET")
	r.HandleFunc("/v1/projects/{slug}", projectsHandler.GetBySlug).Methods("GET")
	r.HandleFunc("/v1/builders", buildersHandler.List).Methods("GET")
	r.HandleFunc("/v1/builders/{slug}", buildersHandler.GetBySlug).Methods("GET")
	r.HandleFunc("/v1/leads", leadsHandler.Create).Methods("POST")
	r.HandleFunc("/v1/seo", seoHandler.Get).Methods("GET")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(d.Config.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Signed-in users
	me := apiV1.PathPrefix("/me").Subrouter()
	me.Use(RequireRole(RoleUser))
	me.HandleFunc("/profile", meHandler.GetProfile).Methods("GET")
	me.HandleFunc("/profile", meHandler.UpdateProfile).Methods("PUT")
	me.HandleFunc("/favorites", meHandler.ListFavorites).Methods("GET")
	me.HandleFunc("/favorites/{project_id}", meHandler.AddFavorite).Methods("POST")
	me.HandleFunc("/favorites/{project_id}", meHandler.RemoveFavorite).Methods("DELETE")
	me.HandleFunc("/submissions", projectsHandler.MySubmissions).Methods("GET")

	submissions := apiV1.PathPrefix("/wizards/submission").Subrouter()
	submissions.Use(RequireRole(RoleUser))
	wizardRoutes(submissions, submissionWizard)

	// Admin endpoints
	admin := apiV1.PathPrefix("/admin").Subrouter()
	admin.Use(RequireRole(RoleAdmin))
	admin.HandleFunc("/dashboard", dashboardHandler.Get).Methods("GET")

	admin.HandleFunc("/projects", projectsHandler.AdminList).Methods("GET")
	admin.HandleFunc("/projects", projectsHandler.Create).Methods("POST")
	admin.HandleFunc("/projects/{id}", projectsHandler.AdminGet).Methods("GET")
	admin.HandleFunc("/projects/{id}", projectsHandler.Update).Methods("PUT")
	admin.HandleFunc("/projects/{id}", projectsHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/projects/{id}/approve", projectsHandler.Approve).Methods("POST")
	admin.HandleFunc("/projects/{id}/reject", projectsHandler.Reject).Methods("POST")
	admin.HandleFunc("/projects/{id}/distances", projectsHandler.Distances).Methods("POST")
	admin.HandleFunc("/approvals", projectsHandler.Approvals).Methods("GET")

	admin.HandleFunc("/builders", buildersHandler.Create).Methods("POST")
	admin.HandleFunc("/builders/{id}", buildersHandler.Update).Methods("PUT")
	admin.HandleFunc("/builders/{id}", buildersHandler.Delete).Methods("DELETE")

	admin.HandleFunc("/leads", leadsHandler.List).Methods("GET")
	admin.HandleFunc("/leads/export", leadsHandler.Export).Methods("GET")
	admin.HandleFunc("/leads/{id}", leadsHandler.Delete).Methods("DELETE")

	admin.HandleFunc("/ai/description", aiHandler.Description).Methods("POST")
	admin.HandleFunc("/ai/seo", aiHandler.SEO).Methods("POST")
	admin.HandleFunc("/seo", seoHandler.Upsert).Methods("PUT")

	wizardRoutes(admin.PathPrefix("/wizards/listing").Subrouter(), listingWizard)

	return r
}

func wizardRoutes(r *mux.Router, h *WizardHandler) {
	r.HandleFunc("", h.Create).Methods("POST")
	r.HandleFunc("/{id}", h.Get).Methods("GET")
	r.HandleFunc("/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/{id}/form", h.UpdateForm).Methods("PATCH")
	r.HandleFunc("/{id}/type", h.SetType).Methods("PUT")
	r.HandleFunc("/{id}/next", h.Next).Methods("POST")
	r.HandleFunc("/{id}/prev", h.Prev).Methods("POST")
	r.HandleFunc("/{id}/reset", h.Reset).Methods("POST")
	r.HandleFunc("/{id}/submit", h.Submit).Methods("POST")
}
