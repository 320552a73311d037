package sqlite_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	dbfs "github.com/garnizeh/realty/db"
	dbpkg "github.com/garnizeh/realty/internal/db"
	sqlite "github.com/garnizeh/realty/internal/repository/sqlite"
	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

func setupRepo(t *testing.T) (*sqlite.SQLiteRepo, func()) {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		d.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := sqlite.New(d, nil)
	return repo, func() { d.Close() }
}

func TestUserCRUD(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, nil); err == nil {
		t.Fatalf("expected error when creating nil user")
	}

	got, err := repo.GetUserByID(ctx, 9999)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for missing id, got %#v, %v", got, err)
	}
	got, err = repo.GetUserByEmail(ctx, "a@a.com")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for missing email, got %#v, %v", got, err)
	}

	id, err := repo.CreateUser(ctx, &models.User{Name: "Asha", Email: "asha@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	got, err = repo.GetUserByEmail(ctx, "asha@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetUserByEmail: %#v, %v", got, err)
	}
	if got.Role != "user" {
		t.Fatalf("expected default role user, got %q", got.Role)
	}

	got.Phone = "9876543210"
	if err := repo.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser error: %v", err)
	}
	got, _ = repo.GetUserByID(ctx, id)
	if got.Phone != "9876543210" {
		t.Fatalf("phone not updated: %q", got.Phone)
	}

	if _, err := repo.CreateUser(ctx, &models.User{Name: "Dup", Email: "asha@example.com", PasswordHash: "x"}); err == nil {
		t.Fatalf("expected unique email violation")
	}
}

func TestProfileUpsert(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	uid, err := repo.CreateUser(ctx, &models.User{Name: "Ravi", Email: "ravi@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if p, err := repo.GetProfile(ctx, uid); err != nil || p != nil {
		t.Fatalf("expected no profile yet, got %#v, %v", p, err)
	}

	if err := repo.UpsertProfile(ctx, &models.Profile{UserID: uid}); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	p, err := repo.GetProfile(ctx, uid)
	if err != nil || p == nil {
		t.Fatalf("GetProfile: %#v, %v", p, err)
	}
	if string(p.Preferences) != "{}" {
		t.Fatalf("expected empty preferences, got %s", p.Preferences)
	}

	if err := repo.UpsertProfile(ctx, &models.Profile{UserID: uid, Preferences: json.RawMessage(`{"city":"Pune"}`)}); err != nil {
		t.Fatalf("UpsertProfile second: %v", err)
	}
	p, _ = repo.GetProfile(ctx, uid)
	if string(p.Preferences) != `{"city":"Pune"}` {
		t.Fatalf("preferences not replaced: %s", p.Preferences)
	}
}

func TestAdminPasswordReset(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	if err := repo.UpdateAdminPassword(ctx, "nobody@example.com", "x"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.CreateAdmin(ctx, &models.Admin{Email: "ops@example.com", PasswordHash: "old"}); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if err := repo.UpdateAdminPassword(ctx, "ops@example.com", "new"); err != nil {
		t.Fatalf("UpdateAdminPassword: %v", err)
	}
	a, err := repo.GetAdminByEmail(ctx, "ops@example.com")
	if err != nil || a == nil {
		t.Fatalf("GetAdminByEmail: %#v, %v", a, err)
	}
	if a.PasswordHash != "new" || a.Role != "admin" {
		t.Fatalf("unexpected admin %#v", a)
	}
}

func TestBuilderCRUD(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	id, err := repo.CreateBuilder(ctx, &models.Builder{Name: "Skyline", Slug: "skyline", EstablishedYear: 1998})
	if err != nil {
		t.Fatalf("CreateBuilder: %v", err)
	}
	if _, err := repo.CreateBuilder(ctx, &models.Builder{Name: "Acme", Slug: "acme"}); err != nil {
		t.Fatalf("CreateBuilder: %v", err)
	}

	b, err := repo.GetBuilderBySlug(ctx, "skyline")
	if err != nil || b == nil || b.ID != id {
		t.Fatalf("GetBuilderBySlug: %#v, %v", b, err)
	}

	list, err := repo.ListBuilders(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListBuilders: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Acme" {
		t.Fatalf("expected builders ordered by name, got %#v", list)
	}

	b.Website = "https://skyline.example.com"
	if err := repo.UpdateBuilder(ctx, b); err != nil {
		t.Fatalf("UpdateBuilder: %v", err)
	}
	b, _ = repo.GetBuilderByID(ctx, id)
	if b.Website != "https://skyline.example.com" {
		t.Fatalf("website not updated")
	}

	if err := repo.DeleteBuilder(ctx, id); err != nil {
		t.Fatalf("DeleteBuilder: %v", err)
	}
	if err := repo.DeleteBuilder(ctx, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func seedProject(t *testing.T, repo *sqlite.SQLiteRepo, p models.Project) int64 {
	t.Helper()
	id, err := repo.CreateProject(context.Background(), &p)
	if err != nil {
		t.Fatalf("CreateProject %s: %v", p.Slug, err)
	}
	return id
}

func TestProjectCreateGetRoundTrip(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	lat, lng := 18.52, 73.85
	id := seedProject(t, repo, models.Project{
		Title:         "Green Acres",
		Slug:          "green-acres",
		Location:      "Baner",
		City:          "Pune",
		PriceText:     "85 Lakhs",
		PriceAmount:   8_500_000,
		PriceUnit:     "lakh",
		Bedrooms:      2,
		Configuration: "2 BHK",
		Images:        []string{"a.jpg", "b.jpg"},
		Amenities:     []string{"Gym"},
		Landmarks:     []models.Landmark{{Name: "Airport"}},
		Latitude:      &lat,
		Longitude:     &lng,
		DraftData:     json.RawMessage(`{"step":3}`),
	})

	p, err := repo.GetProjectByID(ctx, id)
	if err != nil || p == nil {
		t.Fatalf("GetProjectByID: %#v, %v", p, err)
	}
	if p.ApprovalStatus != models.ApprovalPending {
		t.Fatalf("expected pending by default, got %q", p.ApprovalStatus)
	}
	if p.ListingType != models.ListingBuilder || p.Category != "residential" || p.Status != "ongoing" {
		t.Fatalf("unexpected defaults: %q %q %q", p.ListingType, p.Category, p.Status)
	}
	if len(p.Images) != 2 || p.Amenities[0] != "Gym" || p.Landmarks[0].Name != "Airport" {
		t.Fatalf("json columns not decoded: %#v", p)
	}
	if p.FloorPlans == nil || len(p.FloorPlans) != 0 {
		t.Fatalf("expected empty floor plans, got %#v", p.FloorPlans)
	}
	if p.Latitude == nil || *p.Latitude != lat || p.BuilderID != nil {
		t.Fatalf("nullable columns wrong: %#v", p)
	}
	if string(p.DraftData) != `{"step":3}` {
		t.Fatalf("draft data: %s", p.DraftData)
	}

	missing, err := repo.GetProjectBySlug(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing slug")
	}
}

func TestListProjectsFilters(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	bid, err := repo.CreateBuilder(ctx, &models.Builder{Name: "Skyline", Slug: "skyline"})
	if err != nil {
		t.Fatalf("CreateBuilder: %v", err)
	}
	seedProject(t, repo, models.Project{Title: "Green Acres", Slug: "green-acres", City: "Pune", ApprovalStatus: models.ApprovalApproved, BuilderID: &bid, Featured: true})
	seedProject(t, repo, models.Project{Title: "Sea Breeze", Slug: "sea-breeze", Location: "Bandra", City: "Mumbai", ApprovalStatus: models.ApprovalApproved, ListingType: models.ListingRental})
	seedProject(t, repo, models.Project{Title: "Pending Plot", Slug: "pending-plot", City: "Pune", ListingType: models.ListingLand, Category: "plot"})

	tests := []struct {
		name string
		f    models.ProjectFilter
		want int
	}{
		{"all", models.ProjectFilter{}, 3},
		{"approved", models.ProjectFilter{ApprovalStatus: models.ApprovalApproved}, 2},
		{"city case-insensitive", models.ProjectFilter{City: "pune"}, 2},
		{"query on location", models.ProjectFilter{Query: "bandra"}, 1},
		{"listing type", models.ProjectFilter{ListingType: models.ListingLand}, 1},
		{"category", models.ProjectFilter{Category: "plot"}, 1},
		{"builder", models.ProjectFilter{BuilderID: bid}, 1},
		{"featured", models.ProjectFilter{FeaturedOnly: true}, 1},
		{"limit", models.ProjectFilter{Limit: 2}, 2},
		{"offset past end", models.ProjectFilter{Limit: 10, Offset: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListProjects(ctx, tt.f)
			if err != nil {
				t.Fatalf("ListProjects: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("want %d projects, got %d", tt.want, len(got))
			}
		})
	}
}

func TestSetApprovalTransitions(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	id := seedProject(t, repo, models.Project{Title: "A", Slug: "a"})
	other := seedProject(t, repo, models.Project{Title: "B", Slug: "b"})

	if err := repo.SetApproval(ctx, id, models.ApprovalPending, ""); err == nil {
		t.Fatalf("expected error for pending target status")
	}
	if err := repo.SetApproval(ctx, id, models.ApprovalApproved, "ignored"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := repo.SetApproval(ctx, id, models.ApprovalRejected, "late"); !errors.Is(err, repository.ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	p, _ := repo.GetProjectByID(ctx, id)
	if p.ApprovalStatus != models.ApprovalApproved || p.RejectionReason != "" {
		t.Fatalf("unexpected state after approval: %q %q", p.ApprovalStatus, p.RejectionReason)
	}

	if err := repo.SetApproval(ctx, other, models.ApprovalRejected, "blurry photos"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	p, _ = repo.GetProjectByID(ctx, other)
	if p.RejectionReason != "blurry photos" {
		t.Fatalf("reason not stored: %q", p.RejectionReason)
	}

	if err := repo.SetApproval(ctx, 4242, models.ApprovalApproved, ""); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProjectAndLandmarks(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	id := seedProject(t, repo, models.Project{Title: "A", Slug: "a"})
	p, _ := repo.GetProjectByID(ctx, id)
	p.Title = "A Prime"
	p.Status = "ready"
	if err := repo.UpdateProject(ctx, p); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}

	lm := []models.Landmark{{Name: "Station", DistanceKM: 2.5, DurationMin: 9}}
	if err := repo.UpdateLandmarks(ctx, id, lm); err != nil {
		t.Fatalf("UpdateLandmarks: %v", err)
	}
	p, _ = repo.GetProjectByID(ctx, id)
	if p.Title != "A Prime" || p.Status != "ready" || len(p.Landmarks) != 1 || p.Landmarks[0].DistanceKM != 2.5 {
		t.Fatalf("unexpected project after update: %#v", p)
	}

	if err := repo.UpdateProject(ctx, &models.Project{ID: 999, Title: "x", Slug: "x"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteProject(ctx, id); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
}

func TestLeadsAndDashboard(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	pid := seedProject(t, repo, models.Project{Title: "Green Acres", Slug: "green-acres", ApprovalStatus: models.ApprovalApproved})
	seedProject(t, repo, models.Project{Title: "B", Slug: "b"})
	if _, err := repo.CreateBuilder(ctx, &models.Builder{Name: "Skyline", Slug: "skyline"}); err != nil {
		t.Fatalf("CreateBuilder: %v", err)
	}

	if _, err := repo.CreateLead(ctx, &models.Lead{Name: "Meera", Phone: "99999", ProjectID: &pid}); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	lid, err := repo.CreateLead(ctx, &models.Lead{Name: "Kabir", Phone: "88888", Source: "landing"})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}

	all, err := repo.ListLeads(ctx, 0, 0, 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListLeads: %d, %v", len(all), err)
	}
	forProject, _ := repo.ListLeads(ctx, pid, 10, 0)
	if len(forProject) != 1 || forProject[0].ProjectTitle != "Green Acres" || forProject[0].Source != "website" {
		t.Fatalf("unexpected project leads %#v", forProject)
	}

	st, err := repo.DashboardStats(ctx, all[0].Created)
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if st.Projects != 2 || st.ByApproval["approved"] != 1 || st.ByApproval["pending"] != 1 || st.ByApproval["rejected"] != 0 {
		t.Fatalf("unexpected project counts %#v", st)
	}
	if st.Leads != 2 || st.LeadsLast7Days != 2 || st.LeadsLast30Day != 2 || st.Builders != 1 {
		t.Fatalf("unexpected counts %#v", st)
	}

	if err := repo.DeleteLead(ctx, lid); err != nil {
		t.Fatalf("DeleteLead: %v", err)
	}
	if err := repo.DeleteLead(ctx, lid); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFavorites(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	uid, _ := repo.CreateUser(ctx, &models.User{Name: "U", Email: "u@example.com", PasswordHash: "h"})
	pid := seedProject(t, repo, models.Project{Title: "A", Slug: "a", Amenities: []string{"Pool"}})

	for i := 0; i < 2; i++ {
		if err := repo.AddFavorite(ctx, uid, pid); err != nil {
			t.Fatalf("AddFavorite #%d: %v", i, err)
		}
	}
	favs, err := repo.ListFavorites(ctx, uid)
	if err != nil {
		t.Fatalf("ListFavorites: %v", err)
	}
	if len(favs) != 1 || favs[0].Slug != "a" || favs[0].Amenities[0] != "Pool" {
		t.Fatalf("unexpected favorites %#v", favs)
	}

	if err := repo.RemoveFavorite(ctx, uid, pid); err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
	favs, _ = repo.ListFavorites(ctx, uid)
	if len(favs) != 0 {
		t.Fatalf("expected no favorites, got %d", len(favs))
	}
}

func TestSEOPages(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	if p, err := repo.GetSEOPage(ctx, "/"); err != nil || p != nil {
		t.Fatalf("expected nil page, got %#v, %v", p, err)
	}
	if err := repo.UpsertSEOPage(ctx, &models.SEOPage{Path: "/", Title: "Home"}); err != nil {
		t.Fatalf("UpsertSEOPage: %v", err)
	}
	if err := repo.UpsertSEOPage(ctx, &models.SEOPage{Path: "/", Title: "Homes in Pune", Keywords: "pune,flats"}); err != nil {
		t.Fatalf("UpsertSEOPage: %v", err)
	}
	p, _ := repo.GetSEOPage(ctx, "/")
	if p.Title != "Homes in Pune" || p.Keywords != "pune,flats" {
		t.Fatalf("unexpected page %#v", p)
	}
}

func TestSchemasAndTemplates(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	schemas, err := repo.ListSchemas(ctx)
	if err != nil || len(schemas) != 5 {
		t.Fatalf("expected 5 seeded schemas, got %d, %v", len(schemas), err)
	}
	if err := repo.UpsertSchema(ctx, "rental", `{"type":"object"}`); err != nil {
		t.Fatalf("UpsertSchema: %v", err)
	}
	s, err := repo.GetSchema(ctx, "rental")
	if err != nil || s == nil || s.SchemaJSON != `{"type":"object"}` {
		t.Fatalf("GetSchema: %#v, %v", s, err)
	}

	tpl, err := repo.GetTemplate(ctx, "description", "v1")
	if err != nil || tpl == nil {
		t.Fatalf("GetTemplate: %#v, %v", tpl, err)
	}
	if tpl.Metadata == nil {
		t.Fatalf("expected seeded metadata")
	}
	if err := repo.UpsertTemplate(ctx, "description", "v2", "Write about {{.Title}}", nil); err != nil {
		t.Fatalf("UpsertTemplate: %v", err)
	}
	list, err := repo.ListTemplates(ctx)
	if err != nil || len(list) != 3 {
		t.Fatalf("expected 3 templates, got %d, %v", len(list), err)
	}
}

func TestDrafts(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()
	ctx := context.Background()

	if b, err := repo.LoadDraft(ctx, "listing:1"); err != nil || b != nil {
		t.Fatalf("expected nil draft, got %s, %v", b, err)
	}
	if err := repo.SaveDraft(ctx, "listing:1", []byte(`{"step":1}`)); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := repo.SaveDraft(ctx, "listing:1", []byte(`{"step":2}`)); err != nil {
		t.Fatalf("SaveDraft overwrite: %v", err)
	}
	b, err := repo.LoadDraft(ctx, "listing:1")
	if err != nil || string(b) != `{"step":2}` {
		t.Fatalf("LoadDraft: %s, %v", b, err)
	}
	if err := repo.DeleteDraft(ctx, "listing:1"); err != nil {
		t.Fatalf("DeleteDraft: %v", err)
	}
	if b, _ := repo.LoadDraft(ctx, "listing:1"); b != nil {
		t.Fatalf("expected draft removed")
	}
}
