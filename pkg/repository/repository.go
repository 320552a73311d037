package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/realty/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Lookups that find nothing return (nil, nil).

// ErrNotPending is returned when an approval decision targets a listing that
// is no longer pending.
var ErrNotPending = errors.New("listing is not pending approval")

// ErrNotFound is returned by mutations whose target row does not exist.
var ErrNotFound = errors.New("not found")

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
}

type ProfileRepo interface {
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error
}

type AdminRepo interface {
	CreateAdmin(ctx context.Context, a *models.Admin) (int64, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	UpdateAdminPassword(ctx context.Context, email, passwordHash string) error
}

type BuilderRepo interface {
	CreateBuilder(ctx context.Context, b *models.Builder) (int64, error)
	GetBuilderByID(ctx context.Context, id int64) (*models.Builder, error)
	GetBuilderBySlug(ctx context.Context, slug string) (*models.Builder, error)
	ListBuilders(ctx context.Context, limit, offset int) ([]models.Builder, error)
	UpdateBuilder(ctx context.Context, b *models.Builder) error
	DeleteBuilder(ctx context.Context, id int64) error
}

type ProjectRepo interface {
	CreateProject(ctx context.Context, p *models.Project) (int64, error)
	GetProjectByID(ctx context.Context, id int64) (*models.Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error)
	ListProjects(ctx context.Context, f models.ProjectFilter) ([]models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id int64) error
	// SetApproval moves a pending listing to approved or rejected. Any other
	// current state yields ErrNotPending.
	SetApproval(ctx context.Context, id int64, status models.ApprovalStatus, reason string) error
	UpdateLandmarks(ctx context.Context, id int64, landmarks []models.Landmark) error
}

type LeadRepo interface {
	CreateLead(ctx context.Context, l *models.Lead) (int64, error)
	ListLeads(ctx context.Context, projectID int64, limit, offset int) ([]models.Lead, error)
	DeleteLead(ctx context.Context, id int64) error
}

type FavoriteRepo interface {
	AddFavorite(ctx context.Context, userID, projectID int64) error
	RemoveFavorite(ctx context.Context, userID, projectID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]models.Project, error)
}

type SEORepo interface {
	GetSEOPage(ctx context.Context, path string) (*models.SEOPage, error)
	UpsertSEOPage(ctx context.Context, p *models.SEOPage) error
}

type DashboardRepo interface {
	DashboardStats(ctx context.Context, now int64) (*models.DashboardStats, error)
}

type SchemaRepo interface {
	GetSchema(ctx context.Context, listingType string) (*models.ListingSchema, error)
	ListSchemas(ctx context.Context) ([]models.ListingSchema, error)
	UpsertSchema(ctx context.Context, listingType, schemaJSON string) error
}

type TemplateRepo interface {
	GetTemplate(ctx context.Context, name, version string) (*models.Template, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
	UpsertTemplate(ctx context.Context, name, version, templateText string, metadata *string) error
}

// DraftRepo stores serialized wizard state keyed by draft key.
type DraftRepo interface {
	SaveDraft(ctx context.Context, key string, state []byte) error
	LoadDraft(ctx context.Context, key string) ([]byte, error)
	DeleteDraft(ctx context.Context, key string) error
}
