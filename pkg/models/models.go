package models

import "encoding/json"

// Domain models matching the database schema in db/migrations.

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type ListingType string

const (
	ListingBuilder    ListingType = "builder"
	ListingResale     ListingType = "resale"
	ListingRental     ListingType = "rental"
	ListingCommercial ListingType = "commercial"
	ListingLand       ListingType = "land"
)

// Valid reports whether t is one of the known listing types.
func (t ListingType) Valid() bool {
	switch t {
	case ListingBuilder, ListingResale, ListingRental, ListingCommercial, ListingLand:
		return true
	}
	return false
}

type User struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name" validate:"required"`
	Email        string `json:"email" db:"email" validate:"required,email"`
	Phone        string `json:"phone,omitempty" db:"phone"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
	Updated      int64  `json:"updated" db:"updated"`
}

type Profile struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"user_id" db:"user_id"`
	Preferences json.RawMessage `json:"preferences" db:"preferences"`
	Updated     int64           `json:"updated" db:"updated"`
}

type Admin struct {
	ID           int64  `json:"id" db:"id"`
	Email        string `json:"email" db:"email"`
	Name         string `json:"name" db:"name"`
	Role         string `json:"role" db:"role"`
	PasswordHash string `json:"-" db:"password_hash"`
	Updated      int64  `json:"updated" db:"updated"`
}

type Builder struct {
	ID              int64  `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	Slug            string `json:"slug" db:"slug"`
	LogoURL         string `json:"logo_url,omitempty" db:"logo_url"`
	Description     string `json:"description,omitempty" db:"description"`
	Email           string `json:"email,omitempty" db:"email"`
	Phone           string `json:"phone,omitempty" db:"phone"`
	Website         string `json:"website,omitempty" db:"website"`
	EstablishedYear int    `json:"established_year,omitempty" db:"established_year"`
	TotalProjects   int    `json:"total_projects" db:"total_projects"`
	Created         int64  `json:"created" db:"created"`
	Updated         int64  `json:"updated" db:"updated"`
}

// Landmark is a named point near a project with its travel distance.
type Landmark struct {
	Name        string  `json:"name"`
	DistanceKM  float64 `json:"distance_km,omitempty"`
	DurationMin float64 `json:"duration_min,omitempty"`
}

type FloorPlan struct {
	Label    string `json:"label"`
	ImageURL string `json:"image_url"`
	Area     string `json:"area,omitempty"`
}

// Project is a property listing shown to site visitors.
type Project struct {
	ID              int64           `json:"id" db:"id"`
	Title           string          `json:"title" db:"title"`
	Slug            string          `json:"slug" db:"slug"`
	Description     string          `json:"description,omitempty" db:"description"`
	Location        string          `json:"location" db:"location"`
	City            string          `json:"city,omitempty" db:"city"`
	PriceText       string          `json:"price" db:"price_text"`
	PriceAmount     int64           `json:"price_amount" db:"price_amount"`
	PriceUnit       string          `json:"price_unit" db:"price_unit"`
	Bedrooms        int             `json:"bedrooms,omitempty" db:"bedrooms"`
	Configuration   string          `json:"configuration,omitempty" db:"configuration"`
	ListingType     ListingType     `json:"listing_type" db:"listing_type"`
	Category        string          `json:"category" db:"category"`
	Status          string          `json:"status" db:"status"`
	ApprovalStatus  ApprovalStatus  `json:"approval_status" db:"approval_status"`
	RejectionReason string          `json:"rejection_reason,omitempty" db:"rejection_reason"`
	BuilderID       *int64          `json:"builder_id,omitempty" db:"builder_id"`
	SubmittedBy     *int64          `json:"submitted_by,omitempty" db:"submitted_by"`
	Images          []string        `json:"images" db:"images"`
	Amenities       []string        `json:"amenities" db:"amenities"`
	FloorPlans      []FloorPlan     `json:"floor_plans" db:"floor_plans"`
	Latitude        *float64        `json:"latitude,omitempty" db:"latitude"`
	Longitude       *float64        `json:"longitude,omitempty" db:"longitude"`
	Pincode         string          `json:"pincode,omitempty" db:"pincode"`
	Area            string          `json:"area,omitempty" db:"area"`
	Landmarks       []Landmark      `json:"landmarks" db:"landmarks"`
	DraftData       json.RawMessage `json:"draft_data,omitempty" db:"draft_data"`
	SEOTitle        string          `json:"seo_title,omitempty" db:"seo_title"`
	SEODescription  string          `json:"seo_description,omitempty" db:"seo_description"`
	Featured        bool            `json:"featured" db:"featured"`
	Created         int64           `json:"created" db:"created"`
	Updated         int64           `json:"updated" db:"updated"`
}

// ProjectFilter narrows project listings. Zero values mean "any".
type ProjectFilter struct {
	Query          string
	ListingType    ListingType
	Category       string
	City           string
	Status         string
	BuilderID      int64
	SubmittedBy    int64
	ApprovalStatus ApprovalStatus
	FeaturedOnly   bool
	Limit          int
	Offset         int
}

type Lead struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Phone     string `json:"phone" db:"phone"`
	Email     string `json:"email,omitempty" db:"email"`
	ProjectID *int64 `json:"project_id,omitempty" db:"project_id"`
	Message   string `json:"message,omitempty" db:"message"`
	Source    string `json:"source" db:"source"`
	Created   int64  `json:"created" db:"created"`

	// ProjectTitle is joined in for listings and exports.
	ProjectTitle string `json:"project_title,omitempty" db:"-"`
}

type SEOPage struct {
	ID          int64  `json:"id" db:"id"`
	Path        string `json:"path" db:"path"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Keywords    string `json:"keywords" db:"keywords"`
	Updated     int64  `json:"updated" db:"updated"`
}

type ListingSchema struct {
	ID          int64  `json:"id" db:"id"`
	ListingType string `json:"listing_type" db:"listing_type"`
	SchemaJSON  string `json:"schema_json" db:"schema_json"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

type Template struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Version     string  `json:"version" db:"version"`
	TemplateTxt string  `json:"template_text" db:"template_text"`
	Metadata    *string `json:"metadata,omitempty" db:"metadata"`
	Created     int64   `json:"created" db:"created"`
	Updated     int64   `json:"updated" db:"updated"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	Projects       int64            `json:"projects"`
	ByApproval     map[string]int64 `json:"by_approval"`
	Builders       int64            `json:"builders"`
	Leads          int64            `json:"leads"`
	LeadsLast7Days int64            `json:"leads_last_7_days"`
	LeadsLast30Day int64            `json:"leads_last_30_days"`
	Users          int64            `json:"users"`
}
