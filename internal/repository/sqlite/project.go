package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

const projectColumns = `id, title, slug, description, location, city, price_text, price_amount, price_unit, bedrooms, configuration, listing_type, category, status, approval_status, rejection_reason, builder_id, submitted_by, images, amenities, floor_plans, latitude, longitude, pincode, area, landmarks, draft_data, seo_title, seo_description, featured, created, updated`

// projectArgs returns the values for every writable column in projectColumns
// order, skipping id, created and updated.
func projectArgs(p *models.Project) ([]any, error) {
	images, err := jsonText(p.Images)
	if err != nil {
		return nil, fmt.Errorf("encode images: %w", err)
	}
	amenities, err := jsonText(p.Amenities)
	if err != nil {
		return nil, fmt.Errorf("encode amenities: %w", err)
	}
	plans, err := jsonText(p.FloorPlans)
	if err != nil {
		return nil, fmt.Errorf("encode floor plans: %w", err)
	}
	landmarks, err := jsonText(p.Landmarks)
	if err != nil {
		return nil, fmt.Errorf("encode landmarks: %w", err)
	}
	var draft any
	if len(p.DraftData) > 0 {
		draft = string(p.DraftData)
	}
	approval := p.ApprovalStatus
	if approval == "" {
		approval = models.ApprovalPending
	}
	listingType := p.ListingType
	if listingType == "" {
		listingType = models.ListingBuilder
	}
	unit := p.PriceUnit
	if unit == "" {
		unit = "rupee"
	}
	category := p.Category
	if category == "" {
		category = "residential"
	}
	status := p.Status
	if status == "" {
		status = "ongoing"
	}
	featured := 0
	if p.Featured {
		featured = 1
	}

	return []any{
		p.Title, p.Slug, p.Description, p.Location, p.City, p.PriceText, p.PriceAmount, unit, p.Bedrooms,
		p.Configuration, string(listingType), category, status, string(approval), p.RejectionReason,
		p.BuilderID, p.SubmittedBy, images, amenities, plans, p.Latitude, p.Longitude, p.Pincode, p.Area,
		landmarks, draft, p.SEOTitle, p.SEODescription, featured,
	}, nil
}

func (r *SQLiteRepo) CreateProject(ctx context.Context, p *models.Project) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("project is nil")
	}
	args, err := projectArgs(p)
	if err != nil {
		return 0, err
	}
	ts := now()
	args = append(args, ts, ts)

	res, err := r.conn.Exec(ctx, `INSERT INTO projects (title, slug, description, location, city, price_text, price_amount, price_unit, bedrooms, configuration, listing_type, category, status, approval_status, rejection_reason, builder_id, submitted_by, images, amenities, floor_plans, latitude, longitude, pincode, area, landmarks, draft_data, seo_title, seo_description, featured, created, updated) VALUES (`+placeholders(31)+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetProjectByID(ctx context.Context, id int64) (*models.Project, error) {
	p, err := r.scanProject(r.conn.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *SQLiteRepo) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	p, err := r.scanProject(r.conn.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListProjects applies the column filters in SQL, newest first. A zero Limit
// returns every match.
func (r *SQLiteRepo) ListProjects(ctx context.Context, f models.ProjectFilter) ([]models.Project, error) {
	var where []string
	var args []any

	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(location) LIKE ?)")
		args = append(args, like, like)
	}
	if f.ListingType != "" {
		where = append(where, "listing_type = ?")
		args = append(args, string(f.ListingType))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.City != "" {
		where = append(where, "LOWER(city) = ?")
		args = append(args, strings.ToLower(f.City))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.BuilderID > 0 {
		where = append(where, "builder_id = ?")
		args = append(args, f.BuilderID)
	}
	if f.SubmittedBy > 0 {
		where = append(where, "submitted_by = ?")
		args = append(args, f.SubmittedBy)
	}
	if f.ApprovalStatus != "" {
		where = append(where, "approval_status = ?")
		args = append(args, string(f.ApprovalStatus))
	}
	if f.FeaturedOnly {
		where = append(where, "featured = 1")
	}

	q := `SELECT ` + projectColumns + ` FROM projects`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created DESC, id DESC LIMIT ? OFFSET ?`
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, f.Offset)

	return r.queryProjects(ctx, q, args...)
}

func (r *SQLiteRepo) UpdateProject(ctx context.Context, p *models.Project) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}
	args, err := projectArgs(p)
	if err != nil {
		return err
	}
	args = append(args, now(), p.ID)

	res, err := r.conn.Exec(ctx, `UPDATE projects SET title = ?, slug = ?, description = ?, location = ?, city = ?, price_text = ?, price_amount = ?, price_unit = ?, bedrooms = ?, configuration = ?, listing_type = ?, category = ?, status = ?, approval_status = ?, rejection_reason = ?, builder_id = ?, submitted_by = ?, images = ?, amenities = ?, floor_plans = ?, latitude = ?, longitude = ?, pincode = ?, area = ?, landmarks = ?, draft_data = ?, seo_title = ?, seo_description = ?, featured = ?, updated = ? WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return affectedOrNotFound(res)
}

func (r *SQLiteRepo) DeleteProject(ctx context.Context, id int64) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// SetApproval is a single conditional update so two concurrent decisions
// cannot both succeed.
func (r *SQLiteRepo) SetApproval(ctx context.Context, id int64, status models.ApprovalStatus, reason string) error {
	if status != models.ApprovalApproved && status != models.ApprovalRejected {
		return fmt.Errorf("invalid approval status %q", status)
	}
	if status == models.ApprovalApproved {
		reason = ""
	}

	res, err := r.conn.Exec(ctx, `UPDATE projects SET approval_status = ?, rejection_reason = ?, updated = ? WHERE id = ? AND approval_status = 'pending'`, string(status), reason, now(), id)
	if err != nil {
		return fmt.Errorf("set approval: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM projects WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrNotPending
}

func (r *SQLiteRepo) UpdateLandmarks(ctx context.Context, id int64, landmarks []models.Landmark) error {
	text, err := jsonText(landmarks)
	if err != nil {
		return fmt.Errorf("encode landmarks: %w", err)
	}
	res, err := r.conn.Exec(ctx, `UPDATE projects SET landmarks = ?, updated = ? WHERE id = ?`, text, now(), id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r *SQLiteRepo) queryProjects(ctx context.Context, q string, args ...any) ([]models.Project, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	out := []models.Project{}
	for rows.Next() {
		p, err := r.scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) scanProject(s scanner) (*models.Project, error) {
	var (
		p                                   models.Project
		listingType, approval               string
		builderID, submittedBy              sql.NullInt64
		lat, lng                            sql.NullFloat64
		images, amenities, plans, landmarks string
		draft                               sql.NullString
		featured                            int
	)
	err := s.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Location, &p.City, &p.PriceText, &p.PriceAmount, &p.PriceUnit,
		&p.Bedrooms, &p.Configuration, &listingType, &p.Category, &p.Status, &approval, &p.RejectionReason,
		&builderID, &submittedBy, &images, &amenities, &plans, &lat, &lng, &p.Pincode, &p.Area, &landmarks, &draft,
		&p.SEOTitle, &p.SEODescription, &featured, &p.Created, &p.Updated)
	if err != nil {
		return nil, err
	}

	p.ListingType = models.ListingType(listingType)
	p.ApprovalStatus = models.ApprovalStatus(approval)
	p.Featured = featured != 0
	if builderID.Valid {
		v := builderID.Int64
		p.BuilderID = &v
	}
	if submittedBy.Valid {
		v := submittedBy.Int64
		p.SubmittedBy = &v
	}
	if lat.Valid {
		v := lat.Float64
		p.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		p.Longitude = &v
	}
	if draft.Valid && draft.String != "" {
		p.DraftData = json.RawMessage(draft.String)
	}

	r.decodeList(p.ID, "images", images, &p.Images)
	r.decodeList(p.ID, "amenities", amenities, &p.Amenities)
	r.decodeList(p.ID, "floor_plans", plans, &p.FloorPlans)
	r.decodeList(p.ID, "landmarks", landmarks, &p.Landmarks)
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	if p.FloorPlans == nil {
		p.FloorPlans = []models.FloorPlan{}
	}
	if p.Landmarks == nil {
		p.Landmarks = []models.Landmark{}
	}

	return &p, nil
}

// decodeList tolerates malformed legacy JSON: the column is logged and left empty.
func (r *SQLiteRepo) decodeList(id int64, column, text string, dst any) {
	if text == "" {
		return
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		r.logger.Warn("malformed json column", "project_id", id, "column", column, "err", err)
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
