package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/garnizeh/realty/pkg/models"
	"github.com/garnizeh/realty/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Users    *mockUserRepo
	Projects *mockProjectRepo
	Leads    *mockLeadRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Users:    &mockUserRepo{byID: map[int64]*models.User{}},
		Projects: &mockProjectRepo{byID: map[int64]*models.Project{}},
		Leads:    &mockLeadRepo{},
	}
}

var (
	_ repository.UserRepo    = (*mockUserRepo)(nil)
	_ repository.ProjectRepo = (*mockProjectRepo)(nil)
	_ repository.LeadRepo    = (*mockLeadRepo)(nil)
)

type mockUserRepo struct {
	mu        sync.Mutex
	byID      map[int64]*models.User
	nextID    int64
	CreateErr error
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *u
	cp.ID = m.nextID
	m.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

type mockProjectRepo struct {
	mu     sync.Mutex
	byID   map[int64]*models.Project
	nextID int64
	// Err, when set, is returned by every call.
	Err error
}

func (m *mockProjectRepo) CreateProject(ctx context.Context, p *models.Project) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	cp := *p
	cp.ID = m.nextID
	if cp.ApprovalStatus == "" {
		cp.ApprovalStatus = models.ApprovalPending
	}
	m.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (m *mockProjectRepo) GetProjectByID(ctx context.Context, id int64) (*models.Project, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *mockProjectRepo) GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// ListProjects honours the approval status and listing type filters only.
func (m *mockProjectRepo) ListProjects(ctx context.Context, f models.ProjectFilter) ([]models.Project, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Project
	for _, p := range m.byID {
		if f.ApprovalStatus != "" && p.ApprovalStatus != f.ApprovalStatus {
			continue
		}
		if f.ListingType != "" && p.ListingType != f.ListingType {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockProjectRepo) UpdateProject(ctx context.Context, p *models.Project) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockProjectRepo) DeleteProject(ctx context.Context, id int64) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockProjectRepo) SetApproval(ctx context.Context, id int64, status models.ApprovalStatus, reason string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.ApprovalStatus != models.ApprovalPending {
		return repository.ErrNotPending
	}
	p.ApprovalStatus = status
	p.RejectionReason = reason
	return nil
}

func (m *mockProjectRepo) UpdateLandmarks(ctx context.Context, id int64, landmarks []models.Landmark) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Landmarks = landmarks
	return nil
}

type mockLeadRepo struct {
	mu        sync.Mutex
	Stored    []models.Lead
	CreateErr error
}

func (m *mockLeadRepo) CreateLead(ctx context.Context, l *models.Lead) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	cp.ID = int64(len(m.Stored) + 1)
	m.Stored = append(m.Stored, cp)
	return cp.ID, nil
}

func (m *mockLeadRepo) ListLeads(ctx context.Context, projectID int64, limit, offset int) ([]models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Lead
	for _, l := range m.Stored {
		if projectID != 0 && (l.ProjectID == nil || *l.ProjectID != projectID) {
			continue
		}
		out = append(out, l)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockLeadRepo) DeleteLead(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.Stored {
		if l.ID == id {
			m.Stored = append(m.Stored[:i], m.Stored[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
