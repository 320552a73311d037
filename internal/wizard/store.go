package wizard

import (
	"context"
	"fmt"
	"sync"

	"github.com/garnizeh/realty/pkg/repository"
)

// Persister stores serialized wizard state. Load returns nil when nothing is
// stored under key.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Store couples a wizard state with the persister that keeps it across
// requests. Every successful dispatch is saved before it becomes visible.
type Store struct {
	mu        sync.Mutex
	key       string
	state     State
	persister Persister
}

// Open loads the state stored under key, or starts a fresh one of kind when
// none exists. A stored state of a different kind is an error.
func Open(ctx context.Context, p Persister, key string, kind Kind) (*Store, error) {
	st, err := NewState(kind)
	if err != nil {
		return nil, err
	}
	b, err := p.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load wizard %s: %w", key, err)
	}
	if b != nil {
		loaded, err := Unmarshal(b)
		if err != nil {
			return nil, err
		}
		if loaded.Kind != kind {
			return nil, fmt.Errorf("%w: stored %q, want %q", ErrUnknownKind, loaded.Kind, kind)
		}
		st = loaded
	}
	return &Store{key: key, state: st, persister: p}, nil
}

// Exists reports whether a state is stored under key.
func Exists(ctx context.Context, p Persister, key string) (bool, error) {
	b, err := p.Load(ctx, key)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

func (s *Store) Key() string { return s.key }

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Form = s.state.Form.clone()
	return st
}

// Dispatch reduces a into the current state and persists the result. On any
// error the state is left unchanged.
func (s *Store) Dispatch(ctx context.Context, a Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, a)
	if err != nil {
		return s.state, err
	}
	if err := s.save(ctx, next); err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}

// Save persists the current state without changing it.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, s.state)
}

// Discard removes the persisted copy.
func (s *Store) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persister.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete wizard %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, st State) error {
	b, err := Marshal(st)
	if err != nil {
		return err
	}
	if err := s.persister.Save(ctx, s.key, b); err != nil {
		return fmt.Errorf("save wizard %s: %w", s.key, err)
	}
	return nil
}

// MemoryPersister keeps states in process memory.
type MemoryPersister struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: map[string][]byte{}}
}

func (m *MemoryPersister) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryPersister) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(data))
	copy(b, data)
	m.data[key] = b
	return nil
}

func (m *MemoryPersister) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// RepoPersister stores states in the wizard_drafts table.
type RepoPersister struct {
	repo repository.DraftRepo
}

func NewRepoPersister(r repository.DraftRepo) *RepoPersister {
	return &RepoPersister{repo: r}
}

func (p *RepoPersister) Load(ctx context.Context, key string) ([]byte, error) {
	return p.repo.LoadDraft(ctx, key)
}

func (p *RepoPersister) Save(ctx context.Context, key string, data []byte) error {
	return p.repo.SaveDraft(ctx, key, data)
}

func (p *RepoPersister) Delete(ctx context.Context, key string) error {
	return p.repo.DeleteDraft(ctx, key)
}
