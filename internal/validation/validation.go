// Package validation checks submitted listings against the JSON schema stored
// for their listing type.
package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/garnizeh/realty/pkg/repository"
	"github.com/qri-io/jsonschema"
)

// ErrUnknownListingType is returned when no schema is loaded for a type.
var ErrUnknownListingType = errors.New("unknown listing type")

// FieldError describes one failed constraint. Field is empty for errors that
// apply to the whole document.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Loader loads and caches compiled JSON schemas from the repository, keyed by
// listing type.
type Loader struct {
	repo  repository.SchemaRepo
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func NewLoader(ctx context.Context, r repository.SchemaRepo) (*Loader, error) {
	l := &Loader{
		repo:  r,
		cache: make(map[string]*jsonschema.Schema),
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// GetSchema returns the compiled schema for a listing type.
func (l *Loader) GetSchema(listingType string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[listingType]
	l.mu.RUnlock()

	return s, ok
}

// Types lists the listing types that have a schema, sorted.
func (l *Loader) Types() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.cache))
	for k := range l.cache {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Reload loads all schemas from the DB and compiles them. The previous cache
// stays in place if any schema fails to compile.
func (l *Loader) Reload(ctx context.Context) error {
	rows, err := l.repo.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	newCache := make(map[string]*jsonschema.Schema, len(rows))
	for _, r := range rows {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(r.SchemaJSON), rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", r.ListingType, err)
		}
		newCache[r.ListingType] = rs
	}

	l.mu.Lock()
	l.cache = newCache
	l.mu.Unlock()
	return nil
}

// Validate checks doc against the schema for listingType and returns the
// failed constraints. A nil slice means the document is valid.
func (l *Loader) Validate(ctx context.Context, listingType string, doc map[string]any) ([]FieldError, error) {
	schema, ok := l.GetSchema(listingType)
	if !ok || schema == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownListingType, listingType)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	kerrs, err := schema.ValidateBytes(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("schema validate: %w", err)
	}
	if len(kerrs) == 0 {
		return nil, nil
	}

	out := make([]FieldError, 0, len(kerrs))
	for _, ke := range kerrs {
		out = append(out, FieldError{
			Field:   strings.TrimPrefix(ke.PropertyPath, "/"),
			Message: ke.Message,
		})
	}
	return out, nil
}

// Summary joins field errors into one message.
func Summary(errs []FieldError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Field != "" {
			parts = append(parts, e.Field+": "+e.Message)
			continue
		}
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}
