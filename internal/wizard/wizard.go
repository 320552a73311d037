// Package wizard holds the state of the multi-step listing forms: the
// admin-assisted listing wizard and the public submission wizard.
package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned for a wizard kind other than listing or submission.
var ErrUnknownKind = errors.New("unknown wizard kind")

// ErrInvalidAction is returned when an action carries unusable input.
var ErrInvalidAction = errors.New("invalid wizard action")

type Kind string

const (
	KindListing    Kind = "listing"
	KindSubmission Kind = "submission"
)

var steps = map[Kind][]string{
	KindListing:    {"type", "basics", "location", "details", "media", "review"},
	KindSubmission: {"type", "basics", "location", "details", "contact"},
}

// Steps returns the ordered step names of a wizard kind.
func Steps(kind Kind) ([]string, error) {
	s, ok := steps[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// State is the serializable wizard state. Step is 1-based.
type State struct {
	Kind        Kind     `json:"kind"`
	Step        int      `json:"step"`
	TotalSteps  int      `json:"total_steps"`
	StepName    string   `json:"step_name"`
	ListingType string   `json:"listing_type,omitempty"`
	Form        FormData `json:"form"`
	DraftID     string   `json:"draft_id,omitempty"`
}

// NewState returns the initial state for kind.
func NewState(kind Kind) (State, error) {
	s, ok := steps[kind]
	if !ok {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return State{Kind: kind, Step: 1, TotalSteps: len(s), StepName: s[0]}, nil
}

// FormData is one record holding every field any listing type can use. Only
// the subset relevant to ListingType is filled in practice.
type FormData struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Status      string   `json:"status,omitempty"`
	Location    string   `json:"location,omitempty"`
	City        string   `json:"city,omitempty"`
	Area        string   `json:"area,omitempty"`
	Pincode     string   `json:"pincode,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Landmarks   []string `json:"landmarks,omitempty"`

	Price         string `json:"price,omitempty"`
	Configuration string `json:"configuration,omitempty"`
	Bedrooms      int    `json:"bedrooms,omitempty"`

	// builder / new projects
	BuilderName    string `json:"builder_name,omitempty"`
	BuilderID      int64  `json:"builder_id,omitempty"`
	RERANumber     string `json:"rera_number,omitempty"`
	TotalUnits     int    `json:"total_units,omitempty"`
	PossessionDate string `json:"possession_date,omitempty"`

	// resale
	PropertyAge string `json:"property_age,omitempty"`
	Floor       int    `json:"floor,omitempty"`
	TotalFloors int    `json:"total_floors,omitempty"`
	Facing      string `json:"facing,omitempty"`
	Furnishing  string `json:"furnishing,omitempty"`
	Parking     string `json:"parking,omitempty"`

	// rental
	MonthlyRent      string `json:"monthly_rent,omitempty"`
	SecurityDeposit  string `json:"security_deposit,omitempty"`
	AvailableFrom    string `json:"available_from,omitempty"`
	TenantPreference string `json:"tenant_preference,omitempty"`

	// commercial and land
	CommercialType   string `json:"commercial_type,omitempty"`
	SuperBuiltupArea string `json:"super_builtup_area,omitempty"`
	Washrooms        int    `json:"washrooms,omitempty"`
	PlotArea         string `json:"plot_area,omitempty"`

	Amenities  []string `json:"amenities,omitempty"`
	Images     []string `json:"images,omitempty"`
	FloorPlans []string `json:"floor_plans,omitempty"`

	ContactName  string `json:"contact_name,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

func (f FormData) clone() FormData {
	c := f
	c.Landmarks = cloneStrings(f.Landmarks)
	c.Amenities = cloneStrings(f.Amenities)
	c.Images = cloneStrings(f.Images)
	c.FloorPlans = cloneStrings(f.FloorPlans)
	if f.Latitude != nil {
		v := *f.Latitude
		c.Latitude = &v
	}
	if f.Longitude != nil {
		v := *f.Longitude
		c.Longitude = &v
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Document returns the form as a generic JSON object for schema validation.
// Empty fields are absent.
func (f FormData) Document() (map[string]any, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Marshal serializes the state for a Persister.
func Marshal(s State) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal restores a state produced by Marshal.
func Unmarshal(b []byte) (State, error) {
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("decode wizard state: %w", err)
	}
	if _, ok := steps[s.Kind]; !ok {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	return s, nil
}
