package wizard

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/garnizeh/realty/pkg/models"
)

// Action is one of NextStep, PrevStep, UpdateForm, SetListingType, Reset or
// SetDraftID.
type Action interface {
	isAction()
}

type NextStep struct{}

type PrevStep struct{}

// UpdateForm merges Patch, a JSON object, into the form. Keys absent from the
// patch keep their current values.
type UpdateForm struct {
	Patch json.RawMessage
}

type SetListingType struct {
	ListingType string
}

type Reset struct{}

type SetDraftID struct {
	ID string
}

func (NextStep) isAction()       {}
func (PrevStep) isAction()       {}
func (UpdateForm) isAction()     {}
func (SetListingType) isAction() {}
func (Reset) isAction()          {}
func (SetDraftID) isAction()     {}

// Reduce returns the state that results from applying a to s. The input state
// is never modified.
func Reduce(s State, a Action) (State, error) {
	names, ok := steps[s.Kind]
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	next := s
	next.Form = s.Form.clone()

	switch act := a.(type) {
	case NextStep:
		if next.Step < len(names) {
			next.Step++
		}
	case PrevStep:
		if next.Step > 1 {
			next.Step--
		}
	case UpdateForm:
		patch := bytes.TrimSpace(act.Patch)
		if len(patch) == 0 || patch[0] != '{' {
			return s, fmt.Errorf("%w: form update must be a JSON object", ErrInvalidAction)
		}
		if err := json.Unmarshal(patch, &next.Form); err != nil {
			return s, fmt.Errorf("%w: merge form: %v", ErrInvalidAction, err)
		}
	case SetListingType:
		if !models.ListingType(act.ListingType).Valid() {
			return s, fmt.Errorf("%w: unknown listing type %q", ErrInvalidAction, act.ListingType)
		}
		next.ListingType = act.ListingType
	case Reset:
		next = State{Kind: s.Kind, Step: 1}
	case SetDraftID:
		next.DraftID = act.ID
	default:
		return s, fmt.Errorf("unsupported action %T", a)
	}

	if next.Step < 1 {
		next.Step = 1
	}
	if next.Step > len(names) {
		next.Step = len(names)
	}
	next.TotalSteps = len(names)
	next.StepName = names[next.Step-1]
	return next, nil
}
