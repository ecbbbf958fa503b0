package models

import (
	"time"

	"github.com/spangraph/spangraph/internal/temporal"
)

// SpanType classifies the kind of entity a span represents.
type SpanType string

const (
	SpanTypePerson       SpanType = "person"
	SpanTypeOrganisation SpanType = "organisation"
	SpanTypeBand         SpanType = "band"
	SpanTypePlace        SpanType = "place"
)

// ValidSpanTypes is the set of all valid span types.
var ValidSpanTypes = []SpanType{
	SpanTypePerson,
	SpanTypeOrganisation,
	SpanTypeBand,
	SpanTypePlace,
}

// IsValid returns true if the span type is recognized.
func (st SpanType) IsValid() bool {
	for i := range ValidSpanTypes {
		if st == ValidSpanTypes[i] {
			return true
		}
	}
	return false
}

// SpanState tracks how much is known about a span's temporal extent.
type SpanState string

const (
	// StatePlaceholder marks a span with no known start date yet.
	StatePlaceholder SpanState = "placeholder"
	// StateComplete marks a span whose start date has been recorded.
	StateComplete SpanState = "complete"
)

// Span is a persisted, typed, temporally-bounded entity node.
// Its identity key is (Name, Type); everything else is mutable.
type Span struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      SpanType       `json:"type"`
	State     SpanState      `json:"state"`
	Start     *temporal.Date `json:"start,omitempty"`
	End       *temporal.Date `json:"end,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	OwnerID   string         `json:"owner_id,omitempty"`
	UpdaterID string         `json:"updater_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Key returns the natural identity key of the span.
func (s *Span) Key() SpanKey {
	return SpanKey{Name: s.Name, Type: s.Type}
}

// SpanKey is the (name, type) natural key spans are resolved by.
type SpanKey struct {
	Name string   `json:"name"`
	Type SpanType `json:"type"`
}

// ApplyStart records a start date on the span and advances its state.
// The placeholder→complete transition happens exactly once; a span never
// reverts to placeholder, and a nil date leaves both fields untouched.
func (s *Span) ApplyStart(d *temporal.Date) {
	if d == nil {
		return
	}
	s.Start = d
	if s.State != StateComplete {
		s.State = StateComplete
	}
}

// ApplyEnd records an end date on the span. End dates carry no state change.
func (s *Span) ApplyEnd(d *temporal.Date) {
	if d == nil {
		return
	}
	s.End = d
}

// MergeMetadata adds the given keys into the span's metadata bag.
// Existing keys are overwritten; the identity key never lives here.
func (s *Span) MergeMetadata(meta map[string]any) {
	if len(meta) == 0 {
		return
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]any, len(meta))
	}
	for k, v := range meta {
		s.Metadata[k] = v
	}
}
