package models

import (
	"time"

	"github.com/spangraph/spangraph/internal/temporal"
)

// ConnectionType classifies a dated relationship between two spans.
type ConnectionType string

const (
	ConnectionMembership   ConnectionType = "membership"
	ConnectionEmployment   ConnectionType = "employment"
	ConnectionFamily       ConnectionType = "family"
	ConnectionEducation    ConnectionType = "education"
	ConnectionResidence    ConnectionType = "residence"
	ConnectionRelationship ConnectionType = "relationship"
)

// ValidConnectionTypes is the set of all valid connection types.
var ValidConnectionTypes = []ConnectionType{
	ConnectionMembership,
	ConnectionEmployment,
	ConnectionFamily,
	ConnectionEducation,
	ConnectionResidence,
	ConnectionRelationship,
}

// IsValid returns true if the connection type is recognized.
func (ct ConnectionType) IsValid() bool {
	for i := range ValidConnectionTypes {
		if ct == ValidConnectionTypes[i] {
			return true
		}
	}
	return false
}

// Connection is a directed, typed edge between two spans. Directionality is
// semantically meaningful per type: for family the parent is the subject and
// the child is the object. A connection with no dates is not an error state;
// it is a deliberately incomplete fact awaiting later enrichment.
type Connection struct {
	ID        string         `json:"id"`
	SubjectID string         `json:"subject_id"`
	ObjectID  string         `json:"object_id"`
	Type      ConnectionType `json:"type"`
	Start     *temporal.Date `json:"start,omitempty"`
	End       *temporal.Date `json:"end,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
