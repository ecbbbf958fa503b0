// Package graph defines the persistence contract the import pipeline writes
// through: resolve-or-create for spans, connection creation, and an explicit
// unit-of-work boundary. The Neo4j implementation is the reference backend;
// MemoryStore backs tests and offline use.
package graph

import (
	"context"
	"errors"

	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/temporal"
)

// ErrNotFound is returned by lookups when the requested span does not exist.
var ErrNotFound = errors.New("span not found")

// Store is the entry point to span and connection persistence.
type Store interface {
	// Begin opens a unit of work. All writes inside it are atomic: they
	// become visible on Commit and vanish on Rollback.
	Begin(ctx context.Context) (Tx, error)

	// GetSpan retrieves a span by its (name, type) natural key.
	GetSpan(ctx context.Context, name string, t models.SpanType) (*models.Span, error)

	// GetConnections returns the connections in which the span takes part,
	// as subject or object.
	GetConnections(ctx context.Context, spanID string) ([]models.Connection, error)

	// ListSpans returns spans of the given type, or all spans when t is empty.
	ListSpans(ctx context.Context, t models.SpanType) ([]models.Span, error)

	// Stats returns span and connection counts by type.
	Stats(ctx context.Context) (*Stats, error)

	// Close cleans up resources.
	Close(ctx context.Context) error
}

// Tx is one atomic unit of work around an import's persist phase.
type Tx interface {
	// FindSpan looks up a span by natural key, including spans written
	// earlier in this unit of work. Returns ErrNotFound when absent.
	FindSpan(ctx context.Context, name string, t models.SpanType) (*models.Span, error)

	// SaveSpan inserts or updates the span under its natural key,
	// assigning an ID and timestamps on first save.
	SaveSpan(ctx context.Context, span *models.Span) error

	// FindOrCreateConnectedSpan resolves a related span by natural key,
	// creating it when no match exists. Dates and metadata are applied only
	// on creation; created reports whether a new span was made.
	FindOrCreateConnectedSpan(ctx context.Context, name string, t models.SpanType, dates *temporal.Range, metadata map[string]any) (span *models.Span, created bool, err error)

	// CreateConnection creates the dated, directed edge between two spans.
	CreateConnection(ctx context.Context, subject, object *models.Span, ct models.ConnectionType, dates *temporal.Range, metadata map[string]any) (*models.Connection, error)

	// Commit makes the unit of work's writes durable.
	Commit(ctx context.Context) error

	// Rollback discards every write made in this unit of work.
	Rollback(ctx context.Context) error
}

// Stats summarizes graph contents.
type Stats struct {
	TotalSpans        int64            `json:"total_spans"`
	TotalConnections  int64            `json:"total_connections"`
	SpansByType       map[string]int64 `json:"spans_by_type"`
	ConnectionsByType map[string]int64 `json:"connections_by_type"`
}
