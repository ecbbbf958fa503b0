package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/temporal"
)

// MemoryStore is an in-memory implementation of Store. Units of work stage
// their writes and apply them on Commit, so rollback is a plain discard.
type MemoryStore struct {
	mu          sync.RWMutex
	spans       map[models.SpanKey]*models.Span
	connections []*models.Connection
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		spans: make(map[models.SpanKey]*models.Span),
	}
}

// Begin opens a staged unit of work over the store.
func (m *MemoryStore) Begin(_ context.Context) (Tx, error) {
	return &memoryTx{
		store:  m,
		staged: make(map[models.SpanKey]*models.Span),
	}, nil
}

// GetSpan retrieves a committed span by natural key.
func (m *MemoryStore) GetSpan(_ context.Context, name string, t models.SpanType) (*models.Span, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	span, ok := m.spans[models.SpanKey{Name: name, Type: t}]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, name, t)
	}
	return copySpan(span), nil
}

// GetConnections returns committed connections touching the given span.
func (m *MemoryStore) GetConnections(_ context.Context, spanID string) ([]models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Connection
	for _, c := range m.connections {
		if c.SubjectID == spanID || c.ObjectID == spanID {
			out = append(out, *c)
		}
	}
	return out, nil
}

// ListSpans returns committed spans of the given type, or all for "".
func (m *MemoryStore) ListSpans(_ context.Context, t models.SpanType) ([]models.Span, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Span
	for _, s := range m.spans {
		if t != "" && s.Type != t {
			continue
		}
		out = append(out, *copySpan(s))
	}
	return out, nil
}

// Stats counts committed spans and connections by type.
func (m *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &Stats{
		TotalSpans:        int64(len(m.spans)),
		TotalConnections:  int64(len(m.connections)),
		SpansByType:       make(map[string]int64),
		ConnectionsByType: make(map[string]int64),
	}
	for _, s := range m.spans {
		stats.SpansByType[string(s.Type)]++
	}
	for _, c := range m.connections {
		stats.ConnectionsByType[string(c.Type)]++
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close(_ context.Context) error {
	return nil
}

// memoryTx stages writes until Commit. Reads see staged writes first, then
// the committed store, so an import observes its own earlier writes.
type memoryTx struct {
	store       *MemoryStore
	staged      map[models.SpanKey]*models.Span
	connections []*models.Connection
	done        bool
}

func (tx *memoryTx) FindSpan(_ context.Context, name string, t models.SpanType) (*models.Span, error) {
	key := models.SpanKey{Name: name, Type: t}
	if span, ok := tx.staged[key]; ok {
		return copySpan(span), nil
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	span, ok := tx.store.spans[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, name, t)
	}
	return copySpan(span), nil
}

func (tx *memoryTx) SaveSpan(_ context.Context, span *models.Span) error {
	now := time.Now().UTC()
	if span.ID == "" {
		span.ID = uuid.NewString()
		span.CreatedAt = now
	}
	if span.State == "" {
		span.State = models.StatePlaceholder
	}
	span.UpdatedAt = now
	tx.staged[span.Key()] = copySpan(span)
	return nil
}

func (tx *memoryTx) FindOrCreateConnectedSpan(ctx context.Context, name string, t models.SpanType, dates *temporal.Range, metadata map[string]any) (*models.Span, bool, error) {
	span, err := tx.FindSpan(ctx, name, t)
	if err == nil {
		return span, false, nil
	}

	span = &models.Span{
		Name:  name,
		Type:  t,
		State: models.StatePlaceholder,
	}
	if dates != nil {
		span.ApplyStart(dates.Start)
		span.ApplyEnd(dates.End)
	}
	span.MergeMetadata(metadata)
	if err := tx.SaveSpan(ctx, span); err != nil {
		return nil, false, err
	}
	return span, true, nil
}

func (tx *memoryTx) CreateConnection(_ context.Context, subject, object *models.Span, ct models.ConnectionType, dates *temporal.Range, metadata map[string]any) (*models.Connection, error) {
	if subject == nil || object == nil {
		return nil, fmt.Errorf("connection requires both subject and object")
	}
	conn := &models.Connection{
		ID:        uuid.NewString(),
		SubjectID: subject.ID,
		ObjectID:  object.ID,
		Type:      ct,
		CreatedAt: time.Now().UTC(),
	}
	if dates != nil {
		conn.Start = dates.Start
		conn.End = dates.End
	}
	if len(metadata) > 0 {
		conn.Metadata = make(map[string]any, len(metadata))
		for k, v := range metadata {
			conn.Metadata[k] = v
		}
	}
	tx.connections = append(tx.connections, conn)
	return conn, nil
}

func (tx *memoryTx) Commit(_ context.Context) error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	tx.done = true
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for key, span := range tx.staged {
		tx.store.spans[key] = span
	}
	tx.store.connections = append(tx.store.connections, tx.connections...)
	return nil
}

func (tx *memoryTx) Rollback(_ context.Context) error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	tx.done = true
	tx.staged = nil
	tx.connections = nil
	return nil
}

// copySpan deep-copies a span so callers cannot mutate stored data.
func copySpan(s *models.Span) *models.Span {
	out := *s
	if s.Start != nil {
		d := *s.Start
		out.Start = &d
	}
	if s.End != nil {
		d := *s.End
		out.End = &d
	}
	if len(s.Metadata) > 0 {
		meta := make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			meta[k] = v
		}
		out.Metadata = meta
	}
	return &out
}
