package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/temporal"
)

// TestMemoryStore_CommitMakesWritesVisible verifies that staged writes only
// land in the store on Commit.
func TestMemoryStore_CommitMakesWritesVisible(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	span := &models.Span{Name: "Ada Lovelace", Type: models.SpanTypePerson}
	require.NoError(t, tx.SaveSpan(ctx, span))
	assert.NotEmpty(t, span.ID, "SaveSpan assigns an ID on first save")

	// Not visible outside the transaction yet.
	_, err = store.GetSpan(ctx, "Ada Lovelace", models.SpanTypePerson)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tx.Commit(ctx))

	got, err := store.GetSpan(ctx, "Ada Lovelace", models.SpanTypePerson)
	require.NoError(t, err)
	assert.Equal(t, span.ID, got.ID)
	assert.Equal(t, models.StatePlaceholder, got.State, "no start date means placeholder")
}

// TestMemoryStore_RollbackDiscardsEverything verifies full atomicity: spans
// and connections staged in a rolled-back unit of work leave no trace.
func TestMemoryStore_RollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	a, _, err := tx.FindOrCreateConnectedSpan(ctx, "A", models.SpanTypePerson, nil, nil)
	require.NoError(t, err)
	b, _, err := tx.FindOrCreateConnectedSpan(ctx, "B", models.SpanTypeBand, nil, nil)
	require.NoError(t, err)
	_, err = tx.CreateConnection(ctx, a, b, models.ConnectionMembership, nil, nil)
	require.NoError(t, err)

	require.NoError(t, tx.Rollback(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSpans)
	assert.Zero(t, stats.TotalConnections)
}

// TestMemoryTx_FindOrCreate_ReadsOwnWrites verifies resolve-or-create
// idempotence inside one unit of work.
func TestMemoryTx_FindOrCreate_ReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	first, created, err := tx.FindOrCreateConnectedSpan(ctx, "Velvet", models.SpanTypeBand, nil, nil)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := tx.FindOrCreateConnectedSpan(ctx, "Velvet", models.SpanTypeBand, nil, nil)
	require.NoError(t, err)
	assert.False(t, created, "second resolution must reuse the staged span")
	assert.Equal(t, first.ID, second.ID)
}

// TestMemoryTx_FindOrCreate_AppliesDatesOnlyOnCreation verifies that dates
// and metadata seed new spans but never touch existing ones.
func TestMemoryTx_FindOrCreate_AppliesDatesOnlyOnCreation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	existing := &models.Span{Name: "Oxford", Type: models.SpanTypeOrganisation}
	require.NoError(t, tx.SaveSpan(ctx, existing))
	require.NoError(t, tx.Commit(ctx))

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	dates := &temporal.Range{Start: &temporal.Date{Year: 1096}}
	span, created, err := tx.FindOrCreateConnectedSpan(ctx, "Oxford", models.SpanTypeOrganisation, dates, map[string]any{"subtype": "educational"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, span.Start, "resolution must not rewrite an existing span")
	assert.NotContains(t, span.Metadata, "subtype")

	fresh, created, err := tx.FindOrCreateConnectedSpan(ctx, "Cambridge", models.SpanTypeOrganisation, dates, map[string]any{"subtype": "educational"})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, fresh.Start)
	assert.Equal(t, 1096, fresh.Start.Year)
	assert.Equal(t, models.StateComplete, fresh.State, "a start date completes the span")
	assert.Equal(t, "educational", fresh.Metadata["subtype"])
}

// TestMemoryStore_GetConnections verifies lookup from either end of the edge.
func TestMemoryStore_GetConnections(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	a, _, err := tx.FindOrCreateConnectedSpan(ctx, "Ana", models.SpanTypePerson, nil, nil)
	require.NoError(t, err)
	b, _, err := tx.FindOrCreateConnectedSpan(ctx, "The Kays", models.SpanTypeBand, nil, nil)
	require.NoError(t, err)
	conn, err := tx.CreateConnection(ctx, a, b, models.ConnectionMembership, nil, map[string]any{"role": "vocals"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	forSubject, err := store.GetConnections(ctx, a.ID)
	require.NoError(t, err)
	forObject, err := store.GetConnections(ctx, b.ID)
	require.NoError(t, err)

	require.Len(t, forSubject, 1)
	require.Len(t, forObject, 1)
	assert.Equal(t, conn.ID, forSubject[0].ID)
	assert.Equal(t, "vocals", forObject[0].Metadata["role"])
}

// TestMemoryStore_TxFinishedTwice verifies that a finished unit of work
// rejects further Commit/Rollback calls.
func TestMemoryStore_TxFinishedTwice(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.Error(t, tx.Commit(ctx))
	assert.Error(t, tx.Rollback(ctx))
}

// TestCopySpan_Isolation verifies that stored spans cannot be mutated through
// returned copies.
func TestCopySpan_Isolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	span := &models.Span{
		Name:     "Ada Lovelace",
		Type:     models.SpanTypePerson,
		Metadata: map[string]any{"gender": "female"},
	}
	span.ApplyStart(&temporal.Date{Year: 1815, Month: 12, Day: 10})
	require.NoError(t, tx.SaveSpan(ctx, span))
	require.NoError(t, tx.Commit(ctx))

	got, err := store.GetSpan(ctx, "Ada Lovelace", models.SpanTypePerson)
	require.NoError(t, err)
	got.Metadata["gender"] = "tampered"
	got.Start.Year = 1

	again, err := store.GetSpan(ctx, "Ada Lovelace", models.SpanTypePerson)
	require.NoError(t, err)
	assert.Equal(t, "female", again.Metadata["gender"])
	assert.Equal(t, 1815, again.Start.Year)
}
