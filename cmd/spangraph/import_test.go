package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spangraph/spangraph/internal/graph"
	"github.com/spangraph/spangraph/internal/importer"
	"github.com/spangraph/spangraph/internal/models"
)

func testBatchImporter(store graph.Store) *importer.Importer {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return importer.New(store, nil, "test-owner", logger)
}

// TestRunImports_FileFailureIsolated verifies that an unreadable file yields
// its own failed report while every other file in the batch still imports.
func TestRunImports_FileFailureIsolated(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("name: Mist\ntype: band\n"), 0o644))
	missing := filepath.Join(dir, "missing.yaml")

	store := graph.NewMemoryStore()
	reports, failed := runImports(context.Background(), testBatchImporter(store), []string{missing, good}, 2)

	require.Len(t, reports, 2)
	assert.Equal(t, 1, failed)

	require.NotNil(t, reports[0])
	assert.False(t, reports[0].Success)
	require.NotEmpty(t, reports[0].Errors)
	assert.Contains(t, reports[0].Errors[0].Message, "missing.yaml")

	require.NotNil(t, reports[1])
	assert.True(t, reports[1].Success)
	_, err := store.GetSpan(context.Background(), "Mist", models.SpanTypeBand)
	require.NoError(t, err, "the good file's import must have committed")
}

// TestRunImports_ParseFailureIsolated verifies a syntactically broken
// document fails alone, in input order.
func TestRunImports_ParseFailureIsolated(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("name: Mist\ntype: band\n"), 0o644))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [unclosed\n"), 0o644))

	reports, failed := runImports(context.Background(), testBatchImporter(graph.NewMemoryStore()), []string{good, broken}, 1)

	require.Len(t, reports, 2)
	assert.Equal(t, 1, failed)
	assert.True(t, reports[0].Success)
	assert.False(t, reports[1].Success)
	require.NotEmpty(t, reports[1].Errors)
	assert.Contains(t, reports[1].Errors[0].Message, "broken.yaml")
}
