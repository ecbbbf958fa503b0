package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spangraph/spangraph/internal/graph"
	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/record"
	"github.com/spangraph/spangraph/internal/registry"
)

// TestImport_OfficeholderTenures verifies that multiple tenures all connect
// to a single government organisation span, resolved once.
func TestImport_OfficeholderTenures(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	imp := testImporter(store)

	rec := record.New(map[string]any{
		"name":  "Harold Wilson",
		"type":  "officeholder",
		"start": "1916-03-11",
		"prime_ministerships": []any{
			map[string]any{"start_date": "1964-10-16", "end_date": "1970-06-19"},
			map[string]any{"start_date": "1974-03-04", "end_date": "1976-04-05"},
		},
	})

	report := imp.Import(ctx, rec)
	require.True(t, report.Success, "errors: %v", report.Errors)

	sec := report.Sections["prime_ministerships"]
	require.NotNil(t, sec)
	assert.Equal(t, 2, sec.Total)
	assert.Equal(t, 1, sec.Created, "the government span is created by the first tenure only")

	wilson, err := store.GetSpan(ctx, "Harold Wilson", models.SpanTypePerson)
	require.NoError(t, err)
	gov, err := store.GetSpan(ctx, governmentSpanName, models.SpanTypeOrganisation)
	require.NoError(t, err)
	assert.Equal(t, "government", gov.Metadata["subtype"])

	conns, err := store.GetConnections(ctx, wilson.ID)
	require.NoError(t, err)
	require.Len(t, conns, 2)

	starts := map[int]bool{}
	for _, c := range conns {
		assert.Equal(t, models.ConnectionEmployment, c.Type)
		assert.Equal(t, wilson.ID, c.SubjectID)
		assert.Equal(t, gov.ID, c.ObjectID)
		assert.Equal(t, "Prime Minister", c.Metadata["role"])
		require.NotNil(t, c.Start)
		require.NotNil(t, c.End)
		starts[c.Start.Year] = true
	}
	assert.Equal(t, map[int]bool{1964: true, 1974: true}, starts)
}

// TestImport_OfficeholderOngoingTenure verifies an ongoing tenure produces a
// connection with a start and no end.
func TestImport_OfficeholderOngoingTenure(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	imp := testImporter(store)

	report := imp.Import(ctx, record.New(map[string]any{
		"name": "Keir Starmer",
		"type": "officeholder",
		"prime_ministerships": []any{
			map[string]any{"start_date": "2024-07-05", "ongoing": true},
		},
	}))
	require.True(t, report.Success, "errors: %v", report.Errors)

	pm, err := store.GetSpan(ctx, "Keir Starmer", models.SpanTypePerson)
	require.NoError(t, err)
	conns, err := store.GetConnections(ctx, pm.ID)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	require.NotNil(t, conns[0].Start)
	assert.Equal(t, 2024, conns[0].Start.Year)
	assert.Nil(t, conns[0].End)
}

// TestImport_OfficeholderPartyAndConstituency covers the two undated extra
// connections sourced from record fields.
func TestImport_OfficeholderPartyAndConstituency(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	imp := testImporter(store)

	report := imp.Import(ctx, record.New(map[string]any{
		"name":         "Harold Wilson",
		"type":         "officeholder",
		"party":        "Labour",
		"constituency": "Huyton",
	}))
	require.True(t, report.Success, "errors: %v", report.Errors)

	wilson, err := store.GetSpan(ctx, "Harold Wilson", models.SpanTypePerson)
	require.NoError(t, err)
	labour, err := store.GetSpan(ctx, "Labour", models.SpanTypeOrganisation)
	require.NoError(t, err)
	huyton, err := store.GetSpan(ctx, "Huyton", models.SpanTypePlace)
	require.NoError(t, err)

	conns, err := store.GetConnections(ctx, wilson.ID)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	for _, c := range conns {
		assert.Nil(t, c.Start, "party and constituency connections carry no dates")
		assert.Nil(t, c.End)
		switch c.Type {
		case models.ConnectionMembership:
			assert.Equal(t, labour.ID, c.ObjectID)
		case models.ConnectionResidence:
			assert.Equal(t, huyton.ID, c.ObjectID)
		default:
			t.Fatalf("unexpected connection type %s", c.Type)
		}
	}
}

// TestImport_OfficeholderRegistryEnrichment verifies registry lookups enrich
// the span metadata and feed the party and constituency connections when the
// record itself omits them.
func TestImport_OfficeholderRegistryEnrichment(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/Members/1234" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value": {
			"id": 1234,
			"nameDisplayAs": "Harold Wilson",
			"nameFullTitle": "Rt Hon Harold Wilson",
			"thumbnailUrl": "https://example.org/wilson.jpg",
			"latestParty": {"name": "Labour"},
			"latestHouseMembership": {"membershipFrom": "Huyton"}
		}}`))
	}))
	defer srv.Close()

	store := graph.NewMemoryStore()
	reg := registry.NewClient(srv.URL, 5*time.Second, testLogger())
	imp := New(store, reg, "test-owner", testLogger())

	report := imp.Import(ctx, record.New(map[string]any{
		"name":        "Harold Wilson",
		"type":        "officeholder",
		"registry_id": 1234,
	}))
	require.True(t, report.Success, "errors: %v", report.Errors)

	wilson, err := store.GetSpan(ctx, "Harold Wilson", models.SpanTypePerson)
	require.NoError(t, err)
	assert.Equal(t, 1234, wilson.Metadata["registry_id"])
	assert.Equal(t, "Rt Hon Harold Wilson", wilson.Metadata["full_title"])
	assert.Equal(t, "Labour", wilson.Metadata["party"])
	assert.Equal(t, "Huyton", wilson.Metadata["constituency"])
	assert.Equal(t, "https://example.org/wilson.jpg", wilson.Metadata["thumbnail"])

	// The enriched values drive the connections too.
	_, err = store.GetSpan(ctx, "Labour", models.SpanTypeOrganisation)
	require.NoError(t, err)
	_, err = store.GetSpan(ctx, "Huyton", models.SpanTypePlace)
	require.NoError(t, err)
	conns, err := store.GetConnections(ctx, wilson.ID)
	require.NoError(t, err)
	assert.Len(t, conns, 2)
}

// TestImport_OfficeholderSearchFallback verifies that a record without a
// registry_id is resolved through the registry's name search, with the first
// match enriching the span the same way a direct fetch does.
func TestImport_OfficeholderSearchFallback(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/Members/Search" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Harold Wilson", r.URL.Query().Get("Name"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [{"value": {
				"id": 1234,
				"nameDisplayAs": "Harold Wilson",
				"nameFullTitle": "Rt Hon Harold Wilson",
				"latestParty": {"name": "Labour"},
				"latestHouseMembership": {"membershipFrom": "Huyton"}
			}}],
			"totalResults": 1
		}`))
	}))
	defer srv.Close()

	store := graph.NewMemoryStore()
	reg := registry.NewClient(srv.URL, 5*time.Second, testLogger())
	imp := New(store, reg, "test-owner", testLogger())

	report := imp.Import(ctx, record.New(map[string]any{
		"name": "Harold Wilson",
		"type": "officeholder",
	}))
	require.True(t, report.Success, "errors: %v", report.Errors)

	wilson, err := store.GetSpan(ctx, "Harold Wilson", models.SpanTypePerson)
	require.NoError(t, err)
	assert.Equal(t, 1234, wilson.Metadata["registry_id"])
	assert.Equal(t, "Rt Hon Harold Wilson", wilson.Metadata["full_title"])
	assert.Equal(t, "Labour", wilson.Metadata["party"])
	assert.Equal(t, "Huyton", wilson.Metadata["constituency"])

	conns, err := store.GetConnections(ctx, wilson.ID)
	require.NoError(t, err)
	assert.Len(t, conns, 2, "party and constituency connections from search results")
}

// TestImport_OfficeholderSearchNoMatch verifies an empty search result leaves
// the record unenriched without failing the import.
func TestImport_OfficeholderSearchNoMatch(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [], "totalResults": 0}`))
	}))
	defer srv.Close()

	store := graph.NewMemoryStore()
	reg := registry.NewClient(srv.URL, 5*time.Second, testLogger())
	imp := New(store, reg, "test-owner", testLogger())

	report := imp.Import(ctx, record.New(map[string]any{
		"name": "Harold Wilson",
		"type": "officeholder",
	}))
	require.True(t, report.Success)
	assert.Empty(t, report.Errors)

	wilson, err := store.GetSpan(ctx, "Harold Wilson", models.SpanTypePerson)
	require.NoError(t, err)
	_, hasID := wilson.Metadata["registry_id"]
	assert.False(t, hasID)
	conns, err := store.GetConnections(ctx, wilson.ID)
	require.NoError(t, err)
	assert.Empty(t, conns)
}

// TestImport_OfficeholderRegistryFailureTolerated verifies that a registry
// outage never blocks the import.
func TestImport_OfficeholderRegistryFailureTolerated(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := graph.NewMemoryStore()
	reg := registry.NewClient(srv.URL, 5*time.Second, testLogger())
	imp := New(store, reg, "test-owner", testLogger())

	report := imp.Import(ctx, record.New(map[string]any{
		"name":        "Harold Wilson",
		"type":        "officeholder",
		"registry_id": 1234,
	}))
	require.True(t, report.Success)
	assert.Empty(t, report.Errors)

	wilson, err := store.GetSpan(ctx, "Harold Wilson", models.SpanTypePerson)
	require.NoError(t, err)
	assert.Equal(t, 1234, wilson.Metadata["registry_id"])
	_, hasParty := wilson.Metadata["party"]
	assert.False(t, hasParty)
}

// TestImport_OfficeholderValidation covers the office-specific hard checks.
func TestImport_OfficeholderValidation(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		fields  map[string]any
		message string
	}{
		{
			name:    "registry id not numeric",
			fields:  map[string]any{"registry_id": "abc"},
			message: "Registry ID must be numeric",
		},
		{
			name:    "registry id fractional",
			fields:  map[string]any{"registry_id": 12.5},
			message: "Registry ID must be numeric",
		},
		{
			name: "tenure missing start date",
			fields: map[string]any{
				"prime_ministerships": []any{map[string]any{"end_date": "1970-06-19"}},
			},
			message: "must have a start date",
		},
		{
			name: "tenure missing end date and not ongoing",
			fields: map[string]any{
				"prime_ministerships": []any{map[string]any{"start_date": "1964-10-16"}},
			},
			message: "end date or be marked ongoing",
		},
		{
			name: "tenure with garbled start date",
			fields: map[string]any{
				"prime_ministerships": []any{map[string]any{"start_date": "soonish", "ongoing": true}},
			},
			message: "Invalid start date",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			imp := testImporter(graph.NewMemoryStore())
			fields := map[string]any{"name": "x", "type": "officeholder"}
			for k, v := range tc.fields {
				fields[k] = v
			}
			report := imp.Import(ctx, record.New(fields))
			assert.False(t, report.Success)
			require.NotEmpty(t, report.Errors)
			assert.Contains(t, report.Errors[0].Message, tc.message)
		})
	}
}
