package importer

import (
	"context"

	"github.com/spangraph/spangraph/internal/graph"
	"github.com/spangraph/spangraph/internal/metrics"
	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/record"
	"github.com/spangraph/spangraph/internal/registry"
	"github.com/spangraph/spangraph/internal/temporal"
)

// governmentSpanName is the singleton organisation every office tenure
// connects to. It is resolved at most once per import and reused across
// tenures.
const governmentSpanName = "UK Government"

// officeholderVariant extends the person variant: its functions wrap the
// person ones and layer office-specific validation, registry enrichment, and
// three extra connection sets on top.
func officeholderVariant() variant {
	person := personVariant()
	return variant{
		recordTag: "officeholder",
		spanType:  models.SpanTypePerson,
		validate: func(imp *Importer, rec *record.Record, report *Report) {
			person.validate(imp, rec, report)
			validateOfficeholder(imp, rec, report)
		},
		metadata: func(ctx context.Context, imp *Importer, rec *record.Record, report *Report) map[string]any {
			meta := person.metadata(ctx, imp, rec, report)
			enrichFromRegistry(ctx, imp, rec, meta)
			return meta
		},
		relationships: func(ctx context.Context, imp *Importer, tx graph.Tx, primary *models.Span, rec *record.Record, report *Report) {
			person.relationships(ctx, imp, tx, primary, rec, report)
			importOfficeRelationships(ctx, imp, tx, primary, rec, report)
		},
	}
}

func validateOfficeholder(imp *Importer, rec *record.Record, report *Report) {
	if rec.Has("registry_id") {
		if _, ok := rec.Int("registry_id"); !ok {
			report.AddValidationError("Registry ID must be numeric", "registry_id")
		}
	}

	tenures, err := rec.Section("prime_ministerships")
	if err != nil {
		report.AddValidationError("Prime ministerships section is malformed: "+err.Error(), "prime_ministerships")
		return
	}
	for _, t := range tenures {
		start := t.String("start_date")
		if start == "" {
			report.AddValidationError("Prime ministership must have a start date", "prime_ministerships")
		} else if _, err := temporal.Parse(start); err != nil {
			report.AddValidationError("Invalid start date: "+start, "prime_ministerships")
		}

		end := t.String("end_date")
		switch {
		case end == "" && !t.Bool("ongoing"):
			report.AddValidationError("Prime ministership must have an end date or be marked ongoing", "prime_ministerships")
		case end != "":
			if _, err := temporal.Parse(end); err != nil {
				report.AddValidationError("Invalid end date: "+end, "prime_ministerships")
			}
		}
	}
}

// enrichFromRegistry fetches member details from the external registry and
// folds them into the span metadata. A record with a registry_id is fetched
// directly; without one the record's name goes through the registry's search
// endpoint and the first match is used. It runs before the write phase and
// degrades to no enrichment on any failure; a registry outage never blocks
// the import.
func enrichFromRegistry(ctx context.Context, imp *Importer, rec *record.Record, meta map[string]any) {
	id, hasID := rec.Int("registry_id")
	if hasID {
		meta["registry_id"] = id
	}
	if imp.registry == nil {
		return
	}

	var (
		member *registry.Member
		err    error
	)
	if hasID {
		member, err = imp.registry.GetMember(ctx, id)
	} else {
		member, err = searchMember(ctx, imp, rec.Name)
	}
	if err != nil {
		imp.logger.Warn("registry enrichment skipped", "name", rec.Name, "error", err)
		return
	}
	if member == nil {
		return
	}

	if !hasID {
		meta["registry_id"] = member.ID
	}
	if member.FullTitle != "" {
		meta["full_title"] = member.FullTitle
	}
	if member.Party.Name != "" {
		meta["party"] = member.Party.Name
	}
	if member.Membership.From != "" {
		meta["constituency"] = member.Membership.From
	}
	if member.Thumbnail != "" {
		meta["thumbnail"] = member.Thumbnail
	}
	imp.logger.Debug("enriched from registry", "registry_id", meta["registry_id"], "member", member.DisplayName)
}

// searchMember resolves a member by name through the registry's search
// endpoint. No match is not an error; the record simply stays unenriched.
func searchMember(ctx context.Context, imp *Importer, name string) (*registry.Member, error) {
	members, _, err := imp.registry.Search(ctx, name, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	return &members[0], nil
}

func importOfficeRelationships(ctx context.Context, imp *Importer, tx graph.Tx, primary *models.Span, rec *record.Record, report *Report) {
	importTenures(ctx, imp, tx, primary, rec, report)

	// Party membership and constituency residence are undated: the record
	// carries no bounds for either, and enrichment may fill them later.
	if party := officeField(rec, primary, "party"); party != "" {
		imp.importRelated(ctx, tx, primary, relatedItem{
			section:  "party",
			name:     party,
			spanType: models.SpanTypeOrganisation,
			connType: models.ConnectionMembership,
		}, report)
	}
	if constituency := officeField(rec, primary, "constituency"); constituency != "" {
		imp.importRelated(ctx, tx, primary, relatedItem{
			section:  "constituency",
			name:     constituency,
			spanType: models.SpanTypePlace,
			connType: models.ConnectionResidence,
		}, report)
	}
}

// importTenures creates one dated employment connection per tenure, all
// pointing at the same government organisation span. Each tenure is its own
// failure boundary.
func importTenures(ctx context.Context, imp *Importer, tx graph.Tx, primary *models.Span, rec *record.Record, report *Report) {
	tenures, _ := rec.Section("prime_ministerships")
	if len(tenures) == 0 {
		return
	}

	var government *models.Span
	governmentCreated := false
	for _, t := range tenures {
		if government == nil {
			span, created, err := tx.FindOrCreateConnectedSpan(ctx, governmentSpanName, models.SpanTypeOrganisation, nil,
				map[string]any{"subtype": "government"})
			if err != nil {
				report.Warnf("Failed to import prime_ministerships connection: %v", err)
				metrics.Inc(metrics.WarningsTotal)
				imp.logger.Warn("tenure skipped", "name", primary.Name, "error", err)
				continue
			}
			government, governmentCreated = span, created
			if created {
				metrics.Inc(metrics.SpansCreated)
			}
		}

		dates := tenureRange(t)
		if _, err := tx.CreateConnection(ctx, primary, government, models.ConnectionEmployment, dates,
			map[string]any{"role": "Prime Minister"}); err != nil {
			report.Warnf("Failed to import prime_ministerships connection: %v", err)
			metrics.Inc(metrics.WarningsTotal)
			imp.logger.Warn("tenure skipped", "name", primary.Name, "error", err)
			continue
		}
		metrics.Inc(metrics.ConnectionsCreated)

		// Only the first successful tenure can have created the
		// government span.
		report.Section("prime_ministerships").add(governmentSpanName, governmentCreated)
		governmentCreated = false
	}
}

// tenureRange builds the tenure's connection dates. An ongoing tenure has a
// start and no end.
func tenureRange(t record.Item) *temporal.Range {
	start, _ := temporal.Parse(t.String("start_date"))
	var end *temporal.Date
	if !t.Bool("ongoing") {
		end, _ = temporal.Parse(t.String("end_date"))
	}
	if start == nil && end == nil {
		return nil
	}
	return &temporal.Range{Start: start, End: end}
}

// officeField reads a record field, falling back to the value registry
// enrichment put on the primary span's metadata.
func officeField(rec *record.Record, primary *models.Span, key string) string {
	if v := rec.String(key); v != "" {
		return v
	}
	if v, ok := primary.Metadata[key].(string); ok {
		return v
	}
	return ""
}
