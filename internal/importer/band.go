package importer

import (
	"context"

	"github.com/spangraph/spangraph/internal/graph"
	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/record"
)

func bandVariant() variant {
	return variant{
		recordTag:     "band",
		spanType:      models.SpanTypeBand,
		validate:      validateBand,
		metadata:      bandMetadata,
		relationships: importBandRelationships,
	}
}

// validateBand requires name, start date, and role on every member. Unlike
// the person and organisation sections, none of these are optional.
func validateBand(imp *Importer, rec *record.Record, report *Report) {
	members, err := rec.Section("members")
	if err != nil {
		report.AddValidationError("Members section is malformed: "+err.Error(), "members")
		return
	}
	for _, m := range members {
		if m.String("name") == "" {
			report.AddValidationError("Member must have a name", "members")
		}
		if m.String("start") == "" {
			report.AddValidationError("Member must have a start date", "members")
		}
		if m.String("role") == "" {
			report.AddValidationError("Member must have a role", "members")
		}
		validateItemDates(m, "members", report)
	}
}

func bandMetadata(_ context.Context, _ *Importer, rec *record.Record, _ *Report) map[string]any {
	meta := map[string]any{}
	if g := rec.String("genre"); g != "" {
		meta["genre"] = g
	}
	return meta
}

func importBandRelationships(ctx context.Context, imp *Importer, tx graph.Tx, primary *models.Span, rec *record.Record, report *Report) {
	// Membership models "this person was a member of this band", so the
	// person is the subject and the band is the object.
	members, _ := rec.Section("members")
	for _, m := range members {
		imp.importRelated(ctx, tx, primary, relatedItem{
			section:          "members",
			name:             m.String("name"),
			spanType:         models.SpanTypePerson,
			connType:         models.ConnectionMembership,
			connDates:        itemRange(m, "start", "end"),
			meta:             map[string]any{"role": m.String("role")},
			relatedIsSubject: true,
		}, report)
	}
}
