package importer

import (
	"context"

	"github.com/spangraph/spangraph/internal/graph"
	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/record"
)

func organisationVariant() variant {
	return variant{
		recordTag:     "organisation",
		spanType:      models.SpanTypeOrganisation,
		validate:      validateOrganisation,
		metadata:      organisationMetadata,
		relationships: importOrganisationRelationships,
	}
}

var validOrgSubtypes = []string{"business", "educational", "government", "non-profit", "religious", "other"}

func validateOrganisation(imp *Importer, rec *record.Record, report *Report) {
	if s := rec.String("subtype"); rec.Has("subtype") && !contains(validOrgSubtypes, s) {
		report.AddValidationError("Subtype must be one of business, educational, government, non-profit, religious, other", "subtype")
	}

	members, err := rec.Section("members")
	if err != nil {
		report.AddValidationError("Members section is malformed: "+err.Error(), "members")
	}
	for _, m := range members {
		if m.String("name") == "" {
			report.AddValidationError("Member must have a name", "members")
		}
		validateItemDates(m, "members", report)
	}

	rels, err := rec.Section("relationships")
	if err != nil {
		report.AddValidationError("Relationships section is malformed: "+err.Error(), "relationships")
	}
	for _, r := range rels {
		if r.String("name") == "" {
			report.AddValidationError("Relationship must have a name", "relationships")
		}
		if r.String("type") == "" {
			report.AddValidationError("Relationship must have a type", "relationships")
		}
		validateItemDates(r, "relationships", report)
	}
}

func organisationMetadata(_ context.Context, _ *Importer, rec *record.Record, _ *Report) map[string]any {
	meta := map[string]any{}
	for _, key := range []string{"subtype", "industry", "headquarters", "website"} {
		if v := rec.String(key); v != "" {
			meta[key] = v
		}
	}
	return meta
}

func importOrganisationRelationships(ctx context.Context, imp *Importer, tx graph.Tx, primary *models.Span, rec *record.Record, report *Report) {
	// Members: the organisation employs the person, so the organisation is
	// the subject. Contrast with band membership, which is inverted.
	members, _ := rec.Section("members")
	for _, m := range members {
		meta := map[string]any{}
		if role := m.String("role"); role != "" {
			meta["role"] = role
		}
		imp.importRelated(ctx, tx, primary, relatedItem{
			section:   "members",
			name:      m.String("name"),
			spanType:  models.SpanTypePerson,
			connType:  models.ConnectionEmployment,
			connDates: itemRange(m, "start", "end"),
			meta:      meta,
		}, report)
	}

	rels, _ := rec.Section("relationships")
	for _, r := range rels {
		meta := map[string]any{"type": r.String("type")}
		if d := r.String("description"); d != "" {
			meta["description"] = d
		}
		imp.importRelated(ctx, tx, primary, relatedItem{
			section:   "relationships",
			name:      r.String("name"),
			spanType:  models.SpanTypeOrganisation,
			connType:  models.ConnectionRelationship,
			connDates: itemRange(r, "start", "end"),
			meta:      meta,
		}, report)
	}
}
