package importer

import (
	"context"

	"github.com/spangraph/spangraph/internal/graph"
	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/record"
	"github.com/spangraph/spangraph/internal/temporal"
)

func personVariant() variant {
	return variant{
		recordTag:     "person",
		spanType:      models.SpanTypePerson,
		validate:      validatePerson,
		metadata:      personMetadata,
		relationships: importPersonRelationships,
	}
}

var validGenders = []string{"male", "female", "other"}

// personSections is the static table behind the generic person section loop:
// which field names the related span, what type that span gets, and what type
// the connection gets. Items cannot override any of it.
var personSections = []personSection{
	{key: "education", reportKey: "education", label: "Education", nameField: "institution",
		spanType: models.SpanTypeOrganisation, connType: models.ConnectionEducation,
		metaFields: []string{"course", "level"}},
	{key: "work", reportKey: "work", label: "Work", nameField: "employer",
		spanType: models.SpanTypeOrganisation, connType: models.ConnectionEmployment,
		metaFields: []string{"role"}},
	{key: "places", reportKey: "residences", label: "Place", nameField: "place",
		spanType: models.SpanTypePlace, connType: models.ConnectionResidence},
	{key: "relationships", reportKey: "relationships", label: "Relationship", nameField: "person",
		spanType: models.SpanTypePerson, connType: models.ConnectionRelationship,
		metaFields: []string{"type", "description"}},
}

type personSection struct {
	key        string
	reportKey  string
	label      string
	nameField  string
	spanType   models.SpanType
	connType   models.ConnectionType
	metaFields []string
}

func validatePerson(imp *Importer, rec *record.Record, report *Report) {
	if g := rec.String("gender"); rec.Has("gender") && !contains(validGenders, g) {
		report.AddValidationError("Gender must be one of male, female, other", "gender")
	}

	fam, err := rec.Map("family")
	if err != nil {
		report.AddValidationError("Family must be a mapping", "family")
	}
	if fam != nil {
		if fam.Has("mother") && fam.String("mother") == "" {
			report.AddValidationError("Mother must be a name", "family")
		}
		if fam.Has("father") && fam.String("father") == "" {
			report.AddValidationError("Father must be a name", "family")
		}
		if fam.Has("children") {
			if _, ok := childNames(fam); !ok {
				report.AddValidationError("Children must be a list of names", "family")
			}
		}
	}

	for _, sec := range personSections {
		items, err := rec.Section(sec.key)
		if err != nil {
			report.AddValidationError(sec.label+" section is malformed: "+err.Error(), sec.key)
			continue
		}
		for _, item := range items {
			if item.String(sec.nameField) == "" {
				report.AddValidationError(sec.label+" must have a "+sec.nameField, sec.key)
			}
			validateItemDates(item, sec.key, report)
		}
	}
}

func personMetadata(_ context.Context, _ *Importer, rec *record.Record, _ *Report) map[string]any {
	meta := map[string]any{}
	if g := rec.String("gender"); g != "" {
		meta["gender"] = g
	}
	return meta
}

func importPersonRelationships(ctx context.Context, imp *Importer, tx graph.Tx, primary *models.Span, rec *record.Record, report *Report) {
	importFamily(ctx, imp, tx, primary, rec, report)

	for _, sec := range personSections {
		items, err := rec.Section(sec.key)
		if err != nil {
			continue // validated earlier; unreachable on the import path
		}
		for _, item := range items {
			meta := map[string]any{}
			for _, f := range sec.metaFields {
				if v := item.String(f); v != "" {
					meta[f] = v
				}
			}
			imp.importRelated(ctx, tx, primary, relatedItem{
				section:   sec.reportKey,
				name:      item.String(sec.nameField),
				spanType:  sec.spanType,
				connType:  sec.connType,
				connDates: itemRange(item, "start", "end"),
				meta:      meta,
			}, report)
		}
	}
}

// importFamily handles the family section's three sub-cases, each inside its
// own failure boundary.
//
// Parent connections are dated from the primary person's own start date:
// "mother of X since X was born", with no separately entered connection date.
// Child connections stay undated on purpose: the child's own birth date is
// typically not known while the parent's record is being processed, so the
// edge waits for later enrichment.
func importFamily(ctx context.Context, imp *Importer, tx graph.Tx, primary *models.Span, rec *record.Record, report *Report) {
	fam, err := rec.Map("family")
	if err != nil || fam == nil {
		return
	}

	var sinceBirth *temporal.Range
	if primary.Start != nil {
		sinceBirth = &temporal.Range{Start: primary.Start}
	}

	for _, parent := range []string{"mother", "father"} {
		name := fam.String(parent)
		if name == "" {
			continue
		}
		imp.importRelated(ctx, tx, primary, relatedItem{
			section:          "family",
			name:             name,
			spanType:         models.SpanTypePerson,
			connType:         models.ConnectionFamily,
			connDates:        sinceBirth,
			meta:             map[string]any{"relationship": parent},
			relatedIsSubject: true,
		}, report)
	}

	children, _ := childNames(fam)
	for _, child := range children {
		imp.importRelated(ctx, tx, primary, relatedItem{
			section:  "family",
			name:     child,
			spanType: models.SpanTypePerson,
			connType: models.ConnectionFamily,
			meta:     map[string]any{"relationship": "child"},
		}, report)
	}
}

// childNames extracts the children list from a family mapping. ok is false
// when the field is present but not a list of strings.
func childNames(fam record.Item) ([]string, bool) {
	raw, present := fam["children"]
	if !present {
		return nil, true
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	names := make([]string, 0, len(list))
	for _, entry := range list {
		s, ok := entry.(string)
		if !ok || s == "" {
			return nil, false
		}
		names = append(names, s)
	}
	return names, true
}

// validateItemDates flags present-but-unparseable date fields on one item.
func validateItemDates(item record.Item, context string, report *Report) {
	if v := item.String("start"); item.Has("start") {
		if _, err := temporal.Parse(v); err != nil {
			report.AddValidationError("Invalid start date: "+v, context)
		}
	}
	if v := item.String("end"); item.Has("end") {
		if _, err := temporal.Parse(v); err != nil {
			report.AddValidationError("Invalid end date: "+v, context)
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
