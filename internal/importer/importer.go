// Package importer materializes declarative records into the span/connection
// graph. One call, one report, one transaction: validation failures abort
// before any write, a primary-span write failure rolls everything back, and a
// failure on any single relationship item degrades to a warning.
package importer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spangraph/spangraph/internal/graph"
	"github.com/spangraph/spangraph/internal/metrics"
	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/record"
	"github.com/spangraph/spangraph/internal/registry"
	"github.com/spangraph/spangraph/internal/temporal"
)

// Importer runs the record import pipeline against a graph store.
type Importer struct {
	store    graph.Store
	registry *registry.Client
	ownerID  string
	logger   *slog.Logger
}

// New creates an importer. The registry client is optional; without it the
// office-holder variant simply skips enrichment.
func New(store graph.Store, reg *registry.Client, ownerID string, logger *slog.Logger) *Importer {
	return &Importer{
		store:    store,
		registry: reg,
		ownerID:  ownerID,
		logger:   logger,
	}
}

// variant is one type-specialized importer. Dispatch is a closed switch over
// the record type tags; there is no open registration.
type variant struct {
	// recordTag is the value the record's type discriminator must carry.
	recordTag string
	// spanType is the span type the primary entity persists under. The
	// office-holder tag maps onto person.
	spanType models.SpanType

	validate      func(imp *Importer, rec *record.Record, report *Report)
	metadata      func(ctx context.Context, imp *Importer, rec *record.Record, report *Report) map[string]any
	relationships func(ctx context.Context, imp *Importer, tx graph.Tx, primary *models.Span, rec *record.Record, report *Report)
}

func variantFor(typeTag string) (variant, bool) {
	switch typeTag {
	case "person":
		return personVariant(), true
	case "organisation":
		return organisationVariant(), true
	case "band":
		return bandVariant(), true
	case "officeholder":
		return officeholderVariant(), true
	default:
		return variant{}, false
	}
}

// Import runs the full pipeline for one record and returns its report. It
// never returns an error: every failure mode lands in the report.
func (imp *Importer) Import(ctx context.Context, rec *record.Record) *Report {
	report := NewReport()
	metrics.Inc(metrics.ImportsTotal)

	if rec == nil {
		report.AddValidationError("Record is required", "")
		metrics.Inc(metrics.ImportFailures)
		return report
	}

	v, known := variantFor(rec.Type)
	imp.validateGeneric(rec, v, known, report)
	if known {
		v.validate(imp, rec, report)
	}

	tx, err := imp.store.Begin(ctx)
	if err != nil {
		report.AddGeneralError("beginning transaction: %v", err)
		metrics.Inc(metrics.ImportFailures)
		return report
	}

	if report.HasErrors() {
		// Nothing was written; end the transaction as a no-op.
		_ = tx.Commit(ctx)
		metrics.Inc(metrics.ImportFailures)
		return report
	}

	if err := imp.persist(ctx, tx, rec, v, report); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			imp.logger.Error("rollback failed", "record", rec.Name, "error", rbErr)
		}
		report.AddGeneralError("importing %s: %v", rec.Name, err)
		metrics.Inc(metrics.ImportFailures)
		return report
	}

	if err := tx.Commit(ctx); err != nil {
		report.AddGeneralError("committing import of %s: %v", rec.Name, err)
		metrics.Inc(metrics.ImportFailures)
		return report
	}

	imp.logger.Info("imported record",
		"name", rec.Name,
		"type", rec.Type,
		"action", report.MainSpan.Action,
		"warnings", len(report.Warnings))
	return report
}

// validateGeneric runs the checks every record must pass. All failures
// accumulate; nothing short-circuits, so the caller sees every problem at
// once.
func (imp *Importer) validateGeneric(rec *record.Record, v variant, known bool, report *Report) {
	if rec.Name == "" {
		report.AddValidationError("Name is required", "name")
	}
	switch {
	case rec.Type == "":
		report.AddValidationError("Type is required", "type")
	case !known:
		report.AddValidationError("Unsupported type \""+rec.Type+"\"", "type")
	case rec.Type != v.recordTag:
		// Unreachable with the closed switch, kept as a guard on the
		// variant table itself.
		report.AddValidationError("Type \""+rec.Type+"\" does not match the importer", "type")
	}
	if _, err := temporal.Parse(rec.Start); err != nil {
		report.AddValidationError("Invalid start date: "+rec.Start, "start")
	}
	if _, err := temporal.Parse(rec.End); err != nil {
		report.AddValidationError("Invalid end date: "+rec.End, "end")
	}
}

// persist runs the write phase inside the supplied transaction. Any error it
// returns means the transaction must be rolled back in full.
func (imp *Importer) persist(ctx context.Context, tx graph.Tx, rec *record.Record, v variant, report *Report) error {
	// firstOrNew on the (name, type) natural key.
	span, err := tx.FindSpan(ctx, rec.Name, v.spanType)
	action := ActionUpdated
	switch {
	case errors.Is(err, graph.ErrNotFound):
		span = &models.Span{
			Name:  rec.Name,
			Type:  v.spanType,
			State: models.StatePlaceholder,
		}
		action = ActionCreated
	case err != nil:
		return err
	}

	// Dates were validated already; a parse error here cannot happen.
	start, _ := temporal.Parse(rec.Start)
	end, _ := temporal.Parse(rec.End)
	span.ApplyStart(start)
	span.ApplyEnd(end)

	if span.OwnerID == "" {
		span.OwnerID = imp.ownerID
	}
	span.UpdaterID = imp.ownerID
	span.MergeMetadata(v.metadata(ctx, imp, rec, report))

	if err := tx.SaveSpan(ctx, span); err != nil {
		return err
	}
	if action == ActionCreated {
		metrics.Inc(metrics.SpansCreated)
	}

	report.MainSpan = &MainSpanResult{Action: action, ID: span.ID, Name: span.Name}

	v.relationships(ctx, imp, tx, span, rec, report)
	return nil
}

// relatedItem describes one relationship to resolve and connect. The related
// span's type and the connection type come from the variant's static tables,
// never from the record.
type relatedItem struct {
	section   string
	name      string
	spanType  models.SpanType
	connType  models.ConnectionType
	connDates *temporal.Range
	// spanDates seed the related span's own lifespan only when it is
	// created by this item. Usually nil: a school's lifespan is not one
	// student's enrollment.
	spanDates *temporal.Range
	meta      map[string]any
	// relatedIsSubject inverts the edge so the related span is the
	// subject, e.g. band membership ("person was a member of band") and
	// parents ("mother of the primary person").
	relatedIsSubject bool
}

// importRelated is the per-item failure boundary: a resolver or builder
// failure for this item becomes one warning and the caller's loop moves on.
// Nothing already written is undone.
func (imp *Importer) importRelated(ctx context.Context, tx graph.Tx, primary *models.Span, it relatedItem, report *Report) {
	related, created, err := tx.FindOrCreateConnectedSpan(ctx, it.name, it.spanType, it.spanDates, nil)
	if err != nil {
		report.Warnf("Failed to import %s connection: %v", it.section, err)
		metrics.Inc(metrics.WarningsTotal)
		imp.logger.Warn("relationship item skipped", "section", it.section, "name", it.name, "error", err)
		return
	}

	subject, object := primary, related
	if it.relatedIsSubject {
		subject, object = related, primary
	}

	if _, err := tx.CreateConnection(ctx, subject, object, it.connType, it.connDates, it.meta); err != nil {
		report.Warnf("Failed to import %s connection: %v", it.section, err)
		metrics.Inc(metrics.WarningsTotal)
		imp.logger.Warn("relationship item skipped", "section", it.section, "name", it.name, "error", err)
		return
	}

	if created {
		metrics.Inc(metrics.SpansCreated)
	}
	metrics.Inc(metrics.ConnectionsCreated)
	report.Section(it.section).add(it.name, created)
}

// itemRange parses an item's optional start/end fields. Validation already
// rejected unparseable values, so errors here are ignored.
func itemRange(it record.Item, startKey, endKey string) *temporal.Range {
	r, _ := temporal.ParseRange(it.String(startKey), it.String(endKey))
	return r
}
