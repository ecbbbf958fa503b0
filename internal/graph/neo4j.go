package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/spangraph/spangraph/internal/models"
	"github.com/spangraph/spangraph/internal/temporal"
)

const (
	neo4jDialTimeout  = 10 * time.Second
	neo4jReadTimeout  = 10 * time.Second
	neo4jWriteTimeout = 30 * time.Second
)

func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// Neo4jStore implements Store on a Neo4j property graph. Spans are :Span
// nodes keyed on (name, type); connections are :RELATES relationships whose
// kind lives in a type property, since Cypher relationship types cannot be
// parameterized.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore connects to Neo4j and verifies the connection.
func NewNeo4jStore(uri, username, password, database string, logger *slog.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating Neo4j driver for %s: %w", uri, err)
	}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), neo4jDialTimeout)
	defer dialCancel()
	if err := driver.VerifyConnectivity(dialCtx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("verifying Neo4j connection at %s: %w", uri, err)
	}

	logger.Info("connected to Neo4j", "uri", uri, "database", database)

	return &Neo4jStore{driver: driver, database: database, logger: logger}, nil
}

// Begin opens a session with an explicit write transaction.
func (n *Neo4jStore) Begin(ctx context.Context) (Tx, error) {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &neo4jTx{session: session, tx: tx, logger: n.logger}, nil
}

func (n *Neo4jStore) GetSpan(ctx context.Context, name string, t models.SpanType) (*models.Span, error) {
	ctx, cancel := withTimeout(ctx, neo4jReadTimeout)
	defer cancel()
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeRead})
	defer func() { _ = session.Close(ctx) }()

	result, err := session.Run(ctx,
		`MATCH (s:Span {name: $name, type: $type}) RETURN s`,
		map[string]any{"name": name, "type": string(t)})
	if err != nil {
		return nil, fmt.Errorf("matching span %s (%s): %w", name, t, err)
	}
	if !result.Next(ctx) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, name, t)
	}
	return recordToSpan(result.Record(), "s")
}

func (n *Neo4jStore) GetConnections(ctx context.Context, spanID string) ([]models.Connection, error) {
	ctx, cancel := withTimeout(ctx, neo4jReadTimeout)
	defer cancel()
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeRead})
	defer func() { _ = session.Close(ctx) }()

	result, err := session.Run(ctx,
		`MATCH (a:Span)-[r:RELATES]->(b:Span)
		 WHERE a.id = $id OR b.id = $id
		 RETURN r, a.id AS subject_id, b.id AS object_id`,
		map[string]any{"id": spanID})
	if err != nil {
		return nil, fmt.Errorf("matching connections for %s: %w", spanID, err)
	}

	var out []models.Connection
	for result.Next(ctx) {
		rec := result.Record()
		conn, err := recordToConnection(rec)
		if err != nil {
			n.logger.Warn("parsing connection record", "error", err)
			continue
		}
		out = append(out, *conn)
	}
	return out, result.Err()
}

func (n *Neo4jStore) ListSpans(ctx context.Context, t models.SpanType) ([]models.Span, error) {
	ctx, cancel := withTimeout(ctx, neo4jReadTimeout)
	defer cancel()
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeRead})
	defer func() { _ = session.Close(ctx) }()

	query := `MATCH (s:Span) RETURN s ORDER BY s.name`
	params := map[string]any{}
	if t != "" {
		query = `MATCH (s:Span {type: $type}) RETURN s ORDER BY s.name`
		params["type"] = string(t)
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("listing spans: %w", err)
	}

	var out []models.Span
	for result.Next(ctx) {
		span, err := recordToSpan(result.Record(), "s")
		if err != nil {
			n.logger.Warn("parsing span record", "error", err)
			continue
		}
		out = append(out, *span)
	}
	return out, result.Err()
}

func (n *Neo4jStore) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := withTimeout(ctx, neo4jReadTimeout)
	defer cancel()
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database, AccessMode: neo4j.AccessModeRead})
	defer func() { _ = session.Close(ctx) }()

	stats := &Stats{
		SpansByType:       make(map[string]int64),
		ConnectionsByType: make(map[string]int64),
	}

	spans, err := session.Run(ctx, `MATCH (s:Span) RETURN s.type AS type, count(s) AS n`, nil)
	if err != nil {
		return nil, fmt.Errorf("counting spans: %w", err)
	}
	for spans.Next(ctx) {
		rec := spans.Record()
		t, _ := rec.Get("type")
		count, _ := rec.Get("n")
		typeName, _ := t.(string)
		c, _ := count.(int64)
		stats.SpansByType[typeName] += c
		stats.TotalSpans += c
	}
	if err := spans.Err(); err != nil {
		return nil, fmt.Errorf("counting spans: %w", err)
	}

	conns, err := session.Run(ctx, `MATCH ()-[r:RELATES]->() RETURN r.type AS type, count(r) AS n`, nil)
	if err != nil {
		return nil, fmt.Errorf("counting connections: %w", err)
	}
	for conns.Next(ctx) {
		rec := conns.Record()
		t, _ := rec.Get("type")
		count, _ := rec.Get("n")
		typeName, _ := t.(string)
		c, _ := count.(int64)
		stats.ConnectionsByType[typeName] += c
		stats.TotalConnections += c
	}
	return stats, conns.Err()
}

func (n *Neo4jStore) Close(ctx context.Context) error {
	return n.driver.Close(ctx)
}

// neo4jTx wraps one session with one explicit transaction. Commit and
// Rollback both close the session.
type neo4jTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	logger  *slog.Logger
}

func (t *neo4jTx) FindSpan(ctx context.Context, name string, st models.SpanType) (*models.Span, error) {
	result, err := t.tx.Run(ctx,
		`MATCH (s:Span {name: $name, type: $type}) RETURN s`,
		map[string]any{"name": name, "type": string(st)})
	if err != nil {
		return nil, fmt.Errorf("matching span %s (%s): %w", name, st, err)
	}
	if !result.Next(ctx) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, name, st)
	}
	return recordToSpan(result.Record(), "s")
}

func (t *neo4jTx) SaveSpan(ctx context.Context, span *models.Span) error {
	now := time.Now().UTC()
	if span.ID == "" {
		span.ID = uuid.NewString()
		span.CreatedAt = now
	}
	if span.State == "" {
		span.State = models.StatePlaceholder
	}
	span.UpdatedAt = now

	_, err := t.tx.Run(ctx,
		`MERGE (s:Span {name: $name, type: $type}) SET s += $props`,
		map[string]any{
			"name":  span.Name,
			"type":  string(span.Type),
			"props": spanToProps(span),
		})
	if err != nil {
		return fmt.Errorf("saving span %s (%s): %w", span.Name, span.Type, err)
	}
	t.logger.Debug("saved span", "name", span.Name, "type", span.Type, "state", span.State)
	return nil
}

func (t *neo4jTx) FindOrCreateConnectedSpan(ctx context.Context, name string, st models.SpanType, dates *temporal.Range, metadata map[string]any) (*models.Span, bool, error) {
	candidate := &models.Span{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      st,
		State:     models.StatePlaceholder,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if dates != nil {
		candidate.ApplyStart(dates.Start)
		candidate.ApplyEnd(dates.End)
	}
	candidate.MergeMetadata(metadata)

	result, err := t.tx.Run(ctx,
		`MERGE (s:Span {name: $name, type: $type})
		 ON CREATE SET s += $props, s.was_created = true
		 WITH s, coalesce(s.was_created, false) AS created
		 REMOVE s.was_created
		 RETURN s, created`,
		map[string]any{
			"name":  name,
			"type":  string(st),
			"props": spanToProps(candidate),
		})
	if err != nil {
		return nil, false, fmt.Errorf("resolving span %s (%s): %w", name, st, err)
	}
	if !result.Next(ctx) {
		return nil, false, fmt.Errorf("resolving span %s (%s): no row returned", name, st)
	}

	rec := result.Record()
	span, err := recordToSpan(rec, "s")
	if err != nil {
		return nil, false, err
	}
	createdRaw, _ := rec.Get("created")
	created, _ := createdRaw.(bool)
	return span, created, nil
}

func (t *neo4jTx) CreateConnection(ctx context.Context, subject, object *models.Span, ct models.ConnectionType, dates *temporal.Range, metadata map[string]any) (*models.Connection, error) {
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
		conn.Metadata = metadata
	}

	_, err := t.tx.Run(ctx,
		`MATCH (a:Span {id: $subject_id}), (b:Span {id: $object_id})
		 CREATE (a)-[r:RELATES]->(b)
		 SET r += $props`,
		map[string]any{
			"subject_id": subject.ID,
			"object_id":  object.ID,
			"props":      connectionToProps(conn),
		})
	if err != nil {
		return nil, fmt.Errorf("creating %s connection %s -> %s: %w", ct, subject.Name, object.Name, err)
	}
	t.logger.Debug("created connection", "type", ct, "subject", subject.Name, "object", object.Name)
	return conn, nil
}

func (t *neo4jTx) Commit(ctx context.Context) error {
	defer func() { _ = t.session.Close(ctx) }()
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (t *neo4jTx) Rollback(ctx context.Context) error {
	defer func() { _ = t.session.Close(ctx) }()
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// --- Helper functions ---

func spanToProps(s *models.Span) map[string]any {
	props := map[string]any{
		"id":         s.ID,
		"state":      string(s.State),
		"owner_id":   s.OwnerID,
		"updater_id": s.UpdaterID,
		"created_at": s.CreatedAt.Format(time.RFC3339),
		"updated_at": s.UpdatedAt.Format(time.RFC3339),
	}
	setDateProps(props, "start", s.Start)
	setDateProps(props, "end", s.End)
	if len(s.Metadata) > 0 {
		if metaBytes, err := json.Marshal(s.Metadata); err == nil {
			props["metadata"] = string(metaBytes)
		}
	}
	return props
}

func connectionToProps(c *models.Connection) map[string]any {
	props := map[string]any{
		"id":         c.ID,
		"type":       string(c.Type),
		"created_at": c.CreatedAt.Format(time.RFC3339),
	}
	setDateProps(props, "start", c.Start)
	setDateProps(props, "end", c.End)
	if len(c.Metadata) > 0 {
		if metaBytes, err := json.Marshal(c.Metadata); err == nil {
			props["metadata"] = string(metaBytes)
		}
	}
	return props
}

// setDateProps flattens a partial date into prefixed year/month/day
// properties, writing only the components the date actually has.
func setDateProps(props map[string]any, prefix string, d *temporal.Date) {
	if d == nil {
		return
	}
	props[prefix+"_year"] = int64(d.Year)
	if d.Month != 0 {
		props[prefix+"_month"] = int64(d.Month)
	}
	if d.Day != 0 {
		props[prefix+"_day"] = int64(d.Day)
	}
}

func dateFromProps(props map[string]any, prefix string) *temporal.Date {
	year, ok := getIntProp(props, prefix+"_year")
	if !ok {
		return nil
	}
	d := &temporal.Date{Year: year}
	if month, ok := getIntProp(props, prefix+"_month"); ok {
		d.Month = month
	}
	if day, ok := getIntProp(props, prefix+"_day"); ok {
		d.Day = day
	}
	return d
}

func recordToSpan(rec *neo4j.Record, key string) (*models.Span, error) {
	raw, ok := rec.Get(key)
	if !ok {
		return nil, fmt.Errorf("record missing %q", key)
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("record value %q is not a node", key)
	}
	props := node.Props

	span := &models.Span{
		ID:        getStringProp(props, "id"),
		Name:      getStringProp(props, "name"),
		Type:      models.SpanType(getStringProp(props, "type")),
		State:     models.SpanState(getStringProp(props, "state")),
		OwnerID:   getStringProp(props, "owner_id"),
		UpdaterID: getStringProp(props, "updater_id"),
		Start:     dateFromProps(props, "start"),
		End:       dateFromProps(props, "end"),
	}
	if ts := getStringProp(props, "created_at"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			span.CreatedAt = t
		}
	}
	if ts := getStringProp(props, "updated_at"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			span.UpdatedAt = t
		}
	}
	if metaStr := getStringProp(props, "metadata"); metaStr != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(metaStr), &meta); err == nil {
			span.Metadata = meta
		}
	}
	return span, nil
}

func recordToConnection(rec *neo4j.Record) (*models.Connection, error) {
	raw, ok := rec.Get("r")
	if !ok {
		return nil, fmt.Errorf("record missing relationship")
	}
	rel, ok := raw.(neo4j.Relationship)
	if !ok {
		return nil, fmt.Errorf("record value is not a relationship")
	}
	props := rel.Props

	conn := &models.Connection{
		ID:    getStringProp(props, "id"),
		Type:  models.ConnectionType(getStringProp(props, "type")),
		Start: dateFromProps(props, "start"),
		End:   dateFromProps(props, "end"),
	}
	if v, ok := rec.Get("subject_id"); ok {
		conn.SubjectID, _ = v.(string)
	}
	if v, ok := rec.Get("object_id"); ok {
		conn.ObjectID, _ = v.(string)
	}
	if ts := getStringProp(props, "created_at"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			conn.CreatedAt = t
		}
	}
	if metaStr := getStringProp(props, "metadata"); metaStr != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(metaStr), &meta); err == nil {
			conn.Metadata = meta
		}
	}
	return conn, nil
}

func getStringProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		s, _ := v.(string)
		return s
	}
	return ""
}

func getIntProp(props map[string]any, key string) (int, bool) {
	switch v := props[key].(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
