package psql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/customer-service/internal/core/domain"
	"github.com/duynhne/customer-service/middleware"
)

const backend = "postgres"

// Querier is satisfied by *pgxpool.Pool and pgx.Tx
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Table implements domain.Table on PostgreSQL.
// Each item is one JSONB document in a two-column table keyed by the item key:
//
//	CREATE TABLE customers (item_key TEXT PRIMARY KEY, item JSONB NOT NULL)
type Table struct {
	db      Querier
	ident   string // quoted table name
	keyAttr string
}

// NewTable creates a PostgreSQL-backed table
func NewTable(db Querier, name, keyAttr string) *Table {
	return &Table{
		db:      db,
		ident:   pgx.Identifier{name}.Sanitize(),
		keyAttr: keyAttr,
	}
}

// EnsureSchema creates the backing table if it does not exist
func (t *Table) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS ` + t.ident + ` (item_key TEXT PRIMARY KEY, item JSONB NOT NULL)`
	if _, err := t.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", t.ident, err)
	}
	return nil
}

// Scan returns all documents matching any of the equality conditions
func (t *Table) Scan(ctx context.Context, anyOf ...domain.Condition) (items []domain.Item, err error) {
	ctx, span := t.startSpan(ctx, "storage.scan", attribute.Int("filter.conditions", len(anyOf)))
	defer span.End()
	defer t.observe("scan", time.Now(), &err)

	query, args := scanQuery(t.ident, anyOf)
	rows, err := t.db.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scan %s: %w", t.ident, err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		item, err := decodeItem(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterate %s: %w", t.ident, err)
	}
	return items, nil
}

// Get reads one document by key
func (t *Table) Get(ctx context.Context, key string) (item domain.Item, err error) {
	ctx, span := t.startSpan(ctx, "storage.get", attribute.String("item.key", key))
	defer span.End()
	defer t.observe("get", time.Now(), &err)

	var doc string
	query := `SELECT item::text FROM ` + t.ident + ` WHERE item_key = $1`
	if err := t.db.QueryRow(ctx, query, key).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get item %q: %w", key, domain.ErrItemNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("get item %q: %w", key, err)
	}
	return decodeItem(doc)
}

// Put upserts the document under its key attribute
func (t *Table) Put(ctx context.Context, item domain.Item) (err error) {
	ctx, span := t.startSpan(ctx, "storage.put")
	defer span.End()
	defer t.observe("put", time.Now(), &err)

	key, ok := item[t.keyAttr].(string)
	if !ok || key == "" {
		return fmt.Errorf("put item: missing key attribute %q", t.keyAttr)
	}
	doc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	query := `INSERT INTO ` + t.ident + ` (item_key, item) VALUES ($1, $2::jsonb)
		ON CONFLICT (item_key) DO UPDATE SET item = EXCLUDED.item`
	if _, err := t.db.Exec(ctx, query, key, string(doc)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("put item %q: %w", key, err)
	}
	return nil
}

// Update merges set into the stored document (top-level keys are replaced whole)
// and returns the resulting document. No row means the key condition failed.
func (t *Table) Update(ctx context.Context, key string, set domain.Item) (item domain.Item, err error) {
	ctx, span := t.startSpan(ctx, "storage.update", attribute.String("item.key", key))
	defer span.End()
	defer t.observe("update", time.Now(), &err)

	patch, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("marshal update: %w", err)
	}

	var doc string
	query := `UPDATE ` + t.ident + ` SET item = item || $2::jsonb WHERE item_key = $1 RETURNING item::text`
	if err := t.db.QueryRow(ctx, query, key, string(patch)).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update item %q: %w", key, domain.ErrConditionFailed)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("update item %q: %w", key, err)
	}
	return decodeItem(doc)
}

// Delete removes the document; zero affected rows means the key condition failed
func (t *Table) Delete(ctx context.Context, key string) (err error) {
	ctx, span := t.startSpan(ctx, "storage.delete", attribute.String("item.key", key))
	defer span.End()
	defer t.observe("delete", time.Now(), &err)

	tag, err := t.db.Exec(ctx, `DELETE FROM `+t.ident+` WHERE item_key = $1`, key)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete item %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete item %q: %w", key, domain.ErrConditionFailed)
	}
	return nil
}

// scanQuery builds the SELECT for Scan. Conditions become OR-ed ->> comparisons.
func scanQuery(ident string, anyOf []domain.Condition) (string, []any) {
	query := `SELECT item::text FROM ` + ident
	if len(anyOf) == 0 {
		return query, nil
	}

	clauses := make([]string, 0, len(anyOf))
	args := make([]any, 0, 2*len(anyOf))
	for i, c := range anyOf {
		clauses = append(clauses, fmt.Sprintf("item->>$%d = $%d", 2*i+1, 2*i+2))
		args = append(args, c.Attribute, c.Value)
	}
	return query + ` WHERE ` + strings.Join(clauses, " OR "), args
}

func decodeItem(doc string) (domain.Item, error) {
	var item domain.Item
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return item, nil
}

func (t *Table) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("layer", "repository"),
		attribute.String("db.system", backend),
		attribute.String("db.table", t.ident),
	)
	return middleware.StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

func (t *Table) observe(op string, start time.Time, err *error) {
	middleware.ObserveStorage(backend, op, start, *err)
}
