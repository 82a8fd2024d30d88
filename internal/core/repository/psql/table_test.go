package psql

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/duynhne/customer-service/internal/core/domain"
)

type call struct {
	sql  string
	args []any
}

// fakeQuerier records every statement and answers with canned rows and tags.
type fakeQuerier struct {
	calls []call

	rows    []string
	row     string
	rowErr  error
	tag     pgconn.CommandTag
	execErr error
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql, args})
	return &fakeRows{docs: f.rows, pos: -1}, nil
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql, args})
	return fakeRow{doc: f.row, err: f.rowErr}
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql, args})
	return f.tag, f.execErr
}

func (f *fakeQuerier) last(t *testing.T) call {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("no statement was sent")
	}
	return f.calls[len(f.calls)-1]
}

type fakeRow struct {
	doc string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.doc
	return nil
}

type fakeRows struct {
	docs []string
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return []any{r.docs[r.pos]}, nil }
func (r *fakeRows) RawValues() [][]byte                          { return [][]byte{[]byte(r.docs[r.pos])} }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.docs)
}

func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.docs[r.pos]
	return nil
}

func TestScanQuery(t *testing.T) {
	tests := []struct {
		name     string
		anyOf    []domain.Condition
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "full scan",
			wantSQL: `SELECT item::text FROM "customers"`,
		},
		{
			name: "uniqueness filter",
			anyOf: []domain.Condition{
				{Attribute: "customerId", Value: "c-1"},
				{Attribute: "email", Value: "a@example.com"},
				{Attribute: "userName", Value: "alice"},
			},
			wantSQL:  `SELECT item::text FROM "customers" WHERE item->>$1 = $2 OR item->>$3 = $4 OR item->>$5 = $6`,
			wantArgs: []any{"customerId", "c-1", "email", "a@example.com", "userName", "alice"},
		},
	}

	table := NewTable(nil, "customers", domain.AttrCustomerID)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sql, args := scanQuery(table.ident, tc.anyOf)
			if sql != tc.wantSQL {
				t.Fatalf("expected sql %q, got %q", tc.wantSQL, sql)
			}
			if len(args) != len(tc.wantArgs) {
				t.Fatalf("expected %d args, got %d", len(tc.wantArgs), len(args))
			}
			for i := range args {
				if args[i] != tc.wantArgs[i] {
					t.Fatalf("arg %d: expected %v, got %v", i, tc.wantArgs[i], args[i])
				}
			}
		})
	}
}

func TestDecodeItemKeepsNestedAddress(t *testing.T) {
	item, err := decodeItem(`{"customerId":"c-1","address":{"city":"Singapore"}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	address, ok := item["address"].(map[string]any)
	if !ok || address["city"] != "Singapore" {
		t.Fatalf("expected nested address, got %#v", item["address"])
	}
}

func TestScanDecodesRows(t *testing.T) {
	db := &fakeQuerier{rows: []string{`{"customerId":"c-1"}`, `{"customerId":"c-2"}`}}
	table := NewTable(db, "customers", domain.AttrCustomerID)

	items, err := table.Scan(context.Background(), domain.Condition{Attribute: "email", Value: "a@example.com"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(items) != 2 || items[0]["customerId"] != "c-1" || items[1]["customerId"] != "c-2" {
		t.Fatalf("unexpected items %#v", items)
	}
	sent := db.last(t)
	if !strings.HasSuffix(sent.sql, `WHERE item->>$1 = $2`) || sent.args[0] != "email" || sent.args[1] != "a@example.com" {
		t.Fatalf("unexpected statement %q %v", sent.sql, sent.args)
	}
}

func TestGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := &fakeQuerier{row: `{"customerId":"c-1","firstName":"Ada"}`}
		table := NewTable(db, "customers", domain.AttrCustomerID)

		item, err := table.Get(context.Background(), "c-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if item["firstName"] != "Ada" {
			t.Fatalf("unexpected item %#v", item)
		}
		sent := db.last(t)
		if sent.sql != `SELECT item::text FROM "customers" WHERE item_key = $1` || sent.args[0] != "c-1" {
			t.Fatalf("unexpected statement %q %v", sent.sql, sent.args)
		}
	})

	t.Run("no rows is item not found", func(t *testing.T) {
		table := NewTable(&fakeQuerier{rowErr: pgx.ErrNoRows}, "customers", domain.AttrCustomerID)

		_, err := table.Get(context.Background(), "missing")
		if !errors.Is(err, domain.ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("driver error is passed through", func(t *testing.T) {
		down := errors.New("connection refused")
		table := NewTable(&fakeQuerier{rowErr: down}, "customers", domain.AttrCustomerID)

		_, err := table.Get(context.Background(), "c-1")
		if !errors.Is(err, down) || errors.Is(err, domain.ErrItemNotFound) {
			t.Fatalf("expected wrapped driver error, got %v", err)
		}
	})
}

func TestPutUpsertsDocumentUnderKey(t *testing.T) {
	db := &fakeQuerier{tag: pgconn.NewCommandTag("INSERT 0 1")}
	table := NewTable(db, "customers", domain.AttrCustomerID)

	if err := table.Put(context.Background(), domain.Item{"customerId": "c-1", "email": "a@example.com"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	sent := db.last(t)
	if !strings.Contains(sent.sql, `INSERT INTO "customers"`) || !strings.Contains(sent.sql, "ON CONFLICT (item_key) DO UPDATE") {
		t.Fatalf("unexpected statement %q", sent.sql)
	}
	if sent.args[0] != "c-1" {
		t.Fatalf("expected key arg c-1, got %v", sent.args[0])
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(sent.args[1].(string)), &doc); err != nil {
		t.Fatalf("document arg is not JSON: %v", err)
	}
	if doc["email"] != "a@example.com" {
		t.Fatalf("unexpected document %#v", doc)
	}
}

func TestPutRequiresKeyAttribute(t *testing.T) {
	db := &fakeQuerier{}
	table := NewTable(db, "customers", domain.AttrCustomerID)

	if err := table.Put(context.Background(), domain.Item{"email": "a@example.com"}); err == nil {
		t.Fatal("expected error for item without key")
	}
	if len(db.calls) != 0 {
		t.Fatalf("expected no statement, got %d", len(db.calls))
	}
}

func TestUpdateReplacesAddressWhole(t *testing.T) {
	db := &fakeQuerier{row: `{"customerId":"c-1","firstName":"Augusta","address":{"city":"London"}}`}
	table := NewTable(db, "customers", domain.AttrCustomerID)

	set := domain.Item{
		"firstName": "Augusta",
		"address":   map[string]any{"city": "London"},
	}
	item, err := table.Update(context.Background(), "c-1", set)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if item["firstName"] != "Augusta" {
		t.Fatalf("expected returned document, got %#v", item)
	}

	sent := db.last(t)
	want := `UPDATE "customers" SET item = item || $2::jsonb WHERE item_key = $1 RETURNING item::text`
	if sent.sql != want {
		t.Fatalf("expected sql %q, got %q", want, sent.sql)
	}
	if sent.args[0] != "c-1" {
		t.Fatalf("expected key arg c-1, got %v", sent.args[0])
	}

	// || on jsonb replaces top-level keys, so the patch must carry the full address object
	var patch map[string]any
	if err := json.Unmarshal([]byte(sent.args[1].(string)), &patch); err != nil {
		t.Fatalf("patch arg is not JSON: %v", err)
	}
	address, ok := patch["address"].(map[string]any)
	if !ok || len(address) != 1 || address["city"] != "London" {
		t.Fatalf("expected top-level address object in patch, got %#v", patch["address"])
	}
}

func TestUpdateMissingRowIsConditionFailure(t *testing.T) {
	table := NewTable(&fakeQuerier{rowErr: pgx.ErrNoRows}, "customers", domain.AttrCustomerID)

	_, err := table.Update(context.Background(), "missing", domain.Item{"firstName": "x"})
	if !errors.Is(err, domain.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		execErr error
		wantErr error
	}{
		{name: "deleted", tag: "DELETE 1"},
		{name: "no rows affected", tag: "DELETE 0", wantErr: domain.ErrConditionFailed},
		{name: "driver error", execErr: errDriver, wantErr: errDriver},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := &fakeQuerier{tag: pgconn.NewCommandTag(tc.tag), execErr: tc.execErr}
			table := NewTable(db, "customers", domain.AttrCustomerID)

			err := table.Delete(context.Background(), "c-1")
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("delete: %v", err)
				}
			} else if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}

			sent := db.last(t)
			if sent.sql != `DELETE FROM "customers" WHERE item_key = $1` || sent.args[0] != "c-1" {
				t.Fatalf("unexpected statement %q %v", sent.sql, sent.args)
			}
		})
	}
}

var errDriver = errors.New("connection reset")

func TestEnsureSchema(t *testing.T) {
	db := &fakeQuerier{}
	table := NewTable(db, "customers", domain.AttrCustomerID)

	if err := table.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	sent := db.last(t)
	if sent.sql != `CREATE TABLE IF NOT EXISTS "customers" (item_key TEXT PRIMARY KEY, item JSONB NOT NULL)` {
		t.Fatalf("unexpected statement %q", sent.sql)
	}
}
