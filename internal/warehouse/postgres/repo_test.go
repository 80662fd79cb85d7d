package postgres

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/sales"
)

// Server-side behavior is faked through the copyRows/execRow seams; loading
// against a live server is exercised by integration runs, not unit tests.

func swapSeams(t *testing.T) {
	t.Helper()
	origCopy, origExec := copyRows, execRow
	t.Cleanup(func() { copyRows, execRow = origCopy, origExec })
}

func testOrder(t *testing.T, id string) sales.Order {
	t.Helper()
	price, err := decimal.Parse("9.99")
	if err != nil {
		t.Fatal(err)
	}
	return sales.Order{
		OrderID:   id,
		ClientID:  "C1",
		ProductID: "P1",
		Country:   "FR",
		OrderDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Quantity:  1,
		UnitPrice: price,
		Status:    sales.StatusPaid,
	}
}

/*
TestInsertRows_CopySalvage drives the COPY failure path: a data-class COPY
error triggers a row-wise replay in which a constraint-failing row becomes a
Rejection carrying its batch index and the server message, while the other
rows land and the call as a whole succeeds.
*/
func TestInsertRows_CopySalvage(t *testing.T) {
	swapSeams(t)
	copyRows = func(ctx context.Context, pool *pgxpool.Pool, table pgx.Identifier, columns []string, rows [][]any) (int64, error) {
		return 0, &pgconn.PgError{Code: "22P02", Message: "invalid input syntax"}
	}
	var replayed []string
	execRow = func(ctx context.Context, pool *pgxpool.Pool, sql string, args []any) error {
		id := args[0].(string)
		replayed = append(replayed, id)
		if id == "O2" {
			return &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
		}
		return nil
	}

	r := &Repository{}
	batch := sales.Batch{testOrder(t, "O1"), testOrder(t, "O2"), testOrder(t, "O3")}
	rejected, err := r.InsertRows(context.Background(), "dataw.orders", batch)
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if len(rejected) != 1 || rejected[0].Index != 1 || rejected[0].Reason != "duplicate key value" {
		t.Fatalf("rejected=%v; want index 1 with server message", rejected)
	}
	if !reflect.DeepEqual(replayed, []string{"O1", "O2", "O3"}) {
		t.Fatalf("replayed=%v; want all rows in order", replayed)
	}
}

// TestInsertRows_CopyFault: a non-data COPY failure (missing table) is a
// call-level error and must not fall into the row-wise replay.
func TestInsertRows_CopyFault(t *testing.T) {
	swapSeams(t)
	copyRows = func(ctx context.Context, pool *pgxpool.Pool, table pgx.Identifier, columns []string, rows [][]any) (int64, error) {
		return 0, &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	}
	execRow = func(ctx context.Context, pool *pgxpool.Pool, sql string, args []any) error {
		t.Fatal("row-wise replay must not run for non-data COPY failures")
		return nil
	}

	r := &Repository{}
	rejected, err := r.InsertRows(context.Background(), "dataw.orders", sales.Batch{testOrder(t, "O1")})
	if err == nil {
		t.Fatal("err=nil; want copy failure")
	}
	if rejected != nil {
		t.Fatalf("rejected=%v; want none", rejected)
	}
}

// TestInsertRows_ReplayTransportFault: a transport failure mid-replay aborts
// the call instead of masquerading as one more rejection.
func TestInsertRows_ReplayTransportFault(t *testing.T) {
	swapSeams(t)
	copyRows = func(ctx context.Context, pool *pgxpool.Pool, table pgx.Identifier, columns []string, rows [][]any) (int64, error) {
		return 0, &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	}
	execRow = func(ctx context.Context, pool *pgxpool.Pool, sql string, args []any) error {
		return errors.New("connection reset")
	}

	r := &Repository{}
	_, err := r.InsertRows(context.Background(), "dataw.orders", sales.Batch{testOrder(t, "O1")})
	if err == nil {
		t.Fatal("err=nil; want transport failure")
	}
}

func TestSplitFQN(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"orders", []string{"orders"}},
		{"dataw.orders", []string{"dataw", "orders"}},
		{"db.dataw.orders", []string{"db", "dataw", "orders"}},
		{".orders", []string{"orders"}}, // stray dot dropped
	}
	for _, tc := range cases {
		if got := splitFQN(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitFQN(%q)=%v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestPgFQN(t *testing.T) {
	cases := []struct{ in, want string }{
		{"orders", `"orders"`},
		{"dataw.orders", `"dataw"."orders"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, tc := range cases {
		if got := pgFQN(tc.in); got != tc.want {
			t.Errorf("pgFQN(%q)=%s; want %s", tc.in, got, tc.want)
		}
	}
}

func TestIsRowDataError(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"22P02", true}, // invalid text representation
		{"22003", true}, // numeric out of range
		{"23505", true}, // unique violation
		{"23502", true}, // not-null violation
		{"42P01", false}, // undefined table
		{"28P01", false}, // bad password
		{"08006", false}, // connection failure
	}
	for _, tc := range cases {
		e := &pgconn.PgError{Code: tc.code}
		if got := isRowDataError(e); got != tc.want {
			t.Errorf("isRowDataError(%s)=%v; want %v", tc.code, got, tc.want)
		}
	}
}

/*
TestRowValues checks the column mapping sent to COPY: positions follow
sales.Columns, the date stays a time.Time for the date column, and the
price arrives as pgtype.Numeric carrying the exact decimal value.
*/
func TestRowValues(t *testing.T) {
	price, err := decimal.Parse("19.99")
	if err != nil {
		t.Fatal(err)
	}
	o := sales.Order{
		OrderID:   "O1",
		ClientID:  "C1",
		ProductID: "P1",
		Country:   "FR",
		OrderDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Quantity:  3,
		UnitPrice: price,
		Status:    sales.StatusPaid,
	}

	row, err := rowValues(o)
	if err != nil {
		t.Fatalf("rowValues: %v", err)
	}
	if len(row) != len(sales.Columns) {
		t.Fatalf("len=%d; want %d", len(row), len(sales.Columns))
	}
	if row[0] != "O1" || row[3] != "FR" || row[5] != int64(3) || row[7] != "PAID" {
		t.Fatalf("row=%v", row)
	}
	num, ok := row[6].(pgtype.Numeric)
	if !ok || !num.Valid {
		t.Fatalf("unit_price=%T %v; want valid pgtype.Numeric", row[6], row[6])
	}
	v, err := num.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != "19.99" {
		t.Fatalf("numeric value=%v; want 19.99", v)
	}
}
