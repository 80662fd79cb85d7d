// Package postgres implements the warehouse loader on Postgres using pgx v5.
//
// The fast path is a single COPY of the whole batch. When COPY fails with a
// data or constraint error, the batch is replayed row by row so that good
// rows still land and the bad ones come back as per-row rejections,
// matching the "sink accepts all rows except the listed ones" contract.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/sales"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/warehouse"
)

func init() {
	warehouse.Register("postgres", func(ctx context.Context, cfg warehouse.Config) (warehouse.Loader, error) {
		return NewRepository(ctx, cfg)
	})
}

// Repository is a Postgres-backed warehouse.Loader.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository opens a pgx pool. With cfg.AutoCreateTable set, the target
// table is created if missing before the first load.
func NewRepository(ctx context.Context, cfg warehouse.Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	r := &Repository{pool: pool}
	if cfg.AutoCreateTable && cfg.Table != "" {
		if err := r.ensureTable(ctx, cfg.Table); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// Raw pool calls behind function variables so tests can exercise the COPY
// failure and row-wise replay paths without a server.
var (
	copyRows = func(ctx context.Context, pool *pgxpool.Pool, table pgx.Identifier, columns []string, rows [][]any) (int64, error) {
		return pool.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows))
	}
	execRow = func(ctx context.Context, pool *pgxpool.Pool, sql string, args []any) error {
		_, err := pool.Exec(ctx, sql, args...)
		return err
	}
)

// InsertRows copies batch into table. An empty batch returns immediately;
// the coordinator additionally guards against calling with one, to keep the
// sink free of spurious empty payloads.
func (r *Repository) InsertRows(ctx context.Context, table string, batch sales.Batch) ([]warehouse.Rejection, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	rows := make([][]any, 0, len(batch))
	for i := range batch {
		row, err := rowValues(batch[i])
		if err != nil {
			return nil, fmt.Errorf("postgres: encode row %d: %w", i, err)
		}
		rows = append(rows, row)
	}

	_, err := copyRows(ctx, r.pool, pgx.Identifier(splitFQN(table)), sales.Columns, rows)
	if err == nil {
		return nil, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isRowDataError(pgErr) {
		// One poisoned row aborted the COPY; replay individually so the rest
		// of the batch is not lost.
		return r.insertRowwise(ctx, table, rows)
	}
	return nil, fmt.Errorf("postgres: copy into %s: %w", table, err)
}

// insertRowwise replays a failed batch one INSERT at a time, collecting
// per-row failures as rejections. Transport-level failures abort the replay.
func (r *Repository) insertRowwise(ctx context.Context, table string, rows [][]any) ([]warehouse.Rejection, error) {
	placeholders := make([]string, len(sales.Columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		pgFQN(table),
		strings.Join(quoteAll(sales.Columns), ", "),
		strings.Join(placeholders, ", "),
	)

	var rejected []warehouse.Rejection
	for i, row := range rows {
		if err := execRow(ctx, r.pool, stmt, row); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && isRowDataError(pgErr) {
				rejected = append(rejected, warehouse.Rejection{Index: i, Reason: pgErr.Message})
				continue
			}
			return rejected, fmt.Errorf("postgres: insert row %d: %w", i, err)
		}
	}
	return rejected, nil
}

func (r *Repository) ensureTable(ctx context.Context, table string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	order_id   text NOT NULL,
	client_id  text NOT NULL,
	product_id text NOT NULL,
	country    text NOT NULL,
	order_date date NOT NULL,
	quantity   bigint NOT NULL,
	unit_price numeric NOT NULL,
	status     text NOT NULL
)`, pgFQN(table))
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", table, err)
	}
	return nil
}

// rowValues maps an order onto sales.Columns order. unit_price goes through
// pgtype.Numeric so the decimal text value reaches the numeric column
// without a float round-trip.
func rowValues(o sales.Order) ([]any, error) {
	var price pgtype.Numeric
	if err := price.Scan(o.UnitPrice.String()); err != nil {
		return nil, fmt.Errorf("unit_price %q: %w", o.UnitPrice.String(), err)
	}
	return []any{
		o.OrderID,
		o.ClientID,
		o.ProductID,
		o.Country,
		o.OrderDate,
		o.Quantity,
		price,
		string(o.Status),
	}, nil
}

// isRowDataError reports whether a Postgres error is attributable to row
// content (data exception or integrity violation) rather than transport,
// permissions, or missing objects.
func isRowDataError(e *pgconn.PgError) bool {
	code := e.SQLState()
	return strings.HasPrefix(code, "22") || strings.HasPrefix(code, "23")
}

// splitFQN converts "schema.table" into {"schema","table"} for pgx.Identifier.
func splitFQN(fqn string) []string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pgFQN quotes each segment of a dotted identifier.
func pgFQN(fqn string) string {
	return strings.Join(quoteAll(splitFQN(fqn)), ".")
}

func quoteAll(idents []string) []string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
	}
	return out
}
