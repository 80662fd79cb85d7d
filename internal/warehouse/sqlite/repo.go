// Package sqlite implements the warehouse loader on SQLite via database/sql.
// It exists for local runs and tests; rows are inserted one statement at a
// time inside a transaction, and per-row failures surface as rejections.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "modernc.org/sqlite"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/sales"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/warehouse"
)

func init() {
	warehouse.Register("sqlite", func(ctx context.Context, cfg warehouse.Config) (warehouse.Loader, error) {
		return NewRepository(ctx, cfg)
	})
}

// Repository is a SQLite-backed warehouse.Loader.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database named by DSN, e.g. "orders.db" or
// "file::memory:?cache=shared".
func NewRepository(ctx context.Context, cfg warehouse.Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	r := &Repository{db: db}
	if cfg.AutoCreateTable && cfg.Table != "" {
		if err := r.ensureTable(ctx, cfg.Table); err != nil {
			db.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// InsertRows appends batch to table. order_date and unit_price are stored in
// their serialized text forms (ISO-8601 date, decimal string) so values
// round-trip without precision loss.
func (r *Repository) InsertRows(ctx context.Context, table string, batch sales.Batch) ([]warehouse.Rejection, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sales.Columns)), ", ")
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(sales.Columns, ", "), placeholders,
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		// Missing table, malformed identifier: a fault, not a rejection.
		return nil, fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	var rejected []warehouse.Rejection
	for i, o := range batch {
		_, err := stmt.ExecContext(ctx,
			o.OrderID, o.ClientID, o.ProductID, o.Country,
			o.DateString(), o.Quantity, o.UnitPrice.String(), string(o.Status),
		)
		if err != nil {
			if ctx.Err() != nil {
				return rejected, ctx.Err()
			}
			if !isRowDataError(err) {
				// Missing table, locked database, malformed statement: the
				// whole call failed, not this row.
				return nil, fmt.Errorf("sqlite: insert row %d: %w", i, err)
			}
			rejected = append(rejected, warehouse.Rejection{Index: i, Reason: err.Error()})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return rejected, nil
}

func (r *Repository) ensureTable(ctx context.Context, table string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	order_id   TEXT NOT NULL,
	client_id  TEXT NOT NULL,
	product_id TEXT NOT NULL,
	country    TEXT NOT NULL,
	order_date TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	unit_price TEXT NOT NULL,
	status     TEXT NOT NULL
)`, quoteIdent(table))
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", table, err)
	}
	return nil
}

// SQLite primary result codes attributable to row content.
const (
	codeConstraint = 19 // SQLITE_CONSTRAINT
	codeMismatch   = 20 // SQLITE_MISMATCH
)

// isRowDataError reports whether an insert failure is caused by the row's
// values (constraint violation, type mismatch) rather than by the statement
// or the connection. Extended result codes keep the primary code in the low
// byte.
func isRowDataError(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case codeConstraint, codeMismatch:
		return true
	}
	return false
}

// quoteIdent quotes a (possibly dotted) identifier. SQLite has no schemas in
// the Postgres sense, so dots inside a table name become part of one quoted
// identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
