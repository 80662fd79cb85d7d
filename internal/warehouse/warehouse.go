// Package warehouse contains the sink-agnostic loading contract and the
// backend factory. Concrete backends (Postgres, SQLite) live in subpackages
// and register themselves; importing warehouse/all enables every built-in
// kind.
package warehouse

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/sales"
)

// Rejection is one row the sink refused while accepting the rest of the
// batch. It is reported, not retried; a transport fault is a returned error
// instead.
type Rejection struct {
	Index  int    // position of the row within the submitted batch
	Reason string // sink-provided message (constraint name, type error, ...)
}

// Loader appends one batch to a warehouse table.
//
// The returned slice lists per-row rejections; empty means full acceptance.
// Loads are append-only: re-submitting the same batch duplicates rows, and
// any dedup ledger is the caller's concern.
type Loader interface {
	InsertRows(ctx context.Context, table string, batch sales.Batch) ([]Rejection, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Kind names a registered backend ("postgres", "sqlite").
	Kind string

	// DSN is the backend connection string.
	DSN string

	// Table is the fully qualified target table (e.g. "dataw.orders").
	Table string

	// AutoCreateTable creates the target table on open when the backend
	// supports it. Meant for local/dev runs, not production.
	AutoCreateTable bool
}

// Factory constructs a Loader for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Loader, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register makes a backend available under kind. Later registrations for the
// same kind win, which lets tests override built-ins.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[kind] = f
}

// New opens a Loader for cfg.Kind. Unknown kinds list the registered ones in
// the error so a config typo is diagnosable from the message alone.
func New(ctx context.Context, cfg Config) (Loader, error) {
	mu.RLock()
	f, ok := registry[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("warehouse: unknown kind %q (registered: %v)", cfg.Kind, kinds())
	}
	return f(ctx, cfg)
}

func kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
