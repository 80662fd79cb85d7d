// Package sales defines the order record model shared by the whole loader:
// the raw header-keyed row produced by the parser, the typed order that
// survives validation, and the per-file batch handed to the warehouse.
//
// The package is deliberately free of I/O so that validation and batch
// assembly are pure and trivially testable.
package sales

import (
	"time"

	"github.com/govalues/decimal"
)

// Columns is the exact header set every input file must carry. Column order
// in the file is irrelevant; rows are keyed by header name.
var Columns = []string{
	"order_id",
	"client_id",
	"product_id",
	"country",
	"order_date",
	"quantity",
	"unit_price",
	"status",
}

// DateLayout is the accepted order_date input pattern and the serialized
// output form (ISO-8601 calendar date).
const DateLayout = "2006-01-02"

// RawRow is one parsed input line, keyed by canonical column name. It is
// transient: validated and immediately discarded.
type RawRow map[string]string

// Status is the business status of an order. Only the two listed values are
// loadable; anything else is filtered out before the warehouse.
type Status string

const (
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Loadable reports whether the status passes the allow-list filter.
// Comparison is exact: no trimming, no case folding.
func (s Status) Loadable() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Order is a fully typed, filter-passing record ready for loading.
//
// Identifiers are opaque strings: client_id and product_id are carried
// through exactly as they appear in the file. UnitPrice keeps the decimal
// text value intact (19.99 stays 19.99, never 19).
type Order struct {
	OrderID   string
	ClientID  string
	ProductID string
	Country   string
	OrderDate time.Time
	Quantity  int64
	UnitPrice decimal.Decimal
	Status    Status
}

// DateString returns OrderDate in its serialized ISO-8601 form.
func (o Order) DateString() string {
	return o.OrderDate.Format(DateLayout)
}

// Batch is the ordered set of validated orders produced from one file and
// loaded in a single sink call. Row order within a file is preserved.
type Batch []Order
