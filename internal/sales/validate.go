package sales

import (
	"fmt"
	"strconv"
	"time"

	"github.com/govalues/decimal"
)

// Reason tags carried by RowError. Consumers switch on these rather than on
// message text.
const (
	ReasonDateFormat    = "date_format"
	ReasonNumericFormat = "numeric_format"
)

const dateInputLayout = "2006-1-2"

// RowError classifies a single invalid row. It never aborts processing of
// sibling rows; the accumulator collects these in a parallel list.
type RowError struct {
	Line   int    // 1-based input line, 0 when unknown
	Field  string // offending column
	Reason string // one of the Reason* tags
	Raw    RawRow // original values, for log correlation only
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: field %q: %s", e.Line, e.Field, e.Reason)
}

// Validate turns a raw row into exactly one of three outcomes:
//
//   - (order, nil): the row is well-formed and passes the status filter
//   - (nil, err):   a field failed validation; the row is dropped and counted
//   - (nil, nil):   the row is well-formed but its status is outside
//     {PAID, CANCELLED}; it is silently excluded, not an error
//
// Checks run in a fixed order: order_date, quantity, unit_price, status.
// A row with both a bad date and an unknown status is therefore a date error,
// not a filter drop. Identifiers and country pass through untouched.
//
// Validate is total: it returns for any input and never panics past this
// boundary.
func Validate(raw RawRow) (*Order, *RowError) {
	// dateInputLayout accepts both padded and non-padded month/day
	// (2025-03-04 and 2025-3-4), while calendar-invalid dates still fail.
	// Serialization uses DateLayout.
	date, err := time.Parse(dateInputLayout, raw["order_date"])
	if err != nil {
		return nil, &RowError{Field: "order_date", Reason: ReasonDateFormat, Raw: raw}
	}

	qty, err := strconv.ParseInt(raw["quantity"], 10, 64)
	if err != nil || qty < 1 {
		return nil, &RowError{Field: "quantity", Reason: ReasonNumericFormat, Raw: raw}
	}

	price, err := decimal.Parse(raw["unit_price"])
	if err != nil || price.IsNeg() {
		return nil, &RowError{Field: "unit_price", Reason: ReasonNumericFormat, Raw: raw}
	}

	status := Status(raw["status"])
	if !status.Loadable() {
		// Allow-list filter: silent drop, mirrors the status predicate.
		return nil, nil
	}

	return &Order{
		OrderID:   raw["order_id"],
		ClientID:  raw["client_id"],
		ProductID: raw["product_id"],
		Country:   raw["country"],
		OrderDate: date,
		Quantity:  qty,
		UnitPrice: price,
		Status:    status,
	}, nil
}
