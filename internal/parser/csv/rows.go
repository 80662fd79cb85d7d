// Package csv turns raw delimited bytes into a lazy, finite sequence of
// header-keyed rows. It is the only place that knows about the wire format;
// everything downstream works on sales.RawRow.
//
// The sequence is single-pass. Restarting means calling NewRows again on a
// fresh reader over the same content.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/sales"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// SchemaError reports a header that is missing expected columns. It is fatal
// for the whole file, unlike row-level parse errors which are soft-skipped.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("header missing expected columns: %s", strings.Join(e.Missing, ", "))
}

// Options configures parsing. The zero value is a plain UTF-8 comma-separated
// file with whitespace trimming.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// NoTrimSpace disables trimming of leading/trailing spaces per cell.
	NoTrimSpace bool

	// Encoding names the input charset: "", "utf-8", "latin-1"/"iso-8859-1",
	// or "windows-1252". Non-UTF-8 inputs are decoded on the fly.
	Encoding string
}

// Rows iterates over the data rows of one file, Scanner-style:
//
//	rows, err := csv.NewRows(r, sales.Columns, csv.Options{})
//	...
//	for rows.Next() {
//	    raw := rows.Row()
//	    ...
//	}
//	if err := rows.Err(); err != nil { ... }
//
// Malformed lines (quoting damage, wrong field count) are soft-skipped and
// counted; they never abort the file.
type Rows struct {
	cr      *csv.Reader
	header  []string
	trim    bool
	cur     sales.RawRow
	line    int
	skipped int
	err     error
	done    bool
}

// NewRows reads and checks the header, then returns the row iterator.
// Every column named in expected must be present (order-irrelevant, extra
// columns are ignored); a missing column yields a *SchemaError.
func NewRows(r io.Reader, expected []string, opt Options) (*Rows, error) {
	dec, err := decodeReader(r, opt.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(dec)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.ReuseRecord = true

	hdr, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty input: no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	header := make([]string, len(hdr))
	for i, col := range hdr {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		header[i] = strings.ToLower(c)
	}

	var missing []string
	for _, want := range expected {
		found := false
		for _, have := range header {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	return &Rows{cr: cr, header: header, trim: !opt.NoTrimSpace, line: 1}, nil
}

// Next advances to the next data row. It returns false at end of input or on
// a non-recoverable read error (see Err).
func (rs *Rows) Next() bool {
	if rs.done {
		return false
	}
	for {
		rec, err := rs.cr.Read()
		rs.line++
		if err == io.EOF {
			rs.done = true
			return false
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// Soft-fail this line and continue.
				rs.skipped++
				continue
			}
			rs.err = err
			rs.done = true
			return false
		}

		row := make(sales.RawRow, len(rs.header))
		for i, val := range rec {
			if i >= len(rs.header) {
				break
			}
			if rs.trim {
				val = strings.TrimSpace(val)
			}
			row[rs.header[i]] = val
		}
		rs.cur = row
		return true
	}
}

// Row returns the current row. Valid only after a true Next.
func (rs *Rows) Row() sales.RawRow { return rs.cur }

// Line returns the 1-based input line of the current row (header is line 1).
func (rs *Rows) Line() int { return rs.line }

// Skipped reports how many malformed lines were soft-dropped so far.
func (rs *Rows) Skipped() int { return rs.skipped }

// Err returns the first non-recoverable error hit during iteration, if any.
func (rs *Rows) Err() error { return rs.err }
