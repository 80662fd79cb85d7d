package sales

// RowSource is the lazy, single-pass row sequence consumed by Accumulate.
// It is satisfied by the CSV parser's Rows iterator; tests use slice-backed
// fakes. The sequence is restartable only by re-creating the source.
type RowSource interface {
	// Next advances to the next row, returning false at end of input.
	Next() bool
	// Row returns the current row. Only valid after a true Next.
	Row() RawRow
	// Line returns the 1-based input line of the current row.
	Line() int
}

// Accumulate drains src through Validate, collecting survivors into a Batch
// in input order. Rows that fail validation land in the returned error list;
// rows dropped by the status filter are only counted.
//
// When limit > 0, consumption stops as soon as limit validated orders have
// been collected; remaining rows are never read, which keeps the "sample
// first N" reprocessing mode cheap on large files.
func Accumulate(src RowSource, limit int) (Batch, []RowError, int) {
	var (
		batch    Batch
		rowErrs  []RowError
		filtered int
	)

	for src.Next() {
		order, verr := Validate(src.Row())
		switch {
		case verr != nil:
			verr.Line = src.Line()
			rowErrs = append(rowErrs, *verr)
		case order == nil:
			filtered++
		default:
			batch = append(batch, *order)
			if limit > 0 && len(batch) >= limit {
				return batch, rowErrs, filtered
			}
		}
	}

	return batch, rowErrs, filtered
}
