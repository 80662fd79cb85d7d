package sales

import "testing"

// sliceSource is a slice-backed RowSource that records how far it was read,
// so tests can prove Accumulate stops consuming at the cap.
type sliceSource struct {
	rows []RawRow
	pos  int
}

func (s *sliceSource) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Row() RawRow { return s.rows[s.pos-1] }
func (s *sliceSource) Line() int   { return s.pos + 1 } // +1 for the header line

/*
TestAccumulate_MixedFile runs a realistic mixed file through Accumulate:
valid rows survive in input order, invalid rows land in the error list with
their line numbers, filtered rows are only counted. One bad row never
affects its neighbours.
*/
func TestAccumulate_MixedFile(t *testing.T) {
	src := &sliceSource{rows: []RawRow{
		row(map[string]string{"order_id": "A"}),                            // line 2: valid
		row(map[string]string{"order_id": "B", "quantity": "zero"}),        // line 3: invalid quantity
		row(map[string]string{"order_id": "C", "status": "PENDING"}),       // line 4: filtered
		row(map[string]string{"order_id": "D", "status": "CANCELLED"}),     // line 5: valid
		row(map[string]string{"order_id": "E", "order_date": "30-02-2025"}), // line 6: invalid date
		row(map[string]string{"order_id": "F"}),                            // line 7: valid
	}}

	batch, rowErrs, filtered := Accumulate(src, 0)

	if got := len(batch); got != 3 {
		t.Fatalf("batch size=%d; want 3", got)
	}
	for i, want := range []string{"A", "D", "F"} {
		if batch[i].OrderID != want {
			t.Fatalf("batch[%d].OrderID=%s; want %s", i, batch[i].OrderID, want)
		}
	}

	if filtered != 1 {
		t.Fatalf("filtered=%d; want 1", filtered)
	}

	if len(rowErrs) != 2 {
		t.Fatalf("row errors=%d; want 2", len(rowErrs))
	}
	if rowErrs[0].Line != 3 || rowErrs[0].Field != "quantity" {
		t.Fatalf("rowErrs[0]=%+v; want line 3 quantity", rowErrs[0])
	}
	if rowErrs[1].Line != 6 || rowErrs[1].Field != "order_date" {
		t.Fatalf("rowErrs[1]=%+v; want line 6 order_date", rowErrs[1])
	}
}

/*
TestAccumulate_Limit verifies the sampling cap: with limit=2 Accumulate
returns exactly two validated orders and stops reading the source, leaving
the remaining rows unconsumed. Filtered and invalid rows before the cap is
reached do not count toward it.
*/
func TestAccumulate_Limit(t *testing.T) {
	src := &sliceSource{rows: []RawRow{
		row(map[string]string{"order_id": "A", "status": "PENDING"}), // filtered, not counted
		row(map[string]string{"order_id": "B"}),
		row(map[string]string{"order_id": "C", "quantity": "x"}), // invalid, not counted
		row(map[string]string{"order_id": "D"}),
		row(map[string]string{"order_id": "E"}), // must never be read
		row(map[string]string{"order_id": "F"}),
	}}

	batch, rowErrs, filtered := Accumulate(src, 2)

	if len(batch) != 2 || batch[0].OrderID != "B" || batch[1].OrderID != "D" {
		t.Fatalf("batch=%v; want [B D]", batch)
	}
	if filtered != 1 || len(rowErrs) != 1 {
		t.Fatalf("filtered=%d errors=%d; want 1 and 1", filtered, len(rowErrs))
	}
	if src.pos != 4 {
		t.Fatalf("source consumed %d rows; want 4 (lazy stop at cap)", src.pos)
	}
}

// TestAccumulate_StatusMix: one PAID, one CANCELLED, one REFUNDED, all
// otherwise well-formed. Two survive, zero validation errors, one filtered.
func TestAccumulate_StatusMix(t *testing.T) {
	src := &sliceSource{rows: []RawRow{
		row(map[string]string{"order_id": "A", "status": "PAID"}),
		row(map[string]string{"order_id": "B", "status": "CANCELLED"}),
		row(map[string]string{"order_id": "C", "status": "REFUNDED"}),
	}}

	batch, rowErrs, filtered := Accumulate(src, 0)
	if len(batch) != 2 || len(rowErrs) != 0 || filtered != 1 {
		t.Fatalf("got (%d, %d, %d); want (2, 0, 1)", len(batch), len(rowErrs), filtered)
	}
}

// TestAccumulate_Empty: a source with no rows yields an empty batch and no
// counters, without error.
func TestAccumulate_Empty(t *testing.T) {
	batch, rowErrs, filtered := Accumulate(&sliceSource{}, 0)
	if len(batch) != 0 || len(rowErrs) != 0 || filtered != 0 {
		t.Fatalf("got (%d, %d, %d); want all zero", len(batch), len(rowErrs), filtered)
	}
}
