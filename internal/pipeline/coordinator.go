// Package pipeline drives the per-file ingestion flow (read, parse,
// validate, accumulate, load) and the two run modes built on top of it:
// single-file ingestion and historical backfill over a whole container.
//
// The coordinator owns all cross-file state (run summary, counters). Data
// flows strictly left to right per file; files are independent of each other
// except for the shared warehouse table.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/metrics"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/objstore"
	csvparser "github.com/youssefmaimouni/GoogleCloudProject/internal/parser/csv"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/sales"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/warehouse"
)

const (
	// dataSuffix gates which object keys are acted on at all.
	dataSuffix = ".csv"

	// channelSuffix selects per-channel order files during backfill
	// (WEB_orders.csv, MOB_orders.csv, PART_orders.csv, ...).
	channelSuffix = "_orders.csv"

	// maxLoggedRowErrors caps per-file row diagnostics in the log.
	maxLoggedRowErrors = 3
)

// Outcome is the terminal state of one file's pipeline.
type Outcome string

const (
	// OutcomeDone means the file completed, including the empty-batch case.
	OutcomeDone Outcome = "done"
	// OutcomeFailed means a fatal per-file error (read, schema, load).
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the key was ignored without side effect.
	OutcomeSkipped Outcome = "skipped"
)

// FileReport is the per-file entry of a RunSummary.
type FileReport struct {
	Container   string
	Key         string
	Fingerprint string // xxh3 of the raw object bytes

	RowsRead     int // rows consumed from the file (excl. header and parse-skips); under MaxRows this stops at the cap, not the file's total
	ParseSkipped int // malformed lines soft-dropped by the parser
	RowsInvalid  int // rows dropped by validation
	RowsFiltered int // rows dropped by the status allow-list
	RowsRejected int // rows refused individually by the sink
	RowsLoaded   int // rows accepted by the sink

	Outcome Outcome
	Err     error // set when Outcome == OutcomeFailed
}

// RunSummary aggregates one coordinator invocation across all files.
type RunSummary struct {
	RunID string
	Files []FileReport
}

// Succeeded counts files that reached OutcomeDone.
func (s RunSummary) Succeeded() int { return s.countOutcome(OutcomeDone) }

// Failed counts files that ended in OutcomeFailed.
func (s RunSummary) Failed() int { return s.countOutcome(OutcomeFailed) }

func (s RunSummary) countOutcome(o Outcome) int {
	n := 0
	for _, f := range s.Files {
		if f.Outcome == o {
			n++
		}
	}
	return n
}

// RowsLoaded sums loaded rows across all files.
func (s RunSummary) RowsLoaded() int {
	n := 0
	for _, f := range s.Files {
		n += f.RowsLoaded
	}
	return n
}

// Coordinator wires one object store and one warehouse loader into the
// per-file pipeline. Construct it once with explicit clients; tests inject
// fakes for both.
type Coordinator struct {
	Store  objstore.Store
	Loader warehouse.Loader

	// Job labels metrics and log lines for this deployment.
	Job string

	// Container is the bucket/top-level directory holding dated folders.
	Container string

	// Table is the fully qualified warehouse table batches are appended to.
	Table string

	// ParserOptions is passed through to the CSV row iterator.
	ParserOptions csvparser.Options

	// MaxRows caps validated rows collected per file; 0 means no cap.
	MaxRows int

	// Workers bounds concurrent files during Backfill; <=1 means sequential.
	Workers int

	// ReadTimeout and LoadTimeout bound the two blocking I/O calls.
	// Zero disables the respective timeout.
	ReadTimeout time.Duration
	LoadTimeout time.Duration
}

// Eligible reports whether a key is selected by the backfill predicate:
// a per-channel orders file living directly under a single date folder.
// Deeper nesting (archives, scratch dirs) is excluded.
func Eligible(key string) bool {
	return strings.HasSuffix(key, channelSuffix) && strings.Count(key, "/") == 1
}

// ProcessObject runs the pipeline once for a single object key.
//
// Keys without the data-file extension are ignored with no side effect,
// matching the trigger contract: notification fan-out may deliver manifests
// or temp files alongside data.
//
// Fatal conditions (missing object, schema mismatch, sink transport failure)
// are returned to the caller; row-level drops and sink rejections are logged
// and reported in the FileReport only.
func (c *Coordinator) ProcessObject(ctx context.Context, key string) (FileReport, error) {
	rep := FileReport{Container: c.Container, Key: key}

	if !strings.HasSuffix(key, dataSuffix) {
		rep.Outcome = OutcomeSkipped
		metrics.RecordFile(c.Job, string(OutcomeSkipped))
		return rep, nil
	}

	data, err := c.readObject(ctx, key)
	if err != nil {
		return c.fail(rep, fmt.Errorf("read %s/%s: %w", c.Container, key, err))
	}
	rep.Fingerprint = fmt.Sprintf("%016x", xxh3.Hash(data))

	start := time.Now()
	rows, err := csvparser.NewRows(bytes.NewReader(data), sales.Columns, c.ParserOptions)
	if err != nil {
		metrics.RecordStep(c.Job, "parse", err, time.Since(start))
		return c.fail(rep, fmt.Errorf("parse %s: %w", key, err))
	}

	batch, rowErrs, filtered := sales.Accumulate(rows, c.MaxRows)
	if err := rows.Err(); err != nil {
		metrics.RecordStep(c.Job, "parse", err, time.Since(start))
		return c.fail(rep, fmt.Errorf("parse %s: %w", key, err))
	}
	metrics.RecordStep(c.Job, "parse", nil, time.Since(start))

	rep.RowsRead = len(batch) + len(rowErrs) + filtered
	rep.ParseSkipped = rows.Skipped()
	rep.RowsInvalid = len(rowErrs)
	rep.RowsFiltered = filtered
	c.logRowErrors(key, rowErrs)

	rejected, err := c.loadBatch(ctx, batch)
	if err != nil {
		return c.fail(rep, fmt.Errorf("load %s into %s: %w", key, c.Table, err))
	}
	rep.RowsRejected = len(rejected)
	rep.RowsLoaded = len(batch) - len(rejected)
	c.logRejections(key, batch, rejected)

	rep.Outcome = OutcomeDone
	c.recordRows(rep)
	metrics.RecordFile(c.Job, string(OutcomeDone))

	log.WithFields(log.Fields{
		"key":         key,
		"fingerprint": rep.Fingerprint,
		"read":        rep.RowsRead,
		"invalid":     rep.RowsInvalid,
		"filtered":    rep.RowsFiltered,
		"rejected":    rep.RowsRejected,
		"loaded":      rep.RowsLoaded,
	}).Info("file done")

	return rep, nil
}

// Backfill enumerates the container, selects per-channel order files under
// dated folders (see Eligible), and processes each one independently. A
// failing file is recorded in the summary and never stops the run; Backfill
// itself only errors when the listing cannot be obtained.
//
// Files are processed by a bounded worker pool. Each worker writes to its
// own summary slot, so reports stay in listing order with no shared counters.
func (c *Coordinator) Backfill(ctx context.Context, prefix string) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}

	keys, err := c.Store.List(ctx, c.Container, prefix)
	if err != nil {
		return summary, fmt.Errorf("list %s: %w", c.Container, err)
	}

	var selected []string
	for _, key := range keys {
		if !strings.HasSuffix(key, dataSuffix) {
			continue // not a data file; not counted at all
		}
		if Eligible(key) {
			selected = append(selected, key)
		}
	}
	log.Printf("backfill run=%s container=%s prefix=%q candidates=%d selected=%d",
		summary.RunID, c.Container, prefix, len(keys), len(selected))

	reports := make([]FileReport, len(selected))

	g := new(errgroup.Group)
	if c.Workers > 1 {
		g.SetLimit(c.Workers)
	} else {
		g.SetLimit(1)
	}
	for i, key := range selected {
		g.Go(func() error {
			rep, err := c.ProcessObject(ctx, key)
			if err != nil {
				// Isolated: logged against this file's slot, run continues.
				log.Printf("backfill: %s failed: %v", key, err)
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in their report

	summary.Files = reports
	log.WithFields(log.Fields{
		"run":       summary.RunID,
		"files":     len(summary.Files),
		"succeeded": summary.Succeeded(),
		"failed":    summary.Failed(),
		"loaded":    summary.RowsLoaded(),
	}).Info("backfill complete")

	return summary, nil
}

// readObject fetches the object bytes under the configured read timeout.
func (c *Coordinator) readObject(ctx context.Context, key string) ([]byte, error) {
	if c.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ReadTimeout)
		defer cancel()
	}
	start := time.Now()
	data, err := c.Store.Get(ctx, c.Container, key)
	metrics.RecordStep(c.Job, "read", err, time.Since(start))
	return data, err
}

// loadBatch hands the batch to the sink under the configured load timeout.
// An empty batch is a no-op success: the loader is never invoked, avoiding a
// spurious empty-payload call.
func (c *Coordinator) loadBatch(ctx context.Context, batch sales.Batch) ([]warehouse.Rejection, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if c.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.LoadTimeout)
		defer cancel()
	}
	start := time.Now()
	rejected, err := c.Loader.InsertRows(ctx, c.Table, batch)
	metrics.RecordStep(c.Job, "load", err, time.Since(start))
	return rejected, err
}

func (c *Coordinator) fail(rep FileReport, err error) (FileReport, error) {
	rep.Outcome = OutcomeFailed
	rep.Err = err
	c.recordRows(rep)
	metrics.RecordFile(c.Job, string(OutcomeFailed))
	return rep, err
}

func (c *Coordinator) recordRows(rep FileReport) {
	metrics.RecordRows(c.Job, "read", int64(rep.RowsRead))
	metrics.RecordRows(c.Job, "validated", int64(rep.RowsLoaded+rep.RowsRejected))
	metrics.RecordRows(c.Job, "invalid", int64(rep.RowsInvalid))
	metrics.RecordRows(c.Job, "filtered", int64(rep.RowsFiltered))
	metrics.RecordRows(c.Job, "rejected", int64(rep.RowsRejected))
	metrics.RecordRows(c.Job, "loaded", int64(rep.RowsLoaded))
}

// logRowErrors prints the first few validation drops for a file; the rest
// are summarized by count. Raw values stay out of the log payload except for
// the offending field reference.
func (c *Coordinator) logRowErrors(key string, rowErrs []sales.RowError) {
	for i := range rowErrs {
		if i >= maxLoggedRowErrors {
			log.Printf("%s: ... %d additional row errors suppressed", key, len(rowErrs)-maxLoggedRowErrors)
			break
		}
		e := rowErrs[i]
		log.Printf("%s: row %d: field %q: %s", key, e.Line, e.Field, e.Reason)
	}
}

// logRejections prints the first few sink rejections with the order_id of
// the refused row for cross-referencing against the source file.
func (c *Coordinator) logRejections(key string, batch sales.Batch, rejected []warehouse.Rejection) {
	for i, r := range rejected {
		if i >= maxLoggedRowErrors {
			log.Printf("%s: ... %d additional sink rejections suppressed", key, len(rejected)-maxLoggedRowErrors)
			break
		}
		orderID := ""
		if r.Index >= 0 && r.Index < len(batch) {
			orderID = batch[r.Index].OrderID
		}
		log.Printf("%s: sink rejected row %d (order_id=%s): %s", key, r.Index, orderID, r.Reason)
	}
}
