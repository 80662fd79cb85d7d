// Package objstore abstracts the object store holding raw sales files.
//
// A Store is constructed once by the caller and passed by reference into the
// pipeline, so tests can substitute fakes. Implementations live in
// subpackages (fsstore for a local directory tree, s3store for any
// S3-compatible service).
package objstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the (container, key) pair does not
// exist. Callers distinguish it from transient I/O failures with errors.Is.
var ErrNotFound = errors.New("objstore: object not found")

// Store reads whole objects and enumerates keys. Both calls are synchronous;
// the pipeline applies its own timeouts via ctx.
type Store interface {
	// Get returns the full byte content of one object.
	Get(ctx context.Context, container, key string) ([]byte, error)

	// List returns all keys in container starting with prefix, in
	// lexicographic order. An empty prefix lists everything.
	List(ctx context.Context, container, prefix string) ([]string, error)
}
