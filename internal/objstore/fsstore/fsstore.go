// Package fsstore implements objstore.Store on a local directory tree laid
// out as <root>/<container>/<key>, the same shape the synthetic order
// generators write (e.g. globalshop-raw/2025-04-01/WEB_orders.csv).
package fsstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/objstore"
)

// Store serves objects from a root directory. Keys are slash-separated
// regardless of the host OS.
type Store struct {
	root string
}

// New returns a Store rooted at dir. The directory does not have to exist
// yet; Get and List report missing paths as objstore.ErrNotFound or an empty
// listing respectively.
func New(dir string) *Store { return &Store{root: dir} }

func (s *Store) Get(ctx context.Context, container, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.root, container, filepath.FromSlash(key))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", container, key, objstore.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s/%s: %w", container, key, err)
	}
	return data, nil
}

func (s *Store) List(ctx context.Context, container, prefix string) ([]string, error) {
	base := filepath.Join(s.root, container)
	var keys []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == base {
				return filepath.SkipAll
			}
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", container, err)
	}
	sort.Strings(keys)
	return keys, nil
}
