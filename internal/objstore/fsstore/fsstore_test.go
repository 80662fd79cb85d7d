package fsstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/objstore"
)

func seed(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGet(t *testing.T) {
	root := t.TempDir()
	seed(t, root, map[string]string{
		"raw/2025-04-01/WEB_orders.csv": "order_id\nO1\n",
	})
	s := New(root)

	data, err := s.Get(context.Background(), "raw", "2025-04-01/WEB_orders.csv")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "order_id\nO1\n" {
		t.Fatalf("data=%q", data)
	}

	_, err = s.Get(context.Background(), "raw", "2025-04-01/MOB_orders.csv")
	if !errors.Is(err, objstore.ErrNotFound) {
		t.Fatalf("err=%v; want ErrNotFound", err)
	}
}

/*
TestList verifies listing semantics: keys come back slash-separated and
sorted, nested paths are included, the prefix narrows the result, and a
container that does not exist yet lists as empty rather than failing.
*/
func TestList(t *testing.T) {
	root := t.TempDir()
	seed(t, root, map[string]string{
		"raw/2025-04-01/WEB_orders.csv":         "x",
		"raw/2025-04-01/MOB_orders.csv":         "x",
		"raw/2025-04-02/WEB_orders.csv":         "x",
		"raw/2025-04-02/archive/old_orders.csv": "x",
		"raw/manifest.json":                     "x",
	})
	s := New(root)

	all, err := s.List(context.Background(), "raw", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		"2025-04-01/MOB_orders.csv",
		"2025-04-01/WEB_orders.csv",
		"2025-04-02/WEB_orders.csv",
		"2025-04-02/archive/old_orders.csv",
		"manifest.json",
	}
	if !reflect.DeepEqual(all, want) {
		t.Fatalf("keys=%v; want %v", all, want)
	}

	day, err := s.List(context.Background(), "raw", "2025-04-01/")
	if err != nil {
		t.Fatalf("List with prefix: %v", err)
	}
	if len(day) != 2 {
		t.Fatalf("prefixed keys=%v; want 2", day)
	}

	none, err := s.List(context.Background(), "missing-container", "")
	if err != nil {
		t.Fatalf("List missing container: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("keys=%v; want empty", none)
	}
}

func TestGetCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(t.TempDir()).Get(ctx, "raw", "k"); err == nil {
		t.Fatal("err=nil; want context error")
	}
}
