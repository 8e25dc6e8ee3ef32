package diskstat

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}

	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
}

func mkdir(t *testing.T, path string) {
	t.Helper()

	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
}

// scenarioTree creates root/a (10 bytes), root/s/b (20 bytes) and the empty root/s/t.
func scenarioTree(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "r")
	writeFile(t, filepath.Join(root, "a"), 10)
	writeFile(t, filepath.Join(root, "s", "b"), 20)
	mkdir(t, filepath.Join(root, "s", "t"))

	return root
}

// failingLister delegates to an OSLister but denies access to the listed paths.
type failingLister struct {
	*OSLister
	denied map[string]error
}

func newFailingLister(denied map[string]error) *failingLister {
	return &failingLister{OSLister: NewOSLister(0), denied: denied}
}

func (l *failingLister) List(ctx context.Context, path string) ([]Entry, error) {
	if err, ok := l.denied[path]; ok {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return l.OSLister.List(ctx, path)
}

func permissionDenied(paths ...string) map[string]error {
	denied := make(map[string]error, len(paths))
	for _, p := range paths {
		denied[p] = fs.ErrPermission
	}

	return denied
}

// countingLister counts List calls.
type countingLister struct {
	*OSLister
	lists atomic.Int64
}

func (l *countingLister) List(ctx context.Context, path string) ([]Entry, error) {
	l.lists.Add(1)

	return l.OSLister.List(ctx, path)
}

// parkingLister lists root normally and holds every other List call until ctx is done.
// Stat never waits for a slot, so root can still be folded after cancellation.
type parkingLister struct {
	*OSLister
	root   string
	parked chan string
}

func (l *parkingLister) List(ctx context.Context, path string) ([]Entry, error) {
	if path == l.root {
		return l.OSLister.List(ctx, path)
	}

	l.parked <- path
	<-ctx.Done()

	return nil, ctx.Err()
}

func (l *parkingLister) Stat(_ context.Context, path string) (Entry, error) {
	return l.OSLister.Stat(context.Background(), path)
}
