package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/idelchi/diskmanager/internal/diskstat"
)

// blockingLister holds every List call until release is closed.
type blockingLister struct {
	*diskstat.OSLister
	release chan struct{}
}

func (l *blockingLister) List(ctx context.Context, path string) ([]diskstat.Entry, error) {
	<-l.release

	return l.OSLister.List(ctx, path)
}

// rootStatLister holds the Stat call of root until release is closed, so that every
// child statistic is written while the run is not ready yet.
type rootStatLister struct {
	*diskstat.OSLister
	root    string
	release chan struct{}
}

func (l *rootStatLister) Stat(ctx context.Context, path string) (diskstat.Entry, error) {
	if path == l.root {
		<-l.release
	}

	return l.OSLister.Stat(ctx, path)
}

func fixture(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	for _, dir := range []string{"a/b/c", "d"} {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755); err != nil {
			t.Fatalf("creating directory: %v", err)
		}
	}

	if err := os.WriteFile(filepath.Join(root, "a", "file"), make([]byte, 64), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	return root
}

func startRun(t *testing.T, root string, lister diskstat.Lister) *diskstat.Run {
	t.Helper()

	cfg := diskstat.Config{Count: true, Names: true, NameDepth: 1}

	return diskstat.NewCoordinator(cfg, lister).Start(context.Background(), root)
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	return rec
}

func TestServer_NotReadyBeforeSignals(t *testing.T) {
	lister := &blockingLister{OSLister: diskstat.NewOSLister(0), release: make(chan struct{})}
	run := startRun(t, fixture(t), lister)
	handler := New(run, nil).Handler()

	for _, target := range []string{"/api/data", "/api/stats", "/api/names"} {
		if rec := get(t, handler, target); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", target, rec.Code)
		}
	}

	if rec := get(t, handler, "/api/stats?partial=1"); rec.Code != http.StatusOK {
		t.Fatalf("partial stats must be served, got %d", rec.Code)
	}

	close(lister.release)

	if err := run.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec := get(t, handler, "/api/stats"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after readiness, got %d", rec.Code)
	}
}

func TestServer_DataAndStats(t *testing.T) {
	root := fixture(t)
	run := startRun(t, root, nil)
	handler := New(run, nil).Handler()

	if err := run.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var data map[string]any
	if err := json.Unmarshal(get(t, handler, "/api/data").Body.Bytes(), &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}

	if data["size"] != "64" || data["folders"] != float64(4) {
		t.Fatalf("unexpected data %v", data)
	}

	rec := get(t, handler, "/api/stats/"+url.PathEscape(filepath.Join(root, "a")))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"size":"64"`) {
		t.Fatalf("unexpected stat response %d %s", rec.Code, rec.Body.String())
	}

	if rec := get(t, handler, "/api/stats/"+url.PathEscape(filepath.Join(root, "zzz"))); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServer_Expand(t *testing.T) {
	root := fixture(t)
	run := startRun(t, root, nil)
	handler := New(run, nil).Handler()

	if err := run.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := filepath.Join(root, "a")

	var names map[string]diskstat.NameEntry
	if err := json.Unmarshal(get(t, handler, "/api/names").Body.Bytes(), &names); err != nil {
		t.Fatalf("decoding names: %v", err)
	}

	if len(names[a].SubFolders) != 0 {
		t.Fatalf("a must start truncated, got %+v", names[a])
	}

	rec := get(t, handler, "/api/names/"+url.PathEscape(a)+"?depth=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	names = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil {
		t.Fatalf("decoding names: %v", err)
	}

	b := filepath.Join(a, "b")
	if got := names[a].SubFolders; len(got) != 1 || got[0] != b {
		t.Fatalf("unexpected children of a: %v", got)
	}

	if _, ok := names[filepath.Join(b, "c")]; !ok {
		t.Fatalf("expected c to be materialized")
	}

	if rec := get(t, handler, "/api/names/"+url.PathEscape(a)+"?depth=0"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	if rec := get(t, handler, "/api/names/"+url.PathEscape(filepath.Dir(root))); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 outside of the root, got %d", rec.Code)
	}
}

func TestServer_Events(t *testing.T) {
	run := startRun(t, fixture(t), nil)
	srv := httptest.NewServer(New(run, nil).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/events")
	if err != nil {
		t.Fatalf("requesting events: %v", err)
	}
	defer resp.Body.Close()

	var events []string

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}

	if len(events) != 2 || events[0] != "names-ready" || events[1] != "stats-ready" {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestWithin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "data")

	tests := map[string]bool{
		root:                             true,
		filepath.Join(root, "x"):         true,
		filepath.Join(root, "..", "etc"): false,
		filepath.Join(root+"x", "y"):     false,
		"relative":                       false,
	}

	for path, want := range tests {
		if got := within(root, path); got != want {
			t.Errorf("within(%q, %q) = %v, want %v", root, path, got, want)
		}
	}
}

func TestServer_StatWaitsForReadiness(t *testing.T) {
	root := fixture(t)
	lister := &rootStatLister{OSLister: diskstat.NewOSLister(0), root: root, release: make(chan struct{})}
	run := startRun(t, root, lister)
	handler := New(run, nil).Handler()
	child := filepath.Join(root, "d")

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := run.Accumulator().Stat(child); ok {
			break
		}

		if time.Now().After(deadline) {
			t.Fatalf("statistic of %s was never written", child)
		}

		time.Sleep(time.Millisecond)
	}

	target := "/api/stats/" + url.PathEscape(child)

	if rec := get(t, handler, target); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before readiness, got %d", rec.Code)
	}

	if rec := get(t, handler, target+"?partial=1"); rec.Code != http.StatusOK {
		t.Fatalf("partial stat must be served, got %d", rec.Code)
	}

	close(lister.release)

	if err := run.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec := get(t, handler, target); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after readiness, got %d", rec.Code)
	}
}
