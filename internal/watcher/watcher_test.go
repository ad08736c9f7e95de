package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// startWatcher starts a watcher that reports re-scanned roots on a channel.
func startWatcher(t *testing.T, roots []string, opts ...WatcherOption) (*Watcher, <-chan string) {
	t.Helper()
	changes := make(chan string, 16)
	opts = append([]WatcherOption{WithDebounce(50 * time.Millisecond), WithExtensions([]string{".txt", ".md"})}, opts...)
	w := NewWatcher(roots, func(root string) { changes <- root }, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	return w, changes
}

func waitChange(t *testing.T, changes <-chan string) string {
	t.Helper()
	select {
	case root := <-changes:
		return root
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for re-scan")
		return ""
	}
}

func expectQuiet(t *testing.T, changes <-chan string, d time.Duration) {
	t.Helper()
	select {
	case root := <-changes:
		t.Fatalf("unexpected re-scan of %s", root)
	case <-time.After(d):
	}
}

func TestWatcher_DebouncesBurstIntoOneRescan(t *testing.T) {
	dir := t.TempDir()
	_, changes := startWatcher(t, []string{dir})

	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, "a.txt"), "version "+string(rune('a'+i)))
	}
	if got := waitChange(t, changes); got != filepath.Clean(dir) {
		t.Errorf("root = %q, want %q", got, dir)
	}
	expectQuiet(t, changes, 300*time.Millisecond)
}

func TestWatcher_ExtensionAndHiddenFilter(t *testing.T) {
	dir := t.TempDir()
	_, changes := startWatcher(t, []string{dir})

	writeFile(t, filepath.Join(dir, "notes.log"), "ignored")
	writeFile(t, filepath.Join(dir, ".report.csv.123.tmp"), "ignored")
	expectQuiet(t, changes, 300*time.Millisecond)

	writeFile(t, filepath.Join(dir, "doc.md"), "watched")
	waitChange(t, changes)
}

func TestWatcher_IgnoredPath(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "report.txt")
	_, changes := startWatcher(t, []string{dir}, WithIgnore(report))

	writeFile(t, report, "pairs")
	expectQuiet(t, changes, 300*time.Millisecond)
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	_, changes := startWatcher(t, []string{dir})

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	waitChange(t, changes)

	writeFile(t, filepath.Join(sub, "nested.txt"), "hello")
	waitChange(t, changes)
}

func TestWatcher_RemoveTriggersRescan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	writeFile(t, path, "bye")
	_, changes := startWatcher(t, []string{dir})

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitChange(t, changes)
}

func TestWatcher_StartErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	w := NewWatcher([]string{missing}, nil)
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error for missing root")
	}

	if err := NewWatcher(nil, nil).Start(context.Background()); err == nil {
		t.Error("expected error with no roots")
	}

	dir := t.TempDir()
	w = NewWatcher([]string{dir}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error restarting a stopped watcher")
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{"txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestRootOfPrefersDeepestRoot(t *testing.T) {
	w := NewWatcher([]string{"/data", "/data/inner"}, nil)
	if got := w.rootOf("/data/inner/x.txt"); got != "/data/inner" {
		t.Errorf("rootOf = %q", got)
	}
	if got := w.rootOf("/data/x.txt"); got != "/data" {
		t.Errorf("rootOf = %q", got)
	}
	if got := w.rootOf("/elsewhere/x.txt"); got != "" {
		t.Errorf("rootOf = %q", got)
	}
}
