package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photo-rater/internal/media"
	"photo-rater/internal/partition"
	"photo-rater/internal/statuslog"
)

type fixture struct {
	raw       string
	pm        *partition.Manager
	statusLog *statuslog.Log
	ingester  *Ingester
}

func newFixture(t *testing.T, size int) *fixture {
	t.Helper()
	base := t.TempDir()
	raw := filepath.Join(base, "images_raw")
	if err := os.MkdirAll(raw, 0o755); err != nil {
		t.Fatal(err)
	}

	log, err := statuslog.Open(filepath.Join(base, "logs", "images_log.json"))
	if err != nil {
		t.Fatalf("statuslog.Open() error = %v", err)
	}
	t.Cleanup(func() { log.Close() })

	pm := partition.NewManager(filepath.Join(base, "images_unrated"), size)
	return &fixture{
		raw:       raw,
		pm:        pm,
		statusLog: log,
		ingester:  New(raw, pm, log),
	}
}

// drop writes a fake image into intake with a fixed mtime.
func (f *fixture) drop(t *testing.T, rel string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(f.raw, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("image:"+rel), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	return len(entries)
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)

func TestRunFillsPartitionsInOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10)
	for i := 0; i < 15; i++ {
		f.drop(t, fmt.Sprintf("img_%02d.jpg", i), baseTime.Add(time.Duration(i)*time.Second))
	}

	result, err := f.ingester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Moved != 15 {
		t.Errorf("Moved = %d, want 15", result.Moved)
	}

	if got := countFiles(t, f.pm.Path(1)); got != 10 {
		t.Errorf("partition 1 has %d files, want 10", got)
	}
	if got := countFiles(t, f.pm.Path(2)); got != 5 {
		t.Errorf("partition 2 has %d files, want 5", got)
	}

	counts, err := f.statusLog.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts[statuslog.StatusUnrated] != 15 {
		t.Errorf("unrated entries = %d, want 15", counts[statuslog.StatusUnrated])
	}
	if got := countFiles(t, f.raw); got != 0 {
		t.Errorf("intake still has %d entries", got)
	}
}

func TestRunRecordsDestinationPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10)
	f.drop(t, "nested/deeper/a.JPG", baseTime)

	if _, err := f.ingester.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	dst := filepath.Join(f.pm.Path(1), "a.JPG")
	id, err := media.Identifier(dst)
	if err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
	if want := media.IdentifierFor("a.JPG", baseTime); id != want {
		t.Errorf("identifier after move = %q, want %q", id, want)
	}

	entry, ok, err := f.statusLog.Lookup(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("Lookup() = %v, %v", ok, err)
	}
	if entry.Status != statuslog.StatusUnrated || entry.Path != dst {
		t.Errorf("entry = %+v, want unrated at %s", entry, dst)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10)
	for i := 0; i < 3; i++ {
		f.drop(t, fmt.Sprintf("img_%d.png", i), baseTime.Add(time.Duration(i)*time.Minute))
	}
	if _, err := f.ingester.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(f.statusLog.Path())

	result, err := f.ingester.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if result.Moved != 0 || result.Duplicates != 0 || result.Deferred != 0 {
		t.Errorf("second Run() = %+v, want no changes", result)
	}

	after, _ := os.ReadFile(f.statusLog.Path())
	if string(before) != string(after) {
		t.Error("status log changed on an idle pass")
	}
	if got := countFiles(t, f.pm.Path(1)); got != 3 {
		t.Errorf("partition 1 has %d files, want 3", got)
	}
}

func TestRunDeletesKnownImages(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10)
	f.drop(t, "a.jpg", baseTime)
	if _, err := f.ingester.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// same name and mtime dropped again
	again := f.drop(t, "later/a.jpg", baseTime)
	result, err := f.ingester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Duplicates != 1 || result.Moved != 0 {
		t.Errorf("Run() = %+v, want 1 duplicate", result)
	}
	if _, err := os.Stat(again); !os.IsNotExist(err) {
		t.Error("duplicate should be deleted from intake")
	}
	if got := countFiles(t, f.pm.Path(1)); got != 1 {
		t.Errorf("partition 1 has %d files, want 1", got)
	}
}

func TestRunDefersNameCollision(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10)
	f.drop(t, "a/x.jpg", baseTime)
	second := f.drop(t, "b/x.jpg", baseTime.Add(time.Hour))

	result, err := f.ingester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Moved != 1 || result.Deferred != 1 {
		t.Errorf("Run() = %+v, want 1 moved and 1 deferred", result)
	}
	if _, err := os.Stat(second); err != nil {
		t.Errorf("deferred file should stay in intake: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(f.pm.Path(1), "x.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image:a/x.jpg" {
		t.Errorf("partition copy was overwritten: %q", data)
	}
}

func TestRunIgnoresUnsupportedAndHidden(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10)
	f.drop(t, "notes.txt", baseTime)
	f.drop(t, ".hidden.jpg", baseTime)
	f.drop(t, ".cache/a.jpg", baseTime)
	f.drop(t, "real.jpeg", baseTime)

	result, err := f.ingester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Moved != 1 {
		t.Errorf("Moved = %d, want 1", result.Moved)
	}
	for _, rel := range []string{"notes.txt", ".hidden.jpg", ".cache/a.jpg"} {
		if _, err := os.Stat(filepath.Join(f.raw, rel)); err != nil {
			t.Errorf("%s should be left alone: %v", rel, err)
		}
	}
}

func TestRunMissingIntakeDir(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10)
	if err := os.RemoveAll(f.raw); err != nil {
		t.Fatal(err)
	}

	result, err := f.ingester.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Moved != 0 {
		t.Errorf("Moved = %d, want 0", result.Moved)
	}
}

func TestRunStatusLogClosedAborts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 10)
	src := f.drop(t, "a.jpg", baseTime)
	f.statusLog.Close()

	if _, err := f.ingester.Run(context.Background()); err == nil {
		t.Fatal("Run() should fail when the status log is closed")
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("intake file should be untouched: %v", err)
	}
}
