package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"photo-rater/internal/auth"
	"photo-rater/internal/handlers"
	"photo-rater/internal/scheduler"
	"photo-rater/internal/startup"
)

func testConfig(t *testing.T) *startup.Config {
	t.Helper()
	base := t.TempDir()
	cfg := &startup.Config{
		BaseDir:               base,
		Port:                  "0",
		MetricsPort:           "0",
		PartitionSize:         2,
		BatchSize:             10,
		ServeTimeout:          30 * time.Minute,
		MaxFileSize:           1 << 20,
		MaxLogFileSize:        1 << 20,
		IngestInterval:        time.Hour,
		ThumbnailInterval:     time.Hour,
		ArchiveInterval:       time.Hour,
		ThumbnailMaxDimension: 64,
		ThumbnailWorkers:      1,
		JWTSecret:             "test-secret",
		TokenTTL:              time.Hour,
		Layout:                startup.NewLayout(base, ""),
	}
	if err := cfg.Layout.Ensure(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestApp(t *testing.T, cfg *startup.Config, allJobs bool) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, allJobs)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

// =============================================================================
// App wiring
// =============================================================================

func TestNewAppRegistersJobs(t *testing.T) {
	cfg := testConfig(t)

	a := newTestApp(t, cfg, false)
	if got := strings.Join(a.scheduler.Jobs(), ","); got != "ingest,thumbnails,archive" {
		t.Errorf("jobs with export disabled = %s", got)
	}
	infos := a.jobInfo()
	if len(infos) != 3 || infos[0].Interval != time.Hour {
		t.Errorf("jobInfo() = %v", infos)
	}
}

func TestNewAppAllJobsIncludesExport(t *testing.T) {
	cfg := testConfig(t)

	a := newTestApp(t, cfg, true)
	if got := strings.Join(a.scheduler.Jobs(), ","); got != strings.Join(JobNames, ",") {
		t.Errorf("jobs = %s, want %v", got, JobNames)
	}
}

func TestNewAppRejectsMalformedStatusLog(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Layout.StatusLog, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := newApp(context.Background(), cfg, false); err == nil {
		t.Fatal("newApp() should refuse a malformed status log")
	}
}

func TestRunOnceIngest(t *testing.T) {
	cfg := testConfig(t)
	for _, name := range []string{"a.jpg", "b.jpg", "c.png"} {
		if err := os.WriteFile(filepath.Join(cfg.Layout.Raw, name), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	a := newTestApp(t, cfg, true)
	if err := runOnce(context.Background(), a, JobIngest); err != nil {
		t.Fatalf("runOnce(ingest) error = %v", err)
	}

	for _, want := range []string{"1/a.jpg", "1/b.jpg", "2/c.png"} {
		if _, err := os.Stat(filepath.Join(cfg.Layout.Unrated, want)); err != nil {
			t.Errorf("expected %s after ingest: %v", want, err)
		}
	}
	n, err := a.statusLog.Len(context.Background())
	if err != nil || n != 3 {
		t.Errorf("status log entries = %d, %v; want 3", n, err)
	}

	// export with nothing rated writes no file
	if err := runOnce(context.Background(), a, JobExport); err != nil {
		t.Fatalf("runOnce(export) error = %v", err)
	}
	entries, _ := os.ReadDir(cfg.Layout.Export)
	if len(entries) != 0 {
		t.Errorf("export wrote %d files with nothing rated", len(entries))
	}
}

func TestRunOnceUnknownJob(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, false)

	err := runOnce(context.Background(), a, JobExport)
	if !errors.Is(err, scheduler.ErrUnknownJob) {
		t.Errorf("runOnce(export) with export disabled = %v, want ErrUnknownJob", err)
	}
}

func TestBuildHandler(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, false)

	creds, err := auth.NewCredentials("alice", "secret", "")
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		t.Fatal(err)
	}
	h := handlers.New(handlers.Config{
		Ratings:     a.ratings,
		Credentials: creds,
		Tokens:      tokens,
		History:     a.db,
		Jobs:        a.scheduler,
	})

	handler, err := buildHandler(h, cfg)
	if err != nil {
		t.Fatalf("buildHandler() error = %v", err)
	}

	for path, want := range map[string]int{
		"/livez":              http.StatusOK,
		"/readyz":             http.StatusOK,
		"/get_unrated_images": http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if w.Code != want {
			t.Errorf("GET %s = %d, want %d", path, w.Code, want)
		}
	}
}

// =============================================================================
// Commands
// =============================================================================

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"serve", "run", "hash-password"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%s) = %v, %v", name, cmd, err)
		}
	}
}

func TestRunCommandRejectsUnknownJob(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"run", "reindex"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err == nil {
		t.Error("run with an unknown job should fail")
	}
}

func TestHashPasswordCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetArgs([]string{"hash-password", "--user", "alice"})
	root.SetIn(strings.NewReader("correct horse\n"))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err != nil {
		t.Fatalf("hash-password error = %v", err)
	}

	users, err := auth.ParseUsers(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("output %q is not a RATER_USERS entry: %v", out.String(), err)
	}
	if err := bcrypt.CompareHashAndPassword(users["alice"], []byte("correct horse")); err != nil {
		t.Errorf("hash does not match the password: %v", err)
	}
}

func TestPrintHashValidatesUser(t *testing.T) {
	var out bytes.Buffer
	if err := printHash(&out, "bad:name", "pw"); err == nil {
		t.Error("printHash should reject ':' in the user name")
	}
	if err := printHash(&out, "", ""); err == nil {
		t.Error("printHash should reject an empty password")
	}
}
