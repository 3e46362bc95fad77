package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"photo-rater/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "ratings.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordQueryMetrics(t *testing.T) {
	before := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("test_operation", "error"))
	recordQuery("test_operation", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(metrics.DBQueryTotal.WithLabelValues("test_operation", "error"))

	if after-before != 1 {
		t.Errorf("error counter increased by %v, want 1", after-before)
	}
}

func TestNewCreatesSchema(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	// reopening an existing file is fine
	path := db.Path()
	db.Close()
	again, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	again.Close()
}

// =============================================================================
// Ratings
// =============================================================================

func TestRecordAndHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	events := []RatingEvent{
		{Identifier: "id1", Filename: "a.jpg", Partition: 1, Rating: "5", Rater: "alice", Path: "/r/5/a.jpg", RatedAt: base},
		{Identifier: "id2", Filename: "b.jpg", Partition: 1, Rating: "3", Rater: "bob", Path: "/r/3/b.jpg", RatedAt: base.Add(time.Minute)},
		{Identifier: "id3", Filename: "c.jpg", Partition: 2, Rating: "5", Rater: "alice", Path: "/r/5/c.jpg", RatedAt: base.Add(2 * time.Minute)},
	}
	for i := range events {
		if err := db.RecordRating(ctx, &events[i]); err != nil {
			t.Fatalf("RecordRating() error = %v", err)
		}
		if events[i].ID == 0 {
			t.Error("RecordRating() should set the event ID")
		}
	}

	history, err := db.RatingHistory(ctx, 2)
	if err != nil {
		t.Fatalf("RatingHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("RatingHistory(2) returned %d events", len(history))
	}
	if history[0].Identifier != "id3" || history[1].Identifier != "id2" {
		t.Errorf("history order = %s, %s; want id3, id2", history[0].Identifier, history[1].Identifier)
	}
	if !history[0].RatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("RatedAt = %v", history[0].RatedAt)
	}
	if history[0].Partition != 2 || history[0].Rater != "alice" {
		t.Errorf("history[0] = %+v", history[0])
	}

	all, err := db.RatingHistory(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("RatingHistory(0) returned %d events, want 3", len(all))
	}
}

func TestRecordRatingRejectsIncomplete(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if err := db.RecordRating(context.Background(), &RatingEvent{Identifier: "x"}); err == nil {
		t.Error("RecordRating() should reject an event without a rating")
	}
}

func TestLatestRatings(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, e := range []RatingEvent{
		{Identifier: "id1", Filename: "a.jpg", Rating: "2", Rater: "alice"},
		{Identifier: "id1", Filename: "a.jpg", Rating: "4", Rater: "bob"},
		{Identifier: "id2", Filename: "b.jpg", Rating: "1", Rater: "alice"},
	} {
		e := e
		if err := db.RecordRating(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := db.LatestRatings(ctx)
	if err != nil {
		t.Fatalf("LatestRatings() error = %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("LatestRatings() returned %d identifiers, want 2", len(latest))
	}
	if got := latest["id1"]; got.Rating != "4" || got.Rater != "bob" {
		t.Errorf("latest id1 = %+v, want rating 4 by bob", got)
	}
}

func TestCounts(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, e := range []RatingEvent{
		{Identifier: "1", Rating: "good", Rater: "alice"},
		{Identifier: "2", Rating: "good", Rater: "bob"},
		{Identifier: "3", Rating: "bad", Rater: "alice"},
	} {
		e := e
		if err := db.RecordRating(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}

	ratings, err := db.RatingCounts(ctx)
	if err != nil {
		t.Fatalf("RatingCounts() error = %v", err)
	}
	want := []RatingCount{{Key: "bad", Count: 1}, {Key: "good", Count: 2}}
	if len(ratings) != len(want) || ratings[0] != want[0] || ratings[1] != want[1] {
		t.Errorf("RatingCounts() = %v, want %v", ratings, want)
	}

	raters, err := db.RaterCounts(ctx)
	if err != nil {
		t.Fatalf("RaterCounts() error = %v", err)
	}
	if len(raters) != 2 || raters[0].Key != "alice" || raters[0].Count != 2 {
		t.Errorf("RaterCounts() = %v", raters)
	}
}

func TestCountsEmpty(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	counts, err := db.RatingCounts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts == nil || len(counts) != 0 {
		t.Errorf("RatingCounts() on empty db = %#v, want empty slice", counts)
	}
}

// =============================================================================
// Metadata
// =============================================================================

func TestLastExport(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	got, err := db.GetLastExport(ctx)
	if err != nil {
		t.Fatalf("GetLastExport() error = %v", err)
	}
	if !got.IsZero() {
		t.Errorf("GetLastExport() before any export = %v, want zero", got)
	}

	when := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	if err := db.SetLastExport(ctx, when); err != nil {
		t.Fatalf("SetLastExport() error = %v", err)
	}
	got, err = db.GetLastExport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(when) {
		t.Errorf("GetLastExport() = %v, want %v", got, when)
	}
}
