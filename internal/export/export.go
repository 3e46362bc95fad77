package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"photo-rater/internal/database"
	"photo-rater/internal/filesystem"
	"photo-rater/internal/logging"
	"photo-rater/internal/metrics"
	"photo-rater/internal/statuslog"
)

// TimestampLayout formats the export file name.
const TimestampLayout = "20060102_150405"

// Row is one rated image in the dataset.
type Row struct {
	Identifier string `parquet:"identifier"`
	Filename   string `parquet:"filename"`
	Rating     string `parquet:"rating"`
	Path       string `parquet:"path"`
	Rater      string `parquet:"rater"`    // empty when no history is known
	RatedAt    int64  `parquet:"rated_at"` // unix seconds, 0 when unknown
}

// History supplies rater details and remembers the last export.
// *database.Database implements it.
type History interface {
	LatestRatings(ctx context.Context) (map[string]database.RatingEvent, error)
	SetLastExport(ctx context.Context, t time.Time) error
}

// Result describes one export run.
type Result struct {
	Path string // empty when nothing was written
	Rows int
}

// Exporter writes the rated part of the status log to Parquet files.
type Exporter struct {
	statusLog *statuslog.Log
	history   History
	dir       string
	now       func() time.Time
}

// New creates an Exporter writing into dir. history may be nil.
func New(log *statuslog.Log, history History, dir string) *Exporter {
	return &Exporter{statusLog: log, history: history, dir: dir, now: time.Now}
}

// Run writes exports/ratings_<timestamp>.parquet with one row per rated
// entry, sorted by identifier. No file is written when nothing is rated.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	rows, err := e.collect(ctx)
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(rows) == 0 {
		logging.Debug("Dataset export skipped: no rated images")
		return &Result{}, nil
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[Row](&buf)
	if _, err := writer.Write(rows); err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	if err := writer.Close(); err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to finish export: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create export folder: %w", err)
	}

	now := e.now()
	path := filepath.Join(e.dir, "ratings_"+now.Format(TimestampLayout)+".parquet")
	if err := filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to write export: %w", err)
	}

	if e.history != nil {
		if err := e.history.SetLastExport(ctx, now); err != nil {
			logging.Warn("Failed to store last export time: %v", err)
		}
	}

	metrics.ExportsTotal.WithLabelValues("success").Inc()
	metrics.ExportRows.Set(float64(len(rows)))
	logging.Info("Exported %d rated images to %s", len(rows), path)
	return &Result{Path: path, Rows: len(rows)}, nil
}

func (e *Exporter) collect(ctx context.Context) ([]Row, error) {
	entries, err := e.statusLog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var latest map[string]database.RatingEvent
	if e.history != nil {
		latest, err = e.history.LatestRatings(ctx)
		if err != nil {
			// rows are still useful without rater details
			logging.Warn("Rating history unavailable for export: %v", err)
			latest = nil
		}
	}

	rows := make([]Row, 0, len(entries))
	for id, entry := range entries {
		if entry.Status != statuslog.StatusRated {
			continue
		}
		row := Row{
			Identifier: id,
			Filename:   filepath.Base(entry.Path),
			Rating:     filepath.Base(filepath.Dir(entry.Path)),
			Path:       entry.Path,
		}
		if event, ok := latest[id]; ok {
			row.Rater = event.Rater
			row.RatedAt = event.RatedAt.Unix()
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Identifier < rows[j].Identifier })
	return rows, nil
}
