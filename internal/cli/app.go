package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photo-rater/internal/archive"
	"photo-rater/internal/database"
	"photo-rater/internal/export"
	"photo-rater/internal/filesystem"
	"photo-rater/internal/ingest"
	"photo-rater/internal/logging"
	"photo-rater/internal/media"
	"photo-rater/internal/memory"
	"photo-rater/internal/metrics"
	"photo-rater/internal/partition"
	"photo-rater/internal/rating"
	"photo-rater/internal/scheduler"
	"photo-rater/internal/served"
	"photo-rater/internal/startup"
	"photo-rater/internal/statuslog"
)

// Job names accepted by the run command.
const (
	JobIngest     = "ingest"
	JobThumbnails = "thumbnails"
	JobArchive    = "archive"
	JobExport     = "export"
)

// JobNames lists every job in registration order.
var JobNames = []string{JobIngest, JobThumbnails, JobArchive, JobExport}

// app holds the wired components shared by serve and run.
type app struct {
	config       *startup.Config
	operationLog *logging.OperationLog
	statusLog    *statuslog.Log
	db           *database.Database
	partitions   *partition.Manager
	tracker      *served.Tracker
	ratings      *rating.Service
	memory       *memory.Monitor
	scheduler    *scheduler.Scheduler
}

// newApp opens the logs and database and registers the jobs. With allJobs
// the export job is registered even when EXPORT_INTERVAL disables it, so it
// can be run once on demand.
func newApp(ctx context.Context, cfg *startup.Config, allJobs bool) (*app, error) {
	a := &app{config: cfg}

	oplog, err := logging.OpenOperationLog(cfg.Layout.OperationLog)
	if err != nil {
		return nil, err
	}
	a.operationLog = oplog
	logging.Attach(oplog)

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(cfg.Layout.Volumes()))

	logStart := time.Now()
	a.statusLog, err = statuslog.Open(cfg.Layout.StatusLog)
	if err != nil {
		a.Close()
		if errors.Is(err, statuslog.ErrMalformed) {
			return nil, fmt.Errorf("refusing to start with a damaged status log: %w", err)
		}
		return nil, err
	}
	entries, err := a.statusLog.Len(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	startup.LogStatusLogLoaded(cfg.Layout.StatusLog, entries, time.Since(logStart))

	dbStart := time.Now()
	a.db, err = database.New(ctx, cfg.Layout.DatabasePath())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	a.partitions = partition.NewManager(cfg.Layout.Unrated, cfg.PartitionSize)
	a.tracker = served.NewTracker()
	a.ratings = rating.New(rating.Config{
		Partitions:   a.partitions,
		StatusLog:    a.statusLog,
		Tracker:      a.tracker,
		Compressor:   media.NewCompressor(cfg.MaxFileSize, cfg.Layout.Debug),
		History:      a.db,
		OperationLog: oplog,
		RatedDir:     cfg.Layout.Rated,
		BatchSize:    cfg.BatchSize,
		ServeTimeout: cfg.ServeTimeout,
	})

	a.memory = memory.NewMonitor(memory.DefaultConfig())

	a.scheduler = scheduler.New(logging.Slog(), scheduler.DefaultConfig())
	for _, job := range a.jobs(allJobs) {
		if err := a.scheduler.Add(job); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// jobs builds the periodic jobs. Export is left out when disabled unless
// all is set.
func (a *app) jobs(all bool) []scheduler.Job {
	cfg := a.config
	ingester := ingest.New(cfg.Layout.Raw, a.partitions, a.statusLog)
	thumbnails := media.NewThumbnailGenerator(a.partitions, cfg.ThumbnailMaxDimension, cfg.ThumbnailWorkers)
	thumbnails.SetGate(a.memory)
	archiver := archive.New(a.operationLog, cfg.Layout.Archive, cfg.MaxLogFileSize)
	exporter := export.New(a.statusLog, a.db, cfg.Layout.Export)

	jobs := []scheduler.Job{
		{Name: JobIngest, Interval: cfg.IngestInterval, Run: func(ctx context.Context) error {
			_, err := ingester.Run(ctx)
			return err
		}},
		{Name: JobThumbnails, Interval: cfg.ThumbnailInterval, Run: func(ctx context.Context) error {
			_, err := thumbnails.Run(ctx)
			return err
		}},
		{Name: JobArchive, Interval: cfg.ArchiveInterval, Run: func(ctx context.Context) error {
			_, err := archiver.Run(ctx)
			return err
		}},
	}

	exportInterval := cfg.ExportInterval
	if exportInterval == 0 && all {
		exportInterval = 24 * time.Hour
	}
	if exportInterval > 0 {
		jobs = append(jobs, scheduler.Job{Name: JobExport, Interval: exportInterval, Run: func(ctx context.Context) error {
			_, err := exporter.Run(ctx)
			return err
		}})
	}
	return jobs
}

// jobInfo describes the registered jobs for the startup log.
func (a *app) jobInfo() []startup.JobInfo {
	var infos []startup.JobInfo
	for _, st := range a.scheduler.Status() {
		d, _ := time.ParseDuration(st.Interval)
		infos = append(infos, startup.JobInfo{Name: st.Name, Interval: d})
	}
	return infos
}

// Close releases everything newApp opened. It is safe on a partly built app.
func (a *app) Close() {
	if a.statusLog != nil {
		startup.LogShutdownStep("Closing status log")
		if err := a.statusLog.Close(); err != nil {
			logging.Warn("Failed to close status log: %v", err)
		} else {
			startup.LogShutdownStepComplete("Status log closed")
		}
	}
	if a.db != nil {
		startup.LogShutdownStep("Closing database")
		if err := a.db.Close(); err != nil {
			logging.Warn("Failed to close database: %v", err)
		} else {
			startup.LogShutdownStepComplete("Database closed")
		}
	}
	if a.operationLog != nil {
		logging.Attach(nil)
		if err := a.operationLog.Close(); err != nil {
			logging.Warn("Failed to close operation log: %v", err)
		}
	}
}
