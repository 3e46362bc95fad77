package rating

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"photo-rater/internal/database"
	"photo-rater/internal/filesystem"
	"photo-rater/internal/logging"
	"photo-rater/internal/media"
	"photo-rater/internal/metrics"
	"photo-rater/internal/partition"
	"photo-rater/internal/served"
	"photo-rater/internal/statuslog"
)

var (
	// ErrInvalidRequest means a required field is missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound means the image or partition does not exist.
	ErrNotFound = errors.New("image not found")
)

// ratingPattern limits rating values to names safe as a folder, such as
// "5", "4.5" or "keep". validName additionally rejects "." and "..".
var ratingPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Recorder stores rating events. *database.Database implements it.
type Recorder interface {
	RecordRating(ctx context.Context, event *database.RatingEvent) error
}

// Sizer reports the size of the operation log.
type Sizer interface {
	Size() (int64, error)
}

// Config wires a Service to its collaborators.
type Config struct {
	Partitions   *partition.Manager
	StatusLog    *statuslog.Log
	Tracker      *served.Tracker
	Compressor   *media.Compressor
	History      Recorder // optional
	OperationLog Sizer    // optional, for stats
	RatedDir     string
	BatchSize    int
	ServeTimeout time.Duration
}

// Service hands out unrated images and applies rating decisions.
type Service struct {
	partitions   *partition.Manager
	statusLog    *statuslog.Log
	tracker      *served.Tracker
	compressor   *media.Compressor
	history      Recorder
	operationLog Sizer
	ratedDir     string
	batchSize    int
	serveTimeout time.Duration
}

// New creates a Service.
func New(cfg Config) *Service {
	return &Service{
		partitions:   cfg.Partitions,
		statusLog:    cfg.StatusLog,
		tracker:      cfg.Tracker,
		compressor:   cfg.Compressor,
		history:      cfg.History,
		operationLog: cfg.OperationLog,
		ratedDir:     cfg.RatedDir,
		batchSize:    cfg.BatchSize,
		serveTimeout: cfg.ServeTimeout,
	}
}

// BatchSize returns the configured batch size.
func (s *Service) BatchSize() int {
	return s.batchSize
}

// ServedTo lists the images handed to user and not yet rated or swept.
func (s *Service) ServedTo(user string) []string {
	return s.tracker.Served(user)
}

// Item identifies one image offered to a rater. Partition is a string on
// the wire.
type Item struct {
	Partition string `json:"partition"`
	Filename  string `json:"filename"`
}

// NextBatch returns up to size images not yet served to user, scanning
// partitions from the highest number down, names sorted within a partition,
// and marks them served at now. Stale served entries are swept first.
func (s *Service) NextBatch(user string, size int, now time.Time) ([]Item, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}
	if size <= 0 {
		return []Item{}, nil
	}

	if removed := s.tracker.SweepStale(now, s.serveTimeout); removed > 0 {
		logging.Info("Removed %d stale images from served lists", removed)
	}

	partitions, err := s.partitions.Partitions()
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, size)
scan:
	for _, n := range partitions {
		entries, err := os.ReadDir(s.partitions.Path(n))
		if errors.Is(err, os.ErrNotExist) {
			// drained by a concurrent rating
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list partition %d: %w", n, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !media.IsSupportedImage(name) || s.tracker.IsServed(user, name) {
				continue
			}
			items = append(items, Item{Partition: fmt.Sprint(n), Filename: name})
			if len(items) >= size {
				break scan
			}
		}
	}

	for _, item := range items {
		s.tracker.MarkServed(user, item.Filename, now)
	}

	metrics.BatchesServedTotal.Inc()
	logging.Info("Sent %d unrated images to %s", len(items), user)
	return items, nil
}

// Request is a rating decision for one image.
type Request struct {
	User      string
	ImageName string
	Rating    string
	Partition string
}

// Outcome describes an applied rating.
type Outcome struct {
	Identifier       string
	Destination      string
	PartitionRemoved bool
}

// validName rejects empty names and anything that could leave its folder.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func (s *Service) validate(req Request) (int, error) {
	if req.User == "" {
		return 0, fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}
	if !validName(req.ImageName) {
		return 0, fmt.Errorf("%w: image name %q", ErrInvalidRequest, req.ImageName)
	}
	if !ratingPattern.MatchString(req.Rating) || !validName(req.Rating) {
		return 0, fmt.Errorf("%w: rating %q", ErrInvalidRequest, req.Rating)
	}
	n, err := partition.ParsePartition(req.Partition)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return n, nil
}

// Rate moves the image into images_rated/<rating>/, marks it rated in the
// status log, evicts it from the user's served set, drops its thumbnail and
// removes the partition when it is left empty. All of it runs under the
// partition lock. A rating event is then recorded; failure to record it is
// logged only.
func (s *Service) Rate(ctx context.Context, req Request) (*Outcome, error) {
	n, err := s.validate(req)
	if err != nil {
		metrics.RatingsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var outcome *Outcome
	err = s.partitions.WithLock(func() error {
		var err error
		outcome, err = s.transition(ctx, req, n)
		return err
	})
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.RatingsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	case err != nil:
		metrics.RatingsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.RatingsTotal.WithLabelValues("success").Inc()
	s.record(ctx, req, n, outcome)
	return outcome, nil
}

// transition is the rating sequence. The caller holds the partition lock.
func (s *Service) transition(ctx context.Context, req Request, n int) (*Outcome, error) {
	src := filepath.Join(s.partitions.Path(n), req.ImageName)
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in partition %d", ErrNotFound, req.ImageName, n)
	} else if err != nil {
		return nil, err
	}

	destDir := filepath.Join(s.ratedDir, req.Rating)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create rating folder: %w", err)
	}
	dst := filepath.Join(destDir, req.ImageName)

	if err := filesystem.MoveFile(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s vanished during rating", ErrNotFound, req.ImageName)
		}
		return nil, fmt.Errorf("failed to move %s: %w", req.ImageName, err)
	}

	id, err := media.Identifier(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to identify %s: %w", dst, err)
	}
	if err := s.statusLog.Upsert(ctx, id, statuslog.Entry{Status: statuslog.StatusRated, Path: dst}); err != nil {
		if rbErr := filesystem.MoveFile(dst, src); rbErr != nil {
			logging.Error("Failed to return %s to partition %d: %v", req.ImageName, n, rbErr)
		}
		return nil, fmt.Errorf("failed to record rating for %s: %w", id, err)
	}
	logging.Info("Moved rated image: %s from %s to %s", req.ImageName, src, dst)

	s.tracker.Evict(req.User, req.ImageName)

	thumb := filepath.Join(s.partitions.ThumbPath(n), req.ImageName)
	if err := os.Remove(thumb); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to remove thumbnail %s: %v", thumb, err)
	}

	removed, err := s.partitions.RemoveIfEmpty(n)
	if err != nil {
		logging.Warn("Failed to remove empty partition %d: %v", n, err)
	}

	return &Outcome{Identifier: id, Destination: dst, PartitionRemoved: removed}, nil
}

func (s *Service) record(ctx context.Context, req Request, n int, outcome *Outcome) {
	if s.history == nil {
		return
	}
	event := &database.RatingEvent{
		Identifier: outcome.Identifier,
		Filename:   req.ImageName,
		Partition:  n,
		Rating:     req.Rating,
		Rater:      req.User,
		Path:       outcome.Destination,
	}
	if err := s.history.RecordRating(ctx, event); err != nil {
		logging.Warn("Failed to record rating history for %s: %v", req.ImageName, err)
	}
}
