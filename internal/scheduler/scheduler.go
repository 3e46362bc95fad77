package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"photo-rater/internal/logging"
	"photo-rater/internal/metrics"
)

var (
	// ErrUnknownJob is returned for a job name that was never added.
	ErrUnknownJob = errors.New("unknown job")

	// ErrJobRunning is returned by RunNow when the job is already running.
	ErrJobRunning = errors.New("job is already running")
)

// Job is a function run once at start and then on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// JobStatus is a snapshot of one job for health reporting.
type JobStatus struct {
	Name         string        `json:"name"`
	Interval     string        `json:"interval"`
	Running      bool          `json:"running"`
	LastRun      time.Time     `json:"lastRun,omitempty"`
	LastDuration time.Duration `json:"lastDurationNs"`
	LastError    string        `json:"lastError,omitempty"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	Skipped      int64         `json:"skipped"`
}

// Config tunes the supervisor.
type Config struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultConfig returns the supervisor defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Scheduler runs each job in its own supervised loop. Jobs never overlap
// themselves; a tick that fires while the previous run is still going is
// skipped. Failures and panics are logged and counted, never propagated.
type Scheduler struct {
	supervisor *suture.Supervisor

	mu    sync.RWMutex
	jobs  map[string]*runner
	order []string
}

// New creates a scheduler whose supervisor events go to logger.
func New(logger *slog.Logger, cfg Config) *Scheduler {
	defaults := DefaultConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = defaults.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = defaults.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	opts := suture.Spec{
		EventHook:        (&sutureslog.Handler{Logger: logger}).MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	return &Scheduler{
		supervisor: suture.New("photo-rater", opts),
		jobs:       make(map[string]*runner),
	}
}

// Add registers a job. Names must be unique and intervals positive.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %v", job.Name, job.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %s already added", job.Name)
	}
	r := &runner{job: job}
	s.jobs[job.Name] = r
	s.order = append(s.order, job.Name)
	s.supervisor.Add(r)
	return nil
}

// AddService supervises a long-running service next to the jobs.
func (s *Scheduler) AddService(svc suture.Service) suture.ServiceToken {
	return s.supervisor.Add(svc)
}

// Serve runs the supervisor until ctx is done.
func (s *Scheduler) Serve(ctx context.Context) error {
	return s.supervisor.Serve(ctx)
}

// ServeBackground starts the supervisor and returns its exit channel.
func (s *Scheduler) ServeBackground(ctx context.Context) <-chan error {
	return s.supervisor.ServeBackground(ctx)
}

// RunNow runs a job once, synchronously, honouring its exclusivity.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	r, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	ran, err := r.run(ctx)
	if !ran {
		return fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	return err
}

// Jobs returns the registered job names in the order they were added.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Status returns a snapshot of every job, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	runners := make([]*runner, 0, len(s.jobs))
	for _, r := range s.jobs {
		runners = append(runners, r)
	}
	s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(runners))
	for _, r := range runners {
		statuses = append(statuses, r.status())
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// runner is the supervised loop of one job.
type runner struct {
	job     Job
	running atomic.Bool

	mu           sync.Mutex
	lastRun      time.Time
	lastDuration time.Duration
	lastErr      error
	runs         int64
	failures     int64
	skipped      int64
}

func (r *runner) String() string {
	return "job:" + r.job.Name
}

// Serve runs the job immediately and then on every interval tick.
func (r *runner) Serve(ctx context.Context) error {
	r.tick(ctx)

	ticker := time.NewTicker(r.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *runner) tick(ctx context.Context) {
	ran, err := r.run(ctx)
	if !ran {
		logging.Warn("Job %s still running, skipping this tick", r.job.Name)
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("Job %s failed: %v", r.job.Name, err)
	}
}

// run executes the job unless it is already running. It reports whether
// the job ran.
func (r *runner) run(ctx context.Context) (ran bool, err error) {
	name := r.job.Name
	if !r.running.CompareAndSwap(false, true) {
		metrics.JobRunsTotal.WithLabelValues(name, "skipped").Inc()
		r.mu.Lock()
		r.skipped++
		r.mu.Unlock()
		return false, nil
	}
	defer r.running.Store(false)

	metrics.JobRunning.WithLabelValues(name).Set(1)
	start := time.Now()
	status := "success"

	defer func() {
		if rec := recover(); rec != nil {
			status = "panic"
			err = fmt.Errorf("job %s panicked: %v", name, rec)
			logging.Error("Job %s panicked: %v\n%s", name, rec, debug.Stack())
		}

		duration := time.Since(start)
		metrics.JobRunning.WithLabelValues(name).Set(0)
		metrics.JobDuration.WithLabelValues(name).Observe(duration.Seconds())
		metrics.JobRunsTotal.WithLabelValues(name, status).Inc()
		metrics.JobLastRunTimestamp.WithLabelValues(name).Set(float64(start.Unix()))

		r.mu.Lock()
		r.lastRun = start
		r.lastDuration = duration
		r.lastErr = err
		r.runs++
		if err != nil {
			r.failures++
		}
		r.mu.Unlock()

		ran = true
	}()

	logging.Debug("Job %s starting", name)
	if err = r.job.Run(ctx); err != nil {
		status = "error"
	}
	return true, err
}

func (r *runner) status() JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := JobStatus{
		Name:         r.job.Name,
		Interval:     r.job.Interval.String(),
		Running:      r.running.Load(),
		LastRun:      r.lastRun,
		LastDuration: r.lastDuration,
		Runs:         r.runs,
		Failures:     r.failures,
		Skipped:      r.skipped,
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}
