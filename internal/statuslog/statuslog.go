package statuslog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"photo-rater/internal/filesystem"
	"photo-rater/internal/metrics"

	"github.com/goccy/go-json"
)

// Status is the lifecycle state of an ingested image.
type Status string

const (
	StatusUnrated Status = "unrated"
	StatusRated   Status = "rated"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusUnrated || s == StatusRated
}

// Entry is the persisted record for one identifier.
type Entry struct {
	Status Status `json:"status"`
	Path   string `json:"path"`
}

var (
	// ErrMalformed is returned by Open when the file exists but does not hold
	// an identifier to entry object. The file is left untouched.
	ErrMalformed = errors.New("status log is malformed")

	// ErrClosed is returned by operations on a closed Log.
	ErrClosed = errors.New("status log is closed")
)

type opKind int

const (
	opLookup opKind = iota
	opUpsert
	opSnapshot
	opCounts
)

type request struct {
	kind  opKind
	id    string
	entry Entry
	reply chan response
}

type response struct {
	entry    Entry
	found    bool
	snapshot map[string]Entry
	counts   map[Status]int
	err      error
}

// Log is the persistent identifier to status mapping. A single goroutine
// owns the map and the file; every method is a request to it, so callers
// never race on the read-modify-write of the file.
type Log struct {
	path string

	requests chan request
	quit     chan struct{}
	done     chan struct{}

	// written runs in the owning goroutine after each successful rewrite.
	written func()

	closeOnce sync.Once
}

// Open loads the log at path, creating it holding {} when absent.
func Open(path string) (*Log, error) {
	entries, err := load(path)
	if err != nil {
		return nil, err
	}

	l := &Log{
		path:     path,
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.run(entries)
	return l, nil
}

func load(path string) (map[string]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create status log directory: %w", err)
		}
		if err := filesystem.WriteFileAtomic(path, []byte("{}"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to create status log: %w", err)
		}
		return make(map[string]Entry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status log: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: %s is not a JSON object", ErrMalformed, path)
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	for id, entry := range entries {
		if !entry.Status.Valid() {
			return nil, fmt.Errorf("%w: %s: entry %q has status %q", ErrMalformed, path, id, entry.Status)
		}
	}
	return entries, nil
}

// Path returns the file backing the log.
func (l *Log) Path() string {
	return l.path
}

func (l *Log) run(entries map[string]Entry) {
	defer close(l.done)

	for {
		select {
		case <-l.quit:
			return
		case req := <-l.requests:
			req.reply <- l.handle(entries, req)
		}
	}
}

func (l *Log) handle(entries map[string]Entry, req request) response {
	switch req.kind {
	case opLookup:
		entry, found := entries[req.id]
		return response{entry: entry, found: found}

	case opUpsert:
		prev, existed := entries[req.id]
		entries[req.id] = req.entry
		if err := l.persist(entries); err != nil {
			if existed {
				entries[req.id] = prev
			} else {
				delete(entries, req.id)
			}
			return response{err: err}
		}
		return response{}

	case opSnapshot:
		snapshot := make(map[string]Entry, len(entries))
		for id, entry := range entries {
			snapshot[id] = entry
		}
		return response{snapshot: snapshot}

	case opCounts:
		counts := make(map[Status]int, 2)
		for _, entry := range entries {
			counts[entry.Status]++
		}
		return response{counts: counts}
	}
	return response{err: fmt.Errorf("unknown status log operation %d", req.kind)}
}

// persist rewrites the whole file: 4-space indented JSON, temp file, fsync,
// rename.
func (l *Log) persist(entries map[string]Entry) error {
	start := time.Now()
	defer func() {
		metrics.StatusLogWriteDuration.Observe(time.Since(start).Seconds())
	}()

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		metrics.StatusLogWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to encode status log: %w", err)
	}
	if err := filesystem.WriteFileAtomic(l.path, data, 0o644); err != nil {
		metrics.StatusLogWritesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to write status log: %w", err)
	}
	metrics.StatusLogWritesTotal.WithLabelValues("success").Inc()
	if l.written != nil {
		l.written()
	}
	return nil
}

func (l *Log) call(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)

	select {
	case l.requests <- req:
	case <-l.done:
		return response{}, ErrClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	// Once accepted the request is applied, so the caller must learn its
	// outcome even if ctx ends meanwhile. The owning goroutine always replies.
	resp := <-req.reply
	return resp, resp.err
}

// Lookup returns the entry for id and whether it exists.
func (l *Log) Lookup(ctx context.Context, id string) (Entry, bool, error) {
	resp, err := l.call(ctx, request{kind: opLookup, id: id})
	if err != nil {
		return Entry{}, false, err
	}
	return resp.entry, resp.found, nil
}

// Upsert sets the entry for id and rewrites the file. If the write fails the
// in-memory state is rolled back and the error returned.
func (l *Log) Upsert(ctx context.Context, id string, entry Entry) error {
	if id == "" {
		return errors.New("status log identifier is empty")
	}
	if !entry.Status.Valid() {
		return fmt.Errorf("invalid status %q", entry.Status)
	}
	_, err := l.call(ctx, request{kind: opUpsert, id: id, entry: entry})
	return err
}

// Snapshot returns a copy of every entry.
func (l *Log) Snapshot(ctx context.Context) (map[string]Entry, error) {
	resp, err := l.call(ctx, request{kind: opSnapshot})
	if err != nil {
		return nil, err
	}
	return resp.snapshot, nil
}

// Counts returns the number of entries per status.
func (l *Log) Counts(ctx context.Context) (map[Status]int, error) {
	resp, err := l.call(ctx, request{kind: opCounts})
	if err != nil {
		return nil, err
	}
	return resp.counts, nil
}

// Len returns the number of entries.
func (l *Log) Len(ctx context.Context) (int, error) {
	counts, err := l.Counts(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// Close stops the owning goroutine. Every Upsert has already been written,
// so there is nothing to flush.
func (l *Log) Close() error {
	l.closeOnce.Do(func() {
		close(l.quit)
	})
	<-l.done
	return nil
}
