package handlers

import (
	"context"
	"time"

	"photo-rater/internal/auth"
	"photo-rater/internal/database"
	"photo-rater/internal/rating"
	"photo-rater/internal/scheduler"
)

// History is the subset of the ratings database the handlers read.
type History interface {
	Ping(ctx context.Context) error
	RatingCounts(ctx context.Context) ([]database.RatingCount, error)
	RaterCounts(ctx context.Context) ([]database.RatingCount, error)
	GetLastExport(ctx context.Context) (time.Time, error)
	RatingHistory(ctx context.Context, limit int) ([]database.RatingEvent, error)
}

// JobReporter reports the state of background jobs.
type JobReporter interface {
	Status() []scheduler.JobStatus
}

// Config wires Handlers to the services behind them. History and Jobs are
// optional.
type Config struct {
	Ratings     *rating.Service
	Credentials *auth.Credentials
	Tokens      *auth.TokenManager
	History     History
	Jobs        JobReporter
}

type Handlers struct {
	ratings     *rating.Service
	credentials *auth.Credentials
	tokens      *auth.TokenManager
	history     History
	jobs        JobReporter
	startTime   time.Time
	now         func() time.Time
}

func New(cfg Config) *Handlers {
	return &Handlers{
		ratings:     cfg.Ratings,
		credentials: cfg.Credentials,
		tokens:      cfg.Tokens,
		history:     cfg.History,
		jobs:        cfg.Jobs,
		startTime:   time.Now(),
		now:         time.Now,
	}
}
