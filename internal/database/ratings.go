package database

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RecordRating appends a rating event. RatedAt defaults to now.
func (d *Database) RecordRating(ctx context.Context, event *RatingEvent) error {
	if event.Identifier == "" || event.Rating == "" {
		return errors.New("rating event needs an identifier and a rating")
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("record_rating", start, err) }()

	if event.RatedAt.IsZero() {
		event.RatedAt = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO ratings (identifier, filename, partition_id, rating, rater, path, rated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.Identifier, event.Filename, event.Partition, event.Rating, event.Rater, event.Path, event.RatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}

	id, idErr := res.LastInsertId()
	if idErr == nil {
		event.ID = id
	}
	return nil
}

// RatingHistory returns the most recent events, newest first. A limit of
// zero or less returns every event.
func (d *Database) RatingHistory(ctx context.Context, limit int) ([]RatingEvent, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("rating_history", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if limit <= 0 {
		limit = -1
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, identifier, filename, partition_id, rating, rater, path, rated_at
		FROM ratings
		ORDER BY rated_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []RatingEvent
	for rows.Next() {
		var e RatingEvent
		var ratedAt int64
		if err = rows.Scan(&e.ID, &e.Identifier, &e.Filename, &e.Partition, &e.Rating, &e.Rater, &e.Path, &ratedAt); err != nil {
			return nil, err
		}
		e.RatedAt = time.Unix(ratedAt, 0)
		events = append(events, e)
	}
	err = rows.Err()
	return events, err
}

// LatestRatings returns the newest event per identifier.
func (d *Database) LatestRatings(ctx context.Context) (map[string]RatingEvent, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("latest_ratings", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT r.id, r.identifier, r.filename, r.partition_id, r.rating, r.rater, r.path, r.rated_at
		FROM ratings r
		JOIN (SELECT identifier, MAX(id) AS id FROM ratings GROUP BY identifier) latest
			ON latest.id = r.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	latest := make(map[string]RatingEvent)
	for rows.Next() {
		var e RatingEvent
		var ratedAt int64
		if err = rows.Scan(&e.ID, &e.Identifier, &e.Filename, &e.Partition, &e.Rating, &e.Rater, &e.Path, &ratedAt); err != nil {
			return nil, err
		}
		e.RatedAt = time.Unix(ratedAt, 0)
		latest[e.Identifier] = e
	}
	err = rows.Err()
	return latest, err
}

// RatingCounts returns the number of events per rating value.
func (d *Database) RatingCounts(ctx context.Context) ([]RatingCount, error) {
	return d.countBy(ctx, "rating_counts", "rating")
}

// RaterCounts returns the number of events per rater.
func (d *Database) RaterCounts(ctx context.Context) ([]RatingCount, error) {
	return d.countBy(ctx, "rater_counts", "rater")
}

// countBy groups events by column, which must be a trusted column name.
func (d *Database) countBy(ctx context.Context, operation, column string) ([]RatingCount, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT %[1]s, COUNT(*) FROM ratings GROUP BY %[1]s ORDER BY %[1]s", column)
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []RatingCount{}
	for rows.Next() {
		var c RatingCount
		if err = rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	err = rows.Err()
	return counts, err
}
