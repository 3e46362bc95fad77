package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const lastExportKey = "last_export"

// GetMetadata retrieves a metadata value by key. It returns sql.ErrNoRows
// when the key does not exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_metadata", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err = d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		// a missing key is not a query failure
		err = nil
		return "", sql.ErrNoRows
	}
	return value, err
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_metadata", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetLastExport returns when the last dataset export was written, or the
// zero time if never.
func (d *Database) GetLastExport(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, lastExportKey)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastExport stores when the last dataset export was written.
func (d *Database) SetLastExport(ctx context.Context, t time.Time) error {
	return d.SetMetadata(ctx, lastExportKey, t.UTC().Format(time.RFC3339))
}
