// Package export writes the rated images as a Parquet dataset, one row per
// rated status log entry, joined with the rater and time from the rating
// history when known.
package export
