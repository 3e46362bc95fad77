// Package cli implements the photo-rater command line: serve (the
// default), run for one-off job passes and hash-password for building
// RATER_USERS entries.
package cli
