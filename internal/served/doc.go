// Package served tracks, per user, which images have been handed out and
// not yet rated, with time-based expiry.
package served
