// Package statuslog persists the lifecycle status of every ingested image.
//
// The log is a single JSON object mapping an image identifier to
// {"status": "unrated"|"rated", "path": "..."}. Entries are never deleted.
// The whole file is rewritten on each [Log.Upsert] through a temp file and
// rename, so the on-disk copy is always a complete document.
//
// One goroutine owns the map; [Log.Lookup], [Log.Upsert] and friends send it
// requests over a channel. [Open] refuses to start on a file that exists but
// is not a valid log and returns [ErrMalformed] without touching it.
package statuslog
