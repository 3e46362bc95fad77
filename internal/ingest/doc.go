// Package ingest moves images dropped into the raw intake tree into the
// numbered partitions, deduplicating against the status log.
//
// A pass walks the intake tree in lexical order and, for each supported
// image, either deletes it (its identifier is already logged), defers it (the
// target partition already holds the same name) or moves it into the slot
// chosen by the partition allocator and records it as unrated. The whole
// pass holds the partition lock.
package ingest
