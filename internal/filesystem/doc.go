/*
Package filesystem provides the file operations the image lifecycle is built
on: moves that keep modification times, atomic whole-file writes, and
stat/open/rename wrappers that retry on stale NFS file handles.

# Moves

[MoveFile] renames within a filesystem and falls back to copy, fsync and
remove when the rename fails with EXDEV. The source mtime is carried over in
both cases, since image identifiers are derived from it.

# Atomic Writes

[WriteFileAtomic] writes to a temp file in the destination directory, syncs
and renames over the target. The status log and thumbnails are written this
way.

# Retries

[StatWithRetry], [OpenWithRetry] and [RenameWithRetry] retry only on ESTALE,
with exponential backoff capped by [RetryConfig.MaxBackoff]. Other errors
are returned immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

# Metrics

Operation timings and retry counts are reported through an [Observer] set
with [SetObserver]; paths are labeled by the [VolumeResolver] installed with
[SetDefaultVolumeResolver].
*/
package filesystem
