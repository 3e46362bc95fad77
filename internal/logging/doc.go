// Package logging provides a simple leveled logging interface for the
// photo rater service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable.
//
// Every line is also appended to the operation log (logs/operations.log)
// once an [OperationLog] has been attached with [Attach]. The operation log
// is rotated by the archive job through [OperationLog.Rotate], which holds
// the write lock for the duration of the rotation so no line is lost.
//
// [Slog] returns a *slog.Logger backed by the same leveled output, for
// libraries that expect the standard structured logger.
package logging
