// Package archive rotates the operation log into timestamped zip files
// under logs_archive/ once it exceeds its size threshold.
package archive
