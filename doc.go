// Command photo-rater serves a photo library to human raters and moves each
// image through its lifecycle on disk.
//
// New images dropped into the raw folder are identified by modification
// time and file name, recorded in the status log and spread over numbered
// partitions of the unrated folder. Raters sign in, fetch batches of
// unrated images and rate them; a rated image moves to
// images_rated/<rating>/. Background jobs generate thumbnails, archive the
// operation log and export the status log to Parquet.
//
// Usage:
//
//	photo-rater [serve]           run the API server and background jobs
//	photo-rater run <job>         run one job once and exit
//	photo-rater hash-password     print a bcrypt hash for RATER_USERS
//
// Configuration is read from the environment, and from a .env file in the
// working directory when present. The main variables are:
//
//	PORT                   HTTP listen port (default 5410)
//	BASE_DIR               root of the working folders (default .)
//	RATER_USERNAME         single rater account name
//	RATER_PASSWORD         single rater account password
//	RATER_USERS            user:bcrypt-hash pairs, comma separated
//	JWT_SECRET             token signing secret (random when unset)
//	PARTITION_SIZE         images per unrated partition
//	IMAGE_BATCH_SIZE       images handed out per request
//	MAX_FILE_SIZE_BYTES    largest image served without compression
//	EXPORT_INTERVAL        Parquet export period (0 disables)
//	MEMORY_LIMIT           container memory limit in bytes
//	METRICS_PORT           Prometheus listen port (default 9090)
package main
