package startup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory and file names under the base directory. These are part of the
// on-disk contract and must not change.
const (
	RawDirName       = "images_raw"
	UnratedDirName   = "images_unrated"
	RatedDirName     = "images_rated"
	DebugDirName     = "images_debug"
	LogsDirName      = "logs"
	ArchiveDirName   = "logs_archive"
	ExportDirName    = "exports"
	StatusLogName    = "images_log.json"
	OperationLogName = "operations.log"
	DatabaseFileName = "ratings.db"
)

// Layout is the resolved set of paths the service works in.
type Layout struct {
	Base         string
	Raw          string
	Unrated      string
	Rated        string
	Debug        string
	Logs         string
	Archive      string
	Export       string
	Database     string
	StatusLog    string
	OperationLog string
}

// NewLayout derives every path from base. databaseDir may be empty, in which
// case the database lives in base/database.
func NewLayout(base, databaseDir string) Layout {
	if databaseDir == "" {
		databaseDir = filepath.Join(base, "database")
	}
	logs := filepath.Join(base, LogsDirName)
	return Layout{
		Base:         base,
		Raw:          filepath.Join(base, RawDirName),
		Unrated:      filepath.Join(base, UnratedDirName),
		Rated:        filepath.Join(base, RatedDirName),
		Debug:        filepath.Join(base, DebugDirName),
		Logs:         logs,
		Archive:      filepath.Join(base, ArchiveDirName),
		Export:       filepath.Join(base, ExportDirName),
		Database:     databaseDir,
		StatusLog:    filepath.Join(logs, StatusLogName),
		OperationLog: filepath.Join(logs, OperationLogName),
	}
}

// DatabasePath is the sqlite file holding rating history.
func (l Layout) DatabasePath() string {
	return filepath.Join(l.Database, DatabaseFileName)
}

// Volumes maps metric labels to directories for filesystem.NewVolumeResolver.
func (l Layout) Volumes() map[string]string {
	return map[string]string{
		"raw":     l.Raw,
		"unrated": l.Unrated,
		"rated":   l.Rated,
		"debug":   l.Debug,
		"logs":    l.Logs,
	}
}

// Ensure creates every directory in the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Raw, l.Unrated, l.Rated, l.Debug, l.Logs, l.Archive, l.Export, l.Database} {
		if err := ensureDirectory(dir); err != nil {
			return err
		}
	}
	return nil
}

func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory: %s", path)
	}
	return nil
}
