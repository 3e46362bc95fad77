package media

import (
	"os"
	"path/filepath"
	"time"
)

// IdentifierLayout formats the modification time part of an identifier.
const IdentifierLayout = "2006:01:02 15:04:05"

// Identifier returns the dedup key of the file at path: its local
// modification time and base name, e.g. "2024:05:01 13:45:10_IMG_0001.jpg".
// Two files with the same name and mtime share an identifier.
func Identifier(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return IdentifierFor(filepath.Base(path), info.ModTime()), nil
}

// IdentifierFor builds an identifier from a name and modification time.
func IdentifierFor(name string, modTime time.Time) string {
	return modTime.Local().Format(IdentifierLayout) + "_" + name
}
