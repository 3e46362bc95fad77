package media

import (
	"mime"
	"path/filepath"
	"strings"
)

// ImageExtensions are the extensions accepted at intake and served to
// raters, compared case-insensitively.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsSupportedImage reports whether name has an accepted image extension.
// Hidden files are never supported.
func IsSupportedImage(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return ImageExtensions[strings.ToLower(filepath.Ext(base))]
}

// MimeType returns the Content-Type for an image file name.
func MimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// formatMimeTypes maps decoder format names to Content-Types.
var formatMimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}
