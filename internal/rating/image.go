package rating

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"photo-rater/internal/media"
	"photo-rater/internal/metrics"
	"photo-rater/internal/partition"
)

// ErrQuarantined means the image could not be shrunk for serving and was
// taken out of circulation.
var ErrQuarantined = media.ErrQuarantined

// Image is the body to send for an image request: either a file on disk or
// an in-memory compressed encoding.
type Image struct {
	Path        string // set for thumbnail and original
	Data        []byte // set for compressed
	ContentType string
	Source      string // "thumbnail", "original" or "compressed"
}

// ResolveImage picks what to serve for (partition, filename): the thumbnail
// if one exists, else the original when it fits the size budget, else a
// compressed copy. The original must still be in the partition.
func (s *Service) ResolveImage(partitionName, filename string) (*Image, error) {
	n, err := partition.ParsePartition(partitionName)
	if err != nil || !validName(filename) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, partitionName, filename)
	}

	original := filepath.Join(s.partitions.Path(n), filename)
	info, err := os.Stat(original)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s in partition %d", ErrNotFound, filename, n)
	}

	thumb := filepath.Join(s.partitions.ThumbPath(n), filename)
	if _, err := os.Stat(thumb); err == nil {
		metrics.ImagesServedTotal.WithLabelValues("thumbnail").Inc()
		return &Image{Path: thumb, ContentType: media.MimeType(filename), Source: "thumbnail"}, nil
	}

	if s.compressor == nil || info.Size() <= s.compressor.Budget() {
		metrics.ImagesServedTotal.WithLabelValues("original").Inc()
		return &Image{Path: original, ContentType: media.MimeType(filename), Source: "original"}, nil
	}

	result, err := s.compressor.CompressFile(original)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s vanished", ErrNotFound, filename)
	case errors.Is(err, media.ErrQuarantined):
		s.tracker.EvictAll(filename)
		return nil, err
	case err != nil:
		return nil, err
	}

	metrics.ImagesServedTotal.WithLabelValues("compressed").Inc()
	return &Image{Data: result.Data, ContentType: result.ContentType, Source: "compressed"}, nil
}
