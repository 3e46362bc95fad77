package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"photo-rater/internal/filesystem"
	"photo-rater/internal/logging"
	"photo-rater/internal/metrics"

	"github.com/disintegration/imaging"
)

// Scales is the resize ladder, least aggressive first.
var Scales = []float64{0.8, 0.6, 0.4, 0.2}

// Qualities is the JPEG quality ladder tried at each scale.
var Qualities = []int{100, 90, 80, 70, 60, 50, 40, 30, 20, 10}

var (
	// ErrUnshrinkable means no step of the ladder met the byte budget.
	ErrUnshrinkable = errors.New("image cannot be compressed to the size budget")

	// ErrQuarantined means the original was moved out of circulation.
	ErrQuarantined = errors.New("image moved to quarantine")
)

// CompressResult is an encoded image that fits the budget.
type CompressResult struct {
	Data        []byte
	Format      string
	ContentType string
	Scale       float64
	Quality     int // 0 for formats without a quality setting
	Attempts    int
}

// Compressor shrinks oversized images for serving and quarantines the ones
// it cannot shrink.
type Compressor struct {
	budget        int64
	quarantineDir string
}

// NewCompressor creates a compressor with a byte budget. Images that cannot
// meet it are moved into quarantineDir.
func NewCompressor(budget int64, quarantineDir string) *Compressor {
	return &Compressor{budget: budget, quarantineDir: quarantineDir}
}

// Budget returns the byte budget.
func (c *Compressor) Budget() int64 {
	return c.budget
}

// Compress searches the ladder in fixed order and returns the first encoding
// at or under budget. JPEG tries every quality at a scale before the
// next scale; PNG re-encodes losslessly at best compression; other formats
// use their own encoder when one exists and JPEG otherwise.
func (c *Compressor) Compress(img image.Image, format string) (*CompressResult, error) {
	start := time.Now()
	defer func() {
		metrics.CompressionDuration.Observe(time.Since(start).Seconds())
	}()

	var buf bytes.Buffer
	attempts := 0

	try := func(scaled image.Image, outFormat imaging.Format, opts ...imaging.EncodeOption) (bool, error) {
		attempts++
		buf.Reset()
		if err := imaging.Encode(&buf, scaled, outFormat, opts...); err != nil {
			return false, fmt.Errorf("failed to encode at attempt %d: %w", attempts, err)
		}
		return int64(buf.Len()) <= c.budget, nil
	}

	bounds := img.Bounds()
	for _, scale := range Scales {
		width := int(float64(bounds.Dx()) * scale)
		if width < 1 {
			width = 1
		}
		scaled := imaging.Resize(img, width, 0, imaging.Lanczos)

		switch format {
		case "jpeg":
			for _, quality := range Qualities {
				ok, err := try(scaled, imaging.JPEG, imaging.JPEGQuality(quality))
				if err != nil {
					return nil, err
				}
				if ok {
					return c.result(&buf, "jpeg", scale, quality, attempts), nil
				}
			}

		case "png":
			ok, err := try(scaled, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
			if err != nil {
				return nil, err
			}
			if ok {
				return c.result(&buf, "png", scale, 0, attempts), nil
			}

		default:
			outFormat, native := imagingFormat(format)
			outName := format
			if !native {
				outFormat, outName = imaging.JPEG, "jpeg"
			}
			ok, err := try(scaled, outFormat)
			if err != nil {
				return nil, err
			}
			if ok {
				return c.result(&buf, outName, scale, 0, attempts), nil
			}
		}
	}

	metrics.CompressionAttempts.Observe(float64(attempts))
	return nil, fmt.Errorf("%w: %d attempts, budget %d bytes", ErrUnshrinkable, attempts, c.budget)
}

func (c *Compressor) result(buf *bytes.Buffer, format string, scale float64, quality, attempts int) *CompressResult {
	metrics.CompressionAttempts.Observe(float64(attempts))
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	return &CompressResult{
		Data:        data,
		Format:      format,
		ContentType: formatMimeTypes[format],
		Scale:       scale,
		Quality:     quality,
		Attempts:    attempts,
	}
}

// CompressFile decodes the image at path and runs the ladder. When the image
// cannot be decoded or shrunk, it is moved into the quarantine folder and the
// returned error wraps ErrQuarantined.
func (c *Compressor) CompressFile(path string) (*CompressResult, error) {
	img, format, err := DecodeFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		metrics.CompressionTotal.WithLabelValues(formatLabel(format), "decode_error").Inc()
		return nil, c.quarantine(path, err)
	}

	result, err := c.Compress(img, format)
	if errors.Is(err, ErrUnshrinkable) {
		metrics.CompressionTotal.WithLabelValues(formatLabel(format), "unshrinkable").Inc()
		return nil, c.quarantine(path, err)
	}
	if err != nil {
		return nil, err
	}

	metrics.CompressionTotal.WithLabelValues(formatLabel(format), "success").Inc()
	logging.Info("Compressed %s to %d bytes (scale %.1f, quality %d, %d attempts)",
		filepath.Base(path), len(result.Data), result.Scale, result.Quality, result.Attempts)
	return result, nil
}

func (c *Compressor) quarantine(path string, cause error) error {
	if err := os.MkdirAll(c.quarantineDir, 0o755); err != nil {
		return fmt.Errorf("failed to create quarantine folder: %w", err)
	}

	dst := filepath.Join(c.quarantineDir, filepath.Base(path))
	if err := filesystem.MoveFile(path, dst); err != nil {
		return fmt.Errorf("failed to quarantine %s: %w (cause: %v)", path, err, cause)
	}

	metrics.QuarantinedTotal.Inc()
	logging.Error("Moved %s to %s: %v", filepath.Base(path), c.quarantineDir, cause)
	return fmt.Errorf("%w: %s: %v", ErrQuarantined, filepath.Base(path), cause)
}

func formatLabel(format string) string {
	if _, ok := formatMimeTypes[format]; ok {
		return format
	}
	return "unknown"
}
