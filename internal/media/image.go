package media

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"photo-rater/internal/logging"

	// Decoders registered for format detection
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// DecodeConfig returns the dimensions and format name of the image at path
// without decoding pixel data.
func DecodeConfig(path string) (*ImageDimensions, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, "", err
	}
	return &ImageDimensions{Width: config.Width, Height: config.Height}, format, nil
}

// DecodeFile decodes the image at path applying EXIF orientation, and
// returns it with its detected format name ("jpeg", "png", ...).
func DecodeFile(path string) (image.Image, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (image.Image, string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unrecognized image data: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, format, fmt.Errorf("failed to decode %s image: %w", format, err)
	}
	return img, format, nil
}

// imagingFormat maps a decoder format name to an encoder, if imaging has one.
func imagingFormat(format string) (imaging.Format, bool) {
	switch format {
	case "jpeg":
		return imaging.JPEG, true
	case "png":
		return imaging.PNG, true
	case "gif":
		return imaging.GIF, true
	case "bmp":
		return imaging.BMP, true
	case "tiff":
		return imaging.TIFF, true
	}
	return 0, false
}
