package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/davidbyttow/govips/v2/vips"

	"photo-rater/internal/logging"
)

// NOTE: libvips cannot be restarted once shut down, so these tests never
// call ShutdownVips. The tests that need vips stopped run before
// TestGenerateWithVips starts it.

func TestLoadWithVipsUnavailable(t *testing.T) {
	if IsVipsAvailable() {
		t.Skip("libvips already initialized")
	}
	if _, err := loadWithVips("missing.jpg", 100); !errors.Is(err, errVipsUnavailable) {
		t.Errorf("loadWithVips() error = %v, want errVipsUnavailable", err)
	}
}

func TestGenerateFallsBackToImaging(t *testing.T) {
	if IsVipsAvailable() {
		t.Skip("libvips already initialized")
	}

	pm, _ := newThumbFixture(t)
	src := createTestJPEG(t, pm.Path(1), "a.jpg", 240, 120)
	dst := filepath.Join(t.TempDir(), "a.jpg")

	gen := NewThumbnailGenerator(pm, 60, 1)
	if err := gen.Generate(src, dst); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	dims, _, err := DecodeConfig(dst)
	if err != nil {
		t.Fatal(err)
	}
	if dims.Width != 60 || dims.Height != 30 {
		t.Errorf("thumbnail is %dx%d, want 60x30", dims.Width, dims.Height)
	}
}

func TestVipsLogLevel(t *testing.T) {
	tests := []struct {
		level logging.LogLevel
		want  vips.LogLevel
	}{
		{logging.LevelDebug, vips.LogLevelInfo},
		{logging.LevelInfo, vips.LogLevelWarning},
		{logging.LevelWarn, vips.LogLevelError},
		{logging.LevelError, vips.LogLevelCritical},
	}
	for _, tt := range tests {
		if got := vipsLogLevel(tt.level); got != tt.want {
			t.Errorf("vipsLogLevel(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestGenerateWithVips(t *testing.T) {
	if err := InitVips(); err != nil {
		t.Skipf("libvips not available: %v", err)
	}
	if err := InitVips(); err != nil {
		t.Fatalf("second InitVips() error = %v", err)
	}
	if !IsVipsAvailable() {
		t.Fatal("IsVipsAvailable() = false after InitVips")
	}

	pm, _ := newThumbFixture(t)
	gen := NewThumbnailGenerator(pm, 100, 1)

	tests := []struct {
		name          string
		width, height int
		maxW, maxH    int
	}{
		{"large.jpg", 400, 200, 100, 50},
		{"small.jpg", 40, 30, 40, 30},
		{"large.png", 150, 300, 50, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var src string
			if filepath.Ext(tt.name) == ".png" {
				src = createTestPNG(t, pm.Path(1), tt.name, tt.width, tt.height)
			} else {
				src = createTestJPEG(t, pm.Path(1), tt.name, tt.width, tt.height)
			}
			dst := filepath.Join(t.TempDir(), tt.name)
			if err := gen.Generate(src, dst); err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			dims, _, err := DecodeConfig(dst)
			if err != nil {
				t.Fatal(err)
			}
			if dims.Width > tt.maxW || dims.Height > tt.maxH {
				t.Errorf("thumbnail is %dx%d, want at most %dx%d", dims.Width, dims.Height, tt.maxW, tt.maxH)
			}
			if dims.Width < tt.maxW-1 && dims.Height < tt.maxH-1 {
				t.Errorf("thumbnail is %dx%d, want about %dx%d", dims.Width, dims.Height, tt.maxW, tt.maxH)
			}
		})
	}

	t.Run("unreadable source falls back and fails", func(t *testing.T) {
		src := filepath.Join(pm.Path(1), "broken.jpg")
		if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := gen.Generate(src, filepath.Join(t.TempDir(), "broken.jpg")); err == nil {
			t.Error("Generate() on a corrupt file should fail")
		}
	})
}
