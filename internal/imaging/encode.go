package imaging

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// SaveJPEG writes img to path as a JPEG with the given quality (1-100).
//
// The parent directory must already exist. Unlike the standard encoder, an
// out-of-range quality is an error instead of being clamped.
func SaveJPEG(path string, img image.Image, quality int) error {
	if err := checkQuality(quality); err != nil {
		return err
	}
	if err := imgio.Save(path, img, imgio.JPEGEncoder(quality)); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// RecompressJPEG round-trips img through a lossy JPEG file to introduce
// block and ringing artifacts.
//
// Parameters:
//   - img: Source image.
//   - quality: JPEG quality, 1-100. Lower values produce stronger artifacts.
//   - tempDir: Directory for the intermediate file. Empty means os.TempDir().
//
// Returns the decoded image as *image.NRGBA with the same bounds as img.
//
// # Temporary File
//
// The intermediate file is created with os.CreateTemp and removed before
// RecompressJPEG returns, whether encoding and decoding succeed or not.
func RecompressJPEG(img image.Image, quality int, tempDir string) (*image.NRGBA, error) {
	tmpFile, err := os.CreateTemp(tempDir, "recompress-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)
	defer tmpFile.Close()

	if err := encodeJPEG(tmpFile, img, quality); err != nil {
		return nil, fmt.Errorf("failed to encode temp image: %w", err)
	}
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind temp image: %w", err)
	}

	decoded, err := imaging.Decode(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("failed to decode temp image: %w", err)
	}
	return imaging.Clone(decoded), nil
}

// Resample shrinks img by factor and scales it back to its original size,
// discarding the detail a low-resolution capture would lose.
//
// factor must be in (0, 1). The downscale uses a box filter and the upscale a
// linear filter, similar to a screen capture viewed at a different zoom.
func Resample(img image.Image, factor float64) (*image.NRGBA, error) {
	if factor <= 0 || factor >= 1 {
		return nil, fmt.Errorf("resample factor %v outside (0,1)", factor)
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor))
	h := max(1, int(float64(b.Dy())*factor))

	small := imaging.Resize(img, w, h, imaging.Box)
	return imaging.Resize(small, b.Dx(), b.Dy(), imaging.Linear), nil
}

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	if err := checkQuality(quality); err != nil {
		return err
	}
	return imgio.JPEGEncoder(quality)(w, img)
}

func checkQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return fmt.Errorf("jpeg quality %d outside 1-100", quality)
	}
	return nil
}
