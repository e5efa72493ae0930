package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// requireTesseract skips the test when OCR cannot run on this host.
func requireTesseract(t *testing.T) {
	t.Helper()
	if c := Available(DefaultLanguage); !c.Available {
		t.Skipf("Tesseract not available: %s", c.Reason)
	}
}

// renderLines draws lines with basicfont and scales the result up by scale
// so Tesseract sees glyphs of a realistic size.
func renderLines(lines []string, scale int) *image.RGBA {
	maxLen := 0
	for _, l := range lines {
		maxLen = max(maxLen, len(l))
	}
	w, h := maxLen*7+40, len(lines)*16+30
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	for i, l := range lines {
		d := &font.Drawer{
			Dst:  small,
			Src:  image.NewUniform(color.Black),
			Face: basicfont.Face7x13,
			Dot:  fixed.Point26_6{X: fixed.I(20), Y: fixed.I(20 + i*16)},
		}
		d.DrawString(l)
	}

	img := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h*scale; y++ {
		for x := 0; x < w*scale; x++ {
			img.Set(x, y, small.At(x/scale, y/scale))
		}
	}
	return img
}

func writeImage(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "text.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestExtractText_NonExistentFile(t *testing.T) {
	if _, err := ExtractText("/nonexistent/path/image.png", "eng"); err == nil {
		t.Error("ExtractText should fail for non-existent file")
	}
}

func TestExtractTextFromImage_RegionOutside(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	dir := t.TempDir()
	if _, err := ExtractTextFromImage(img, image.Rect(100, 100, 200, 200), "eng", dir); err == nil {
		t.Error("region outside the image should fail")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp directory holds %d files, want 0", len(entries))
	}
}

func TestExtractTextFromImage_MissingTempDir(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	if _, err := ExtractTextFromImage(img, image.Rectangle{}, "eng", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing temp directory should fail")
	}
}

func TestExtractText_RealText(t *testing.T) {
	requireTesseract(t)
	path := writeImage(t, renderLines([]string{"HELLO WORLD"}, 4))

	result, err := ExtractText(path, "eng")
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	t.Logf("Extracted text: %q (%d regions)", result.FullText, len(result.Regions))
	for _, r := range result.Regions {
		if r.Text == "" {
			t.Error("empty word region returned")
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("confidence %v outside [0,1]", r.Confidence)
		}
	}
}

func TestExtractTextFromImage_RegionOffsets(t *testing.T) {
	requireTesseract(t)
	img := renderLines([]string{"", "", "OFFSET TEXT"}, 4)
	region := image.Rect(0, img.Bounds().Dy()/2, img.Bounds().Dx(), img.Bounds().Dy())
	dir := t.TempDir()

	result, err := ExtractTextFromImage(img, region, "eng", dir)
	if err != nil {
		t.Fatalf("ExtractTextFromImage failed: %v", err)
	}
	for _, r := range result.Regions {
		if r.Bounds.Y1 < region.Min.Y {
			t.Errorf("word %q at y=%d lies above region start %d", r.Text, r.Bounds.Y1, region.Min.Y)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp directory holds %d files after OCR, want 0", len(entries))
	}
}

func TestAvailable_Cached(t *testing.T) {
	first := Available("")
	second := Available(DefaultLanguage)
	if first != second {
		t.Errorf("capability not cached: %+v vs %+v", first, second)
	}
	if first.Language != DefaultLanguage {
		t.Errorf("Language: got %q, want %q", first.Language, DefaultLanguage)
	}
	if !first.Available && first.Reason == "" {
		t.Error("unavailable capability has no reason")
	}
}

func TestMeanConfidence(t *testing.T) {
	r := &OCRResult{}
	if r.MeanConfidence() != 0 {
		t.Error("MeanConfidence of no words should be 0")
	}
	r.Regions = []TextRegion{{Text: "a", Confidence: 0.5}, {Text: "b", Confidence: 1}}
	if got := r.MeanConfidence(); got != 0.75 {
		t.Errorf("MeanConfidence: got %v, want 0.75", got)
	}
}
