package ocr

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Bounds is a word bounding box in pixel coordinates. X2 and Y2 are
// exclusive.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// TextRegion is one recognized word.
type TextRegion struct {
	Text string `json:"text"`

	// Confidence is Tesseract's word confidence scaled to 0-1.
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// OCRResult holds the text read from an image.
type OCRResult struct {
	FullText string       `json:"full_text"`
	Regions  []TextRegion `json:"regions"`
}

// MeanConfidence averages the word confidences, or returns 0 without words.
func (r *OCRResult) MeanConfidence() float64 {
	if len(r.Regions) == 0 {
		return 0
	}
	var sum float64
	for _, w := range r.Regions {
		sum += w.Confidence
	}
	return sum / float64(len(r.Regions))
}

// ExtractText runs Tesseract over the image file at imagePath.
//
// Word regions are collected at RIL_WORD level with empty words dropped. If
// Tesseract cannot report boxes the full text is still returned with no
// regions.
func ExtractText(imagePath string, language string) (*OCRResult, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	if language == "" {
		language = DefaultLanguage
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	result := &OCRResult{FullText: text, Regions: []TextRegion{}}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return result, nil
	}
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		result.Regions = append(result.Regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}
	return result, nil
}

// ExtractTextFromImage runs OCR on an in-memory image. The image is written
// to a temporary PNG in tempDir (empty means os.TempDir()), which is removed
// before returning on every path.
//
// A non-empty region restricts recognition to that rectangle; returned word
// bounds are translated back into img coordinates.
func ExtractTextFromImage(img image.Image, region image.Rectangle, language, tempDir string) (*OCRResult, error) {
	src := img
	offset := img.Bounds().Min
	if !region.Empty() {
		region = region.Intersect(img.Bounds())
		if region.Empty() {
			return nil, fmt.Errorf("OCR region outside image bounds")
		}
		src = imaging.Crop(img, region)
		offset = region.Min
	}

	tmpFile, err := os.CreateTemp(tempDir, "ocr-region-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	err = imaging.Encode(tmpFile, src, imaging.PNG)
	if cerr := tmpFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode temp image: %w", err)
	}

	result, err := ExtractText(tmpPath, language)
	if err != nil {
		return nil, err
	}
	for i := range result.Regions {
		b := &result.Regions[i].Bounds
		b.X1 += offset.X
		b.Y1 += offset.Y
		b.X2 += offset.X
		b.Y2 += offset.Y
	}
	return result, nil
}

// Capability reports whether OCR can run on this host.
type Capability struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Language  string `json:"language"`
	Reason    string `json:"reason,omitempty"`
}

var (
	availMu    sync.Mutex
	availCache = map[string]Capability{}
)

// Available checks Tesseract once per language by recognizing a small blank
// image, and caches the outcome. Callers use it to skip audits instead of
// failing them on hosts without language data.
func Available(language string) Capability {
	if language == "" {
		language = DefaultLanguage
	}
	availMu.Lock()
	defer availMu.Unlock()
	if c, ok := availCache[language]; ok {
		return c
	}

	c := Capability{Language: language, Version: gosseract.Version()}
	blank := imaging.New(64, 32, color.White)
	if _, err := ExtractTextFromImage(blank, image.Rectangle{}, language, ""); err != nil {
		c.Reason = err.Error()
	} else {
		c.Available = true
	}
	availCache[language] = c
	return c
}
