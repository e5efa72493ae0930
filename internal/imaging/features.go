package imaging

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Thresholds used by ExtractFeatures.
const (
	// EdgeThreshold is the Sobel magnitude (0-255 scale) above which a pixel
	// counts as an edge.
	EdgeThreshold = 50.0

	// ArtifactBlock is the JPEG block size checked for boundary jumps.
	ArtifactBlock = 8

	// ArtifactJump is the luminance difference across a block boundary
	// that counts as an artifact.
	ArtifactJump = 20.0

	// LevelSampleStep is the grid spacing of the error-level samples.
	LevelSampleStep = 50

	// LevelSpreadLimit is the largest error-level spread still considered
	// a consistently compressed image.
	LevelSpreadLimit = 5000.0
)

// CertificateRatios are the width/height ratios of common certificate paper:
// A-series landscape, 3:2, 16:10 and A-series portrait.
var CertificateRatios = []float64{1.414, 1.5, 1.6, 0.707}

// Features are the hand-crafted forgery cues measured on one image.
type Features struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// EdgeConsistency is the mean Sobel magnitude of edge pixels divided by
	// 255, or 0 when the image has no edges.
	EdgeConsistency float64 `json:"edge_consistency"`

	// TextQuality is the fraction of pixels that are near black or near
	// white, which is high for crisp printed text on a plain background.
	TextQuality float64 `json:"text_quality"`

	// LayoutScore is 1 minus the distance from the aspect ratio to the
	// nearest CertificateRatios entry, floored at 0.
	LayoutScore float64 `json:"layout_score"`

	// CompressionArtifacts grows with the number of sharp jumps found on
	// 8-pixel block boundaries, saturating at 1.
	CompressionArtifacts float64 `json:"compression_artifacts"`

	// LevelSpread is the variance of local 3x3 variances sampled on a
	// 50-pixel grid. Regions re-saved at another quality raise it.
	LevelSpread float64 `json:"level_spread"`

	// ConsistentCompression reports LevelSpread below LevelSpreadLimit.
	ConsistentCompression bool `json:"consistent_compression"`
}

// ExtractFeatures measures the forgery cues of img.
func ExtractFeatures(img image.Image) *Features {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	f := &Features{Width: w, Height: h}
	if w == 0 || h == 0 {
		f.ConsistentCompression = true
		return f
	}

	lum, contrast := luminance(img)
	f.TextQuality = float64(contrast) / float64(w*h)
	f.EdgeConsistency = edgeConsistency(lum, w, h)
	f.LayoutScore = LayoutScore(w, h)
	f.CompressionArtifacts = compressionArtifacts(lum, w, h)
	f.LevelSpread = levelSpread(lum, w, h)
	f.ConsistentCompression = f.LevelSpread < LevelSpreadLimit
	return f
}

// LayoutScore rates how close a w by h page is to a certificate shape.
func LayoutScore(w, h int) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	ratio := float64(w) / float64(h)
	best := math.Inf(1)
	for _, r := range CertificateRatios {
		best = math.Min(best, math.Abs(ratio-r))
	}
	return math.Max(0, 1-best)
}

// luminance returns the BT.601 luma grid (0-255, row-major) and the count of
// pixels whose channel mean is below 50 or above 200.
func luminance(img image.Image) ([]float64, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	lum := make([]float64, w*h)
	contrast := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			rf, gf, bf := float64(r>>8), float64(g>>8), float64(bl>>8)
			lum[y*w+x] = 0.299*rf + 0.587*gf + 0.114*bf
			if mean := (rf + gf + bf) / 3; mean < 50 || mean > 200 {
				contrast++
			}
		}
	}
	return lum, contrast
}

func edgeConsistency(lum []float64, w, h int) float64 {
	var total float64
	edges := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			at := func(dx, dy int) float64 { return lum[(y+dy)*w+x+dx] }
			gx := -at(-1, -1) + at(1, -1) - 2*at(-1, 0) + 2*at(1, 0) - at(-1, 1) + at(1, 1)
			gy := -at(-1, -1) - 2*at(0, -1) - at(1, -1) + at(-1, 1) + 2*at(0, 1) + at(1, 1)
			if m := math.Hypot(gx, gy); m > EdgeThreshold {
				total += m
				edges++
			}
		}
	}
	if edges == 0 {
		return 0
	}
	return total / float64(edges) / 255
}

func compressionArtifacts(lum []float64, w, h int) float64 {
	jumps := 0
	for y := 0; y < h; y++ {
		row := lum[y*w : (y+1)*w]
		for x := 0; x+ArtifactBlock < w; x += ArtifactBlock {
			if math.Abs(row[x]-row[x+ArtifactBlock]) > ArtifactJump {
				jumps++
			}
		}
	}
	return math.Min(1, float64(jumps)/1000)
}

func levelSpread(lum []float64, w, h int) float64 {
	var locals []float64
	window := make([]float64, 0, 9)
	for y := LevelSampleStep; y < h-LevelSampleStep; y += LevelSampleStep {
		for x := LevelSampleStep; x < w-LevelSampleStep; x += LevelSampleStep {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window = append(window, lum[(y+dy)*w+x+dx])
				}
			}
			locals = append(locals, stat.PopVariance(window, nil))
		}
	}
	if len(locals) < 2 {
		return 0
	}
	return stat.PopVariance(locals, nil)
}
