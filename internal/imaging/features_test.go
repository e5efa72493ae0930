package imaging

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"testing"
)

// createBoxImage draws a black rectangle on a white background.
func createBoxImage(width, height int) *image.RGBA {
	img := createInMemoryImage(width, height, color.White)
	for y := height / 4; y < 3*height/4; y++ {
		for x := width / 4; x < 3*width/4; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func TestExtractFeatures_Uniform(t *testing.T) {
	f := ExtractFeatures(createInMemoryImage(200, 150, color.White))

	if f.EdgeConsistency != 0 {
		t.Errorf("EdgeConsistency: got %v, want 0 for a uniform image", f.EdgeConsistency)
	}
	if f.TextQuality != 1 {
		t.Errorf("TextQuality: got %v, want 1 for all-white pixels", f.TextQuality)
	}
	if f.CompressionArtifacts != 0 {
		t.Errorf("CompressionArtifacts: got %v, want 0", f.CompressionArtifacts)
	}
	if f.LevelSpread != 0 || !f.ConsistentCompression {
		t.Errorf("level spread: got %v consistent=%v, want 0 and true", f.LevelSpread, f.ConsistentCompression)
	}

	gray := ExtractFeatures(createInMemoryImage(50, 50, color.Gray{Y: 128}))
	if gray.TextQuality != 0 {
		t.Errorf("TextQuality: got %v, want 0 for mid-gray pixels", gray.TextQuality)
	}
}

func TestExtractFeatures_Edges(t *testing.T) {
	f := ExtractFeatures(createBoxImage(100, 100))

	if f.EdgeConsistency <= 0 {
		t.Fatalf("EdgeConsistency: got %v, want > 0 for a hard-edged box", f.EdgeConsistency)
	}
	// Sobel magnitude is at most sqrt(2)*4*255.
	if f.EdgeConsistency > 4*math.Sqrt2 {
		t.Errorf("EdgeConsistency: got %v, want <= %v", f.EdgeConsistency, 4*math.Sqrt2)
	}
	if f.TextQuality != 1 {
		t.Errorf("TextQuality: got %v, want 1 for pure black and white", f.TextQuality)
	}
	if f.CompressionArtifacts == 0 {
		t.Error("CompressionArtifacts: blocks crossing the box edges should count")
	}
}

func TestExtractFeatures_NoiseRaisesLevelSpread(t *testing.T) {
	clean := ExtractFeatures(createInMemoryImage(300, 300, color.Gray{Y: 128}))

	noisy := createInMemoryImage(300, 300, color.Gray{Y: 128})
	rng := rand.New(rand.NewPCG(3, 4))
	// Noise only in the left half makes local variance uneven.
	for y := 0; y < 300; y++ {
		for x := 0; x < 150; x++ {
			noisy.Set(x, y, color.Gray{Y: uint8(rng.IntN(256))})
		}
	}
	f := ExtractFeatures(noisy)

	if f.LevelSpread <= clean.LevelSpread {
		t.Errorf("LevelSpread: noisy %v should exceed clean %v", f.LevelSpread, clean.LevelSpread)
	}
	if f.ConsistentCompression {
		t.Errorf("half-noisy image reported consistent compression (spread %v)", f.LevelSpread)
	}
}

func TestExtractFeatures_Empty(t *testing.T) {
	f := ExtractFeatures(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	if f.Width != 0 || f.EdgeConsistency != 0 || !f.ConsistentCompression {
		t.Errorf("unexpected features for empty image: %+v", f)
	}
}

func TestLayoutScore(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want float64
	}{
		{"A4 landscape", 1414, 1000, 1},
		{"A4 portrait", 707, 1000, 1},
		{"generated canvas", 800, 600, 1 - (1.414 - 800.0/600.0)},
		{"square", 100, 100, 1 - (1 - 0.707)},
		{"panorama", 4000, 1000, 0},
		{"zero height", 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LayoutScore(tt.w, tt.h)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("LayoutScore(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
			}
		})
	}
}
