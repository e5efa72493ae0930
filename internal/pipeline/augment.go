package pipeline

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
)

// Augmenter applies random geometric and photometric perturbations to
// training images. Areas uncovered by rotation, shift or zoom-out are filled
// with white, matching the certificate background.
type Augmenter struct {
	// MaxRotation is the largest rotation in degrees, either direction.
	MaxRotation float64

	// MaxShift is the largest translation as a fraction of width or height.
	MaxShift float64

	// MaxZoom is the largest scale change as a fraction, in or out.
	MaxZoom float64

	// Flip enables random horizontal mirroring.
	Flip bool

	// MinBrightness and MaxBrightness bound the brightness multiplier.
	MinBrightness, MaxBrightness float64
}

// DefaultAugmenter returns rotation +/-20 degrees, shift and zoom +/-10%,
// horizontal flip and brightness 0.8 to 1.2.
func DefaultAugmenter() Augmenter {
	return Augmenter{
		MaxRotation:   20,
		MaxShift:      0.1,
		MaxZoom:       0.1,
		Flip:          true,
		MinBrightness: 0.8,
		MaxBrightness: 1.2,
	}
}

// Apply returns a perturbed copy of img with the same bounds.
func (a Augmenter) Apply(img image.Image, rng *rand.Rand) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var out image.Image = img

	if a.Flip && rng.IntN(2) == 1 {
		out = transform.FlipH(out)
	}

	if a.MaxZoom > 0 {
		z := 1 + uniform(rng, a.MaxZoom)
		zw := max(1, int(math.Round(float64(w)*z)))
		zh := max(1, int(math.Round(float64(h)*z)))
		zoomed := transform.Resize(out, zw, zh, transform.Linear)
		out = imaging.PasteCenter(imaging.New(w, h, color.White), zoomed)
	}

	if a.MaxRotation > 0 {
		out = transform.Rotate(out, uniform(rng, a.MaxRotation), nil)
	}

	if a.MaxShift > 0 {
		dx := int(math.Round(uniform(rng, a.MaxShift) * float64(w)))
		dy := int(math.Round(uniform(rng, a.MaxShift) * float64(h)))
		out = transform.Translate(out, dx, dy)
	}

	// Rotation and translation leave transparent corners.
	flat := imaging.Overlay(imaging.New(w, h, color.White), out, image.Pt(0, 0), 1.0)

	if a.MaxBrightness > a.MinBrightness {
		factor := a.MinBrightness + rng.Float64()*(a.MaxBrightness-a.MinBrightness)
		return adjust.Brightness(flat, factor-1)
	}
	return flat
}

// AugmentTensor perturbs t and returns a new tensor of the same size.
func (a Augmenter) AugmentTensor(t *dataset.Tensor, rng *rand.Rand) *dataset.Tensor {
	img := a.Apply(t.ToImage(), rng)
	return dataset.ToTensor(img, dataset.Size{Width: t.Width, Height: t.Height})
}

// Expand returns ds followed by copies perturbed versions of each sample.
// Labels and paths of the copies repeat those of their source.
func (a Augmenter) Expand(ds *dataset.Dataset, copies int, rng *rand.Rand) *dataset.Dataset {
	if copies <= 0 {
		return ds
	}
	n := ds.Len() * (copies + 1)
	out := &dataset.Dataset{
		Classes: ds.Classes,
		Size:    ds.Size,
		Images:  make([]*dataset.Tensor, 0, n),
		Labels:  make([]int, 0, n),
		Paths:   make([]string, 0, n),
		Skipped: ds.Skipped,
	}
	out.Images = append(out.Images, ds.Images...)
	out.Labels = append(out.Labels, ds.Labels...)
	out.Paths = append(out.Paths, ds.Paths...)
	for c := 0; c < copies; c++ {
		for i, t := range ds.Images {
			out.Images = append(out.Images, a.AugmentTensor(t, rng))
			out.Labels = append(out.Labels, ds.Labels[i])
			out.Paths = append(out.Paths, ds.Paths[i])
		}
	}
	return out
}

// uniform returns a value in [-limit, limit].
func uniform(rng *rand.Rand, limit float64) float64 {
	return (rng.Float64()*2 - 1) * limit
}
