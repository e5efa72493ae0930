package synth

import (
	"fmt"
	"image"
	"math/rand/v2"

	"github.com/disintegration/imaging"

	certimg "github.com/ironsheep/cert-dataset-tools/internal/imaging"
)

// Profile names a degradation applied to a rendered certificate.
type Profile string

// Supported degradation profiles.
const (
	ProfileNone       Profile = "none"
	ProfileNoise      Profile = "noise"
	ProfileLossy      Profile = "lossy-recompress"
	ProfileDownsample Profile = "downsample-upsample"
)

// ParseProfile converts a profile name into a Profile.
func ParseProfile(name string) (Profile, error) {
	switch p := Profile(name); p {
	case ProfileNone, ProfileNoise, ProfileLossy, ProfileDownsample:
		return p, nil
	default:
		return "", fmt.Errorf("unknown degradation profile %q", name)
	}
}

// DegradeOptions tunes the degradation profiles.
type DegradeOptions struct {
	// NoisePixels is how many randomly chosen pixels the noise profile
	// perturbs. Pixels may be chosen more than once.
	NoisePixels int `json:"noise_pixels" toml:"noise_pixels" yaml:"noise_pixels"`

	// NoiseAmplitude bounds the per-pixel delta to [-NoiseAmplitude, NoiseAmplitude].
	NoiseAmplitude int `json:"noise_amplitude" toml:"noise_amplitude" yaml:"noise_amplitude"`

	// LossyQuality is the JPEG quality of the lossy-recompress round trip.
	LossyQuality int `json:"lossy_quality" toml:"lossy_quality" yaml:"lossy_quality"`

	// DownsampleFactor is the scale used by downsample-upsample, in (0,1).
	DownsampleFactor float64 `json:"downsample_factor" toml:"downsample_factor" yaml:"downsample_factor"`

	// TempDir holds the lossy-recompress intermediate file. Empty means the
	// system temp directory.
	TempDir string `json:"temp_dir" toml:"temp_dir" yaml:"temp_dir"`
}

// DefaultDegradeOptions returns the standard profile settings: 1000 noisy
// pixels at +/-30, quality 30 re-encoding and a half-size resample.
func DefaultDegradeOptions() DegradeOptions {
	return DegradeOptions{
		NoisePixels:      1000,
		NoiseAmplitude:   30,
		LossyQuality:     30,
		DownsampleFactor: 0.5,
	}
}

// Degrade applies a single profile to img and returns the result. The input
// image is never modified.
func Degrade(img image.Image, p Profile, opts DegradeOptions, rng *rand.Rand) (*image.NRGBA, error) {
	switch p {
	case ProfileNone:
		return imaging.Clone(img), nil
	case ProfileNoise:
		return AddNoise(img, opts.NoisePixels, opts.NoiseAmplitude, rng), nil
	case ProfileLossy:
		return certimg.RecompressJPEG(img, opts.LossyQuality, opts.TempDir)
	case ProfileDownsample:
		return certimg.Resample(img, opts.DownsampleFactor)
	default:
		return nil, fmt.Errorf("unknown degradation profile %q", p)
	}
}

// DegradeChain applies profiles in order.
func DegradeChain(img image.Image, profiles []Profile, opts DegradeOptions, rng *rand.Rand) (*image.NRGBA, error) {
	out := imaging.Clone(img)
	for _, p := range profiles {
		next, err := Degrade(out, p, opts, rng)
		if err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", p, err)
		}
		out = next
	}
	return out, nil
}

// AddNoise returns a copy of img with count random pixels shifted by a
// random delta in [-amplitude, amplitude]. The same delta is added to the
// red, green and blue channels of a pixel and each result is clamped to
// [0, 255]. Alpha is left unchanged.
func AddNoise(img image.Image, count, amplitude int, rng *rand.Rand) *image.NRGBA {
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	if w == 0 || h == 0 || amplitude <= 0 {
		return out
	}
	for i := 0; i < count; i++ {
		x, y := rng.IntN(w), rng.IntN(h)
		delta := rng.IntN(2*amplitude+1) - amplitude
		o := out.PixOffset(x, y)
		for ch := 0; ch < 3; ch++ {
			out.Pix[o+ch] = clampByte(int(out.Pix[o+ch]) + delta)
		}
	}
	return out
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
