package dataset

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
)

// Size is a target image size in pixels.
type Size struct {
	Width  int `json:"width" toml:"width" yaml:"width"`
	Height int `json:"height" toml:"height" yaml:"height"`
}

// Channels is the fixed channel count of every loaded tensor.
const Channels = 3

// Tensor is a normalized image with values in [0, 1], stored in row-major
// HWC order.
type Tensor struct {
	Height int
	Width  int
	Data   []float32
}

// Shape returns the tensor dimensions as [height, width, channels].
func (t *Tensor) Shape() [3]int {
	return [3]int{t.Height, t.Width, Channels}
}

// At returns the value of channel ch at pixel (x, y).
func (t *Tensor) At(x, y, ch int) float32 {
	return t.Data[(y*t.Width+x)*Channels+ch]
}

// LoadImage decodes an image file and converts it to a tensor of exactly the
// target size.
//
// The image is converted to 3-channel color (alpha is dropped), resized to
// size with a Lanczos filter regardless of aspect ratio, and each channel is
// divided by 255.
//
// # Errors
//
//   - Returns error if size is not positive
//   - Returns error if the file cannot be opened or decoded
func LoadImage(path string, size Size) (*Tensor, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", size.Width, size.Height)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return ToTensor(img, size), nil
}

// ToTensor resizes img to size and normalizes it into a new Tensor.
func ToTensor(img image.Image, size Size) *Tensor {
	b := img.Bounds()
	var resized *image.NRGBA
	if b.Dx() == size.Width && b.Dy() == size.Height {
		resized = imaging.Clone(img)
	} else {
		resized = imaging.Resize(img, size.Width, size.Height, imaging.Lanczos)
	}

	t := &Tensor{
		Height: size.Height,
		Width:  size.Width,
		Data:   make([]float32, size.Height*size.Width*Channels),
	}
	for y := 0; y < size.Height; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+size.Width*4]
		for x := 0; x < size.Width; x++ {
			i := (y*size.Width + x) * Channels
			t.Data[i] = float32(row[x*4]) / 255
			t.Data[i+1] = float32(row[x*4+1]) / 255
			t.Data[i+2] = float32(row[x*4+2]) / 255
		}
	}
	return t
}

// ToImage converts the tensor back to an 8-bit image. Values are clamped to
// [0, 1] before scaling.
func (t *Tensor) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			i := (y*t.Width + x) * Channels
			o := img.PixOffset(x, y)
			img.Pix[o] = unit8(t.Data[i])
			img.Pix[o+1] = unit8(t.Data[i+1])
			img.Pix[o+2] = unit8(t.Data[i+2])
			img.Pix[o+3] = 255
		}
	}
	return img
}

func unit8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math32.Round(v * 255))
}
