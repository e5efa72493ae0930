package imaging

import (
	"fmt"
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultBorderTolerance is the CIEDE2000 distance, on go-colorful's 0-1
// scale, within which a sampled border still matches its expected color.
const DefaultBorderTolerance = 0.12

// RGBColor is an 8-bit RGB triple.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSLColor is hue in degrees and saturation and lightness in percent.
type HSLColor struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// ColorResult is one color in hex, RGB and HSL form.
type ColorResult struct {
	Hex string   `json:"hex"`
	RGB RGBColor `json:"rgb"`
	HSL HSLColor `json:"hsl"`

	c colorful.Color
}

func newColorResult(c colorful.Color) ColorResult {
	c = c.Clamped()
	r, g, b := c.RGB255()
	h, s, l := c.Hsl()
	return ColorResult{
		Hex: c.Hex(),
		RGB: RGBColor{R: r, G: g, B: b},
		HSL: HSLColor{H: int(math.Round(h)), S: int(math.Round(s * 100)), L: int(math.Round(l * 100))},
		c:   c,
	}
}

// SampleColor returns the color of the pixel at (x, y).
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	if !image.Pt(x, y).In(img.Bounds()) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}
	c, _ := colorful.MakeColor(img.At(x, y))
	res := newColorResult(c)
	return &res, nil
}

// MeanColor averages the pixels of region in linear RGB. The region is
// clipped to the image; an empty intersection is an error.
func MeanColor(img image.Image, region image.Rectangle) (*ColorResult, error) {
	c, err := meanColor(img, region)
	if err != nil {
		return nil, err
	}
	res := newColorResult(c)
	return &res, nil
}

func meanColor(img image.Image, region image.Rectangle) (colorful.Color, error) {
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return colorful.Color{}, fmt.Errorf("region outside image bounds")
	}
	var sr, sg, sb float64
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			c, _ := colorful.MakeColor(img.At(x, y))
			r, g, b := c.LinearRgb()
			sr, sg, sb = sr+r, sg+g, sb+b
		}
	}
	n := float64(region.Dx() * region.Dy())
	return colorful.LinearRgb(sr/n, sg/n, sb/n), nil
}

// BorderCheck compares the drawn border of a certificate with an expected
// color.
type BorderCheck struct {
	Expected string      `json:"expected"`
	Measured ColorResult `json:"measured"`
	Distance float64     `json:"distance"`
	Match    bool        `json:"match"`

	// Bands holds the mean of each sampled band: top, bottom, left, right.
	Bands []ColorResult `json:"bands"`
}

// CheckBorder measures the middle third of each of the four border bands
// (inset pixels from the edge, width pixels thick), averages them and
// compares the mean with expectedHex using CIEDE2000.
func CheckBorder(img image.Image, inset, width int, expectedHex string, tolerance float64) (*BorderCheck, error) {
	want, err := colorful.Hex(expectedHex)
	if err != nil {
		return nil, fmt.Errorf("invalid expected color %q: %w", expectedHex, err)
	}
	b := img.Bounds()
	if inset < 0 || width <= 0 || b.Dx() < 2*(inset+width)+3 || b.Dy() < 2*(inset+width)+3 {
		return nil, fmt.Errorf("border inset %d width %d does not fit a %dx%d image", inset, width, b.Dx(), b.Dy())
	}

	x0, x1 := b.Min.X+inset, b.Max.X-inset
	y0, y1 := b.Min.Y+inset, b.Max.Y-inset
	thirdW, thirdH := (x1-x0)/3, (y1-y0)/3
	bands := []image.Rectangle{
		image.Rect(x0+thirdW, y0, x1-thirdW, y0+width),
		image.Rect(x0+thirdW, y1-width, x1-thirdW, y1),
		image.Rect(x0, y0+thirdH, x0+width, y1-thirdH),
		image.Rect(x1-width, y0+thirdH, x1, y1-thirdH),
	}

	check := &BorderCheck{Expected: want.Hex()}
	var sr, sg, sb float64
	for _, band := range bands {
		m, err := MeanColor(img, band)
		if err != nil {
			return nil, err
		}
		check.Bands = append(check.Bands, *m)
		r, g, bl := m.c.LinearRgb()
		sr, sg, sb = sr+r, sg+g, sb+bl
	}
	n := float64(len(bands))
	got := colorful.LinearRgb(sr/n, sg/n, sb/n)

	check.Measured = newColorResult(got)
	check.Distance = got.DistanceCIEDE2000(want)
	check.Match = check.Distance <= tolerance
	return check, nil
}
