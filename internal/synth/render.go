package synth

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Canvas layout in pixels.
const (
	CanvasWidth  = 800
	CanvasHeight = 600

	// BorderInset is the gap between the canvas edge and the border band,
	// which is BorderWidth pixels thick.
	BorderInset = 20
	BorderWidth = 5

	titleTop    = 60
	contentTop  = 150
	lineSpacing = 40
)

// Title is drawn at the top of every certificate.
const Title = "CERTIFICATE OF COMPLETION"

// Renderer draws certificate content onto a blank canvas.
type Renderer struct {
	width, height int
	fonts         FontSet
}

// NewRenderer returns a Renderer for a canvas of the given size. Non-positive
// dimensions select the standard 800x600 canvas.
func NewRenderer(width, height int, fonts FontSet) *Renderer {
	if width <= 0 || height <= 0 {
		width, height = CanvasWidth, CanvasHeight
	}
	if fonts.Title == nil || fonts.Text == nil {
		fonts = fallbackFonts("no faces supplied")
	}
	return &Renderer{width: width, height: height, fonts: fonts}
}

// Bounds returns the canvas rectangle.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// Render draws a white canvas with a border of the given color, the title,
// and each non-blank line of content centered horizontally, top to bottom.
// Lines that run past the bottom border are still drawn and clipped.
func (r *Renderer) Render(lines []string, border color.Color) *image.NRGBA {
	img := image.NewNRGBA(r.Bounds())
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	r.drawBorder(img, border)
	r.drawCentered(img, r.fonts.Title, Title, titleTop)

	y := contentTop
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r.drawCentered(img, r.fonts.Text, line, y)
		y += lineSpacing
	}
	return img
}

// drawBorder paints a rectangle outline whose outer edge is inset from the
// canvas edge.
func (r *Renderer) drawBorder(img *image.NRGBA, c color.Color) {
	src := image.NewUniform(c)
	x0, y0 := BorderInset, BorderInset
	x1, y1 := r.width-BorderInset, r.height-BorderInset
	if x1-x0 <= 2*BorderWidth || y1-y0 <= 2*BorderWidth {
		return
	}
	bands := []image.Rectangle{
		image.Rect(x0, y0, x1, y0+BorderWidth),
		image.Rect(x0, y1-BorderWidth, x1, y1),
		image.Rect(x0, y0, x0+BorderWidth, y1),
		image.Rect(x1-BorderWidth, y0, x1, y1),
	}
	for _, b := range bands {
		draw.Draw(img, b, src, image.Point{}, draw.Src)
	}
}

// drawCentered draws text with its top edge at top, centered horizontally.
func (r *Renderer) drawCentered(img *image.NRGBA, face font.Face, text string, top int) {
	width := font.MeasureString(face, text).Ceil()
	x := (r.width - width) / 2
	if x < 0 {
		x = 0
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(top) + face.Metrics().Ascent},
	}
	d.DrawString(text)
}
