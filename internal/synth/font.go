package synth

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Point sizes of the preferred faces.
const (
	titleFontSize = 48
	textFontSize  = 24
)

// FontSet holds the faces used by the renderer and records how they were
// resolved.
type FontSet struct {
	Title font.Face
	Text  font.Face

	// Preferred is true when the TrueType faces loaded.
	Preferred bool

	// Source describes where the faces came from.
	Source string

	// FallbackReason explains why the fallback glyph set is in use. Empty
	// when Preferred is true.
	FallbackReason string
}

// DetectFonts resolves the renderer's faces.
//
// If path is empty the bundled Go Regular typeface is used; otherwise path
// must name a TrueType or OpenType file. When the preferred face cannot be
// read or parsed, both faces fall back to basicfont.Face7x13 and
// FallbackReason says why. DetectFonts never fails.
func DetectFonts(path string) FontSet {
	data := goregular.TTF
	source := "go-regular (bundled)"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fallbackFonts(fmt.Sprintf("failed to read font %s: %v", path, err))
		}
		data = b
		source = path
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return fallbackFonts(fmt.Sprintf("failed to parse font %s: %v", source, err))
	}
	title, err := opentype.NewFace(f, &opentype.FaceOptions{Size: titleFontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fallbackFonts(fmt.Sprintf("failed to build title face: %v", err))
	}
	text, err := opentype.NewFace(f, &opentype.FaceOptions{Size: textFontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fallbackFonts(fmt.Sprintf("failed to build text face: %v", err))
	}
	return FontSet{Title: title, Text: text, Preferred: true, Source: source}
}

func fallbackFonts(reason string) FontSet {
	return FontSet{
		Title:          basicfont.Face7x13,
		Text:           basicfont.Face7x13,
		Source:         "basicfont 7x13",
		FallbackReason: reason,
	}
}
