// Package synth fabricates labeled certificate images for bootstrapping a
// classifier before real data is available.
//
// Each sample is rendered onto a fixed 800x600 canvas (border, title and
// centered content lines), passed through the degradation profiles assigned
// to its class, and written as a JPEG into <root>/<class>/ with a
// class-specific quality.
//
// # Degradation Profiles
//
// Profiles simulate capture and forgery artifacts:
//   - none: the clean render
//   - noise: random pixels perturbed by a bounded delta, clamped to [0,255]
//   - lossy-recompress: a low-quality JPEG round trip through a temp file
//   - downsample-upsample: shrink then restore, like a low-resolution capture
//
// The mapping from class to profiles is fixed per Generator, so every sample
// of a class receives the same treatment.
//
// # Fonts
//
// DetectFonts resolves the typeface once, at startup. When the preferred
// TrueType face cannot be loaded the renderer uses basicfont.Face7x13 and the
// returned FontSet records why; rendering never fails because of fonts.
//
// # Numbering
//
// Files are named <prefix>_NNNN.jpg. Generation continues after the highest
// sequence number already present in a class directory, so re-running the
// generator adds samples without overwriting earlier ones.
package synth
