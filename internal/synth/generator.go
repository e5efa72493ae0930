package synth

import (
	"context"
	"fmt"
	"hash/fnv"
	"image/color"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
	certimg "github.com/ironsheep/cert-dataset-tools/internal/imaging"
)

// ClassSpec fixes how samples of one class are produced.
type ClassSpec struct {
	// Prefix starts every file name, e.g. "cert" for cert_0001.jpg.
	Prefix string `json:"prefix" toml:"prefix" yaml:"prefix"`

	// Profiles are applied in order after rendering.
	Profiles []Profile `json:"profiles" toml:"profiles" yaml:"profiles"`

	// Quality is the JPEG quality of the written file.
	Quality int `json:"quality" toml:"quality" yaml:"quality"`

	// Border is the border color as "#RRGGBB".
	Border string `json:"border" toml:"border" yaml:"border"`
}

// DefaultClassSpecs returns the standard class table.
func DefaultClassSpecs() map[dataset.Class]ClassSpec {
	return map[dataset.Class]ClassSpec{
		dataset.Authentic:  {Prefix: "cert", Profiles: []Profile{ProfileNone}, Quality: 95, Border: "#00008B"},
		dataset.Forged:     {Prefix: "fake", Profiles: []Profile{ProfileNoise}, Quality: 85, Border: "#00008B"},
		dataset.Tampered:   {Prefix: "edited", Profiles: []Profile{ProfileLossy}, Quality: 70, Border: "#323296"},
		dataset.Screenshot: {Prefix: "screen", Profiles: []Profile{ProfileNoise, ProfileDownsample}, Quality: 60, Border: "#00008B"},
	}
}

// Validate reports the first invalid field.
func (s ClassSpec) Validate() error {
	if s.Prefix == "" || strings.ContainsAny(s.Prefix, `/\_`) {
		return fmt.Errorf("invalid file prefix %q", s.Prefix)
	}
	if s.Quality < 1 || s.Quality > 100 {
		return fmt.Errorf("quality %d outside 1-100", s.Quality)
	}
	if len(s.Profiles) == 0 {
		return fmt.Errorf("no degradation profiles")
	}
	for _, p := range s.Profiles {
		if _, err := ParseProfile(string(p)); err != nil {
			return err
		}
	}
	if _, err := colorful.Hex(s.Border); err != nil {
		return fmt.Errorf("invalid border color %q: %w", s.Border, err)
	}
	return nil
}

// GeneratedSample describes one written file.
type GeneratedSample struct {
	Path          string        `json:"path"`
	Class         dataset.Class `json:"class"`
	Sequence      int           `json:"sequence"`
	CertificateID string        `json:"certificate_id"`
	Profiles      []Profile     `json:"profiles"`
	Quality       int           `json:"quality"`
}

// Report summarizes a generation run.
type Report struct {
	Root    string                `json:"root"`
	Samples []GeneratedSample     `json:"samples"`
	Counts  map[dataset.Class]int `json:"counts"`
}

// Options configures a Generator.
type Options struct {
	// Root is the corpus directory; class directories are created below it.
	Root string

	// Width and Height set the canvas size. Zero selects 800x600.
	Width, Height int

	// Seed makes content selection and noise reproducible.
	Seed uint64

	Degrade DegradeOptions

	// Specs maps each class to its production settings. Nil selects
	// DefaultClassSpecs.
	Specs map[dataset.Class]ClassSpec

	Logger *slog.Logger

	// OnSample, if set, is called after each file is written.
	OnSample func(GeneratedSample)
}

// Generator writes synthetic certificate samples.
//
// A Generator is not safe for concurrent use.
type Generator struct {
	opts     Options
	renderer *Renderer
	borders  map[dataset.Class]color.Color
	logger   *slog.Logger
}

// NewGenerator validates opts and returns a Generator drawing with fonts.
func NewGenerator(opts Options, fonts FontSet) (*Generator, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("generator root directory is required")
	}
	if opts.Specs == nil {
		opts.Specs = DefaultClassSpecs()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Degrade == (DegradeOptions{}) {
		opts.Degrade = DefaultDegradeOptions()
	}

	borders := make(map[dataset.Class]color.Color, len(opts.Specs))
	for class, spec := range opts.Specs {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("class %s: %w", class, err)
		}
		c, _ := colorful.Hex(spec.Border)
		r, g, b := c.RGB255()
		borders[class] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}

	if !fonts.Preferred {
		opts.Logger.Warn("using fallback font", "source", fonts.Source, "reason", fonts.FallbackReason)
	}

	return &Generator{
		opts:     opts,
		renderer: NewRenderer(opts.Width, opts.Height, fonts),
		borders:  borders,
		logger:   opts.Logger,
	}, nil
}

// EnsureClassDirectories creates root/<class> for every class. Existing
// directories are left alone, so calling it repeatedly is safe.
func EnsureClassDirectories(root string, classes []dataset.Class) error {
	for _, c := range classes {
		dir := filepath.Join(root, string(c))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create class directory %s: %w", dir, err)
		}
	}
	return nil
}

// GenerateClassSamples writes count new samples of class.
//
// Each sample's text comes from ContentFor, is rendered, passed through the
// class profiles in order and saved with the class quality. Numbering starts
// after the highest sequence already present in the class directory. The
// first write or degradation failure aborts the run and is returned; files
// written before the failure remain.
func (g *Generator) GenerateClassSamples(ctx context.Context, class dataset.Class, count int) ([]GeneratedSample, error) {
	spec, ok := g.opts.Specs[class]
	if !ok {
		return nil, fmt.Errorf("no generation spec for class %q", class)
	}
	if count < 0 {
		return nil, fmt.Errorf("sample count must not be negative, got %d", count)
	}

	dir := filepath.Join(g.opts.Root, string(class))
	if err := EnsureClassDirectories(g.opts.Root, []dataset.Class{class}); err != nil {
		return nil, err
	}
	start, err := nextSequence(dir, spec.Prefix)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(g.opts.Seed, classStream(class)+uint64(start)))
	samples := make([]GeneratedSample, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		seq := start + i
		content := ContentFor(class, seq, rng)

		img := g.renderer.Render(content.Lines, g.borders[class])
		degraded, err := DegradeChain(img, spec.Profiles, g.opts.Degrade, rng)
		if err != nil {
			return samples, fmt.Errorf("failed to degrade %s sample %d: %w", class, seq, err)
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%04d.jpg", spec.Prefix, seq))
		if err := certimg.SaveJPEG(path, degraded, spec.Quality); err != nil {
			return samples, err
		}

		sample := GeneratedSample{
			Path:          path,
			Class:         class,
			Sequence:      seq,
			CertificateID: content.CertificateID,
			Profiles:      append([]Profile(nil), spec.Profiles...),
			Quality:       spec.Quality,
		}
		samples = append(samples, sample)
		if g.opts.OnSample != nil {
			g.opts.OnSample(sample)
		}
	}

	g.logger.Info("generated class samples", "class", class, "count", count, "first", start, "dir", dir)
	return samples, nil
}

// GenerateAll creates the class directories and writes count samples of
// each class, in order.
func (g *Generator) GenerateAll(ctx context.Context, classes []dataset.Class, count int) (*Report, error) {
	if err := EnsureClassDirectories(g.opts.Root, classes); err != nil {
		return nil, err
	}
	report := &Report{Root: g.opts.Root, Counts: make(map[dataset.Class]int, len(classes))}
	for _, c := range classes {
		samples, err := g.GenerateClassSamples(ctx, c, count)
		report.Samples = append(report.Samples, samples...)
		report.Counts[c] += len(samples)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// nextSequence returns one past the highest <prefix>_NNNN.jpg number in dir.
func nextSequence(dir, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	highest := 0
	for _, e := range entries {
		p, n, err := ParseSampleName(e.Name())
		if err != nil || p != prefix {
			continue
		}
		highest = max(highest, n)
	}
	return highest + 1, nil
}

// classStream derives a per-class PCG stream so classes draw independent
// random sequences from the same seed.
func classStream(c dataset.Class) uint64 {
	h := fnv.New64a()
	h.Write([]byte(c))
	return h.Sum64()
}
