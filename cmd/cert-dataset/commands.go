package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/ironsheep/cert-dataset-tools/internal/config"
	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
	"github.com/ironsheep/cert-dataset-tools/internal/export"
	"github.com/ironsheep/cert-dataset-tools/internal/pipeline"
	"github.com/ironsheep/cert-dataset-tools/internal/server"
	"github.com/ironsheep/cert-dataset-tools/internal/synth"
)

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"generate": runGenerate,
	"prepare":  runPrepare,
	"train":    runTrain,
	"audit":    runAudit,
	"serve":    runServe,
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	root       string
	logLevel   string
	classes    string
	seed       uint64
}

func newFlagSet(name string, c *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&c.configPath, "config", "", "configuration file (.toml, .yaml, .yml or .json)")
	fs.StringVar(&c.root, "root", "", "corpus root directory")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&c.classes, "classes", "", "comma-separated classes, in label order")
	fs.Uint64Var(&c.seed, "seed", 0, "random seed")
	return fs
}

// parse parses args, loads the configuration and applies the flags that were
// set explicitly. The returned logger writes text records to stderr, which
// keeps stdout free for results and the MCP protocol.
func parse(fs *flag.FlagSet, c *commonFlags, args []string, apply func(name string, cfg *config.Config)) (*config.Config, *slog.Logger, error) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, nil, err
		}
		return nil, nil, &usageError{err}
	}
	if fs.NArg() > 0 {
		return nil, nil, &usageError{fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.Root = c.root
		case "log-level":
			cfg.LogLevel = c.logLevel
		case "classes":
			cfg.Classes = splitList(c.classes)
		case "seed":
			cfg.Seed = c.seed
		default:
			if apply != nil {
				apply(f.Name, cfg)
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, nil, &usageError{err}
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
}

func runGenerate(ctx context.Context, args []string) error {
	var c commonFlags
	var count int
	var fontPath string
	fs := newFlagSet("generate", &c)
	fs.IntVar(&count, "count", 0, "samples per class (default from configuration)")
	fs.StringVar(&fontPath, "font", "", "TrueType font file (default: bundled Go Regular)")
	cfg, logger, err := parse(fs, &c, args, func(name string, cfg *config.Config) {
		switch name {
		case "count":
			cfg.Generate.SamplesPerClass = count
		case "font":
			cfg.Generate.FontPath = fontPath
		}
	})
	if err != nil {
		return err
	}

	specs, err := cfg.ClassSpecs()
	if err != nil {
		return err
	}
	classes := cfg.ClassList()
	bar := newProgressBar(cfg.Generate.SamplesPerClass*len(classes), "Generating")

	gen, err := synth.NewGenerator(synth.Options{
		Root:     cfg.Root,
		Width:    cfg.Generate.Width,
		Height:   cfg.Generate.Height,
		Seed:     cfg.Seed,
		Degrade:  cfg.Generate.Degrade,
		Specs:    specs,
		Logger:   logger,
		OnSample: func(synth.GeneratedSample) { _ = bar.Add(1) },
	}, synth.DetectFonts(cfg.Generate.FontPath))
	if err != nil {
		return err
	}
	report, err := gen.GenerateAll(ctx, classes, cfg.Generate.SamplesPerClass)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	fmt.Printf("Generated %d samples under %s\n", len(report.Samples), report.Root)
	for _, class := range classes {
		fmt.Printf("  %-12s %d\n", class, report.Counts[class])
	}
	return nil
}

func runPrepare(ctx context.Context, args []string) error {
	var c commonFlags
	fs := newFlagSet("prepare", &c)
	cfg, logger, err := parse(fs, &c, args, nil)
	if err != nil {
		return err
	}

	classes := cfg.ClassList()
	ds, err := dataset.Build(ctx, cfg.Root, classes, cfg.Dataset.Extensions, cfg.Dataset.ImageSize, logger)
	if err != nil {
		return err
	}
	split, err := dataset.StratifiedSplit(ds.Labels, cfg.Dataset.Fractions, cfg.Seed)
	if err != nil {
		return err
	}

	printSplit(os.Stdout, ds, split)
	if len(ds.Skipped) > 0 {
		fmt.Printf("Skipped %d unreadable files\n", len(ds.Skipped))
	}
	return nil
}

// printSplit writes a per-subset, per-class count table.
func printSplit(w io.Writer, ds *dataset.Dataset, split dataset.Split) {
	fmt.Fprintf(w, "%-12s %6s", "subset", "total")
	for _, class := range ds.Classes {
		fmt.Fprintf(w, " %11s", class)
	}
	fmt.Fprintln(w)
	for _, row := range []struct {
		name string
		idx  []int
	}{{"train", split.Train}, {"validation", split.Validation}, {"test", split.Test}} {
		sub := ds.Subset(row.idx)
		fmt.Fprintf(w, "%-12s %6d", row.name, sub.Len())
		for _, n := range sub.ClassCounts() {
			fmt.Fprintf(w, " %11d", n)
		}
		fmt.Fprintln(w)
	}
}

// trainFlags are the train command's overrides of the [train] section.
type trainFlags struct {
	architecture string
	outputDir    string
	epochs       int
	noAugment    bool
}

func (f *trainFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.architecture, "architecture", "", "model architecture (default from configuration)")
	fs.StringVar(&f.outputDir, "output", "", "directory receiving metadata.json")
	fs.IntVar(&f.epochs, "epochs", 0, "training epochs")
	fs.BoolVar(&f.noAugment, "no-augment", false, "disable training-set augmentation")
}

// apply copies the explicitly set flag name into cfg. --no-augment=false
// leaves the configured augmentation setting alone.
func (f *trainFlags) apply(name string, cfg *config.Config) {
	switch name {
	case "architecture":
		cfg.Train.Architecture = f.architecture
	case "output":
		cfg.Train.OutputDir = f.outputDir
	case "epochs":
		cfg.Train.Epochs = f.epochs
	case "no-augment":
		if f.noAugment {
			cfg.Train.Augment = false
		}
	}
}

func runTrain(ctx context.Context, args []string) error {
	var c commonFlags
	var tf trainFlags
	fs := newFlagSet("train", &c)
	tf.register(fs)
	cfg, logger, err := parse(fs, &c, args, tf.apply)
	if err != nil {
		return err
	}

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Logger = logger
	p, err := pipeline.New(opts, nil, nil)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	trainAcc, valAcc := res.History.Final()
	fmt.Printf("Architecture:        %s\n", res.Metadata.ModelType)
	fmt.Printf("Samples:             train %d, validation %d, test %d (skipped %d)\n",
		res.Counts.Train, res.Counts.Validation, res.Counts.Test, res.Counts.Skipped)
	fmt.Printf("Train accuracy:      %.4f\n", trainAcc)
	fmt.Printf("Validation accuracy: %.4f\n", valAcc)
	fmt.Printf("Test accuracy:       %.4f (loss %.4f)\n", res.Test.Accuracy, res.Test.Loss)
	if cfg.Train.OutputDir != "" {
		fmt.Printf("Metadata:            %s\n", filepath.Join(cfg.Train.OutputDir, export.MetadataFile))
	}
	return nil
}

func runAudit(ctx context.Context, args []string) error {
	var c commonFlags
	var limit int
	var tolerance float64
	var language string
	fs := newFlagSet("audit", &c)
	fs.IntVar(&limit, "limit", 0, "audit at most this many samples per class (0 = all)")
	fs.Float64Var(&tolerance, "tolerance", 0, "largest CIEDE2000 border distance accepted")
	fs.StringVar(&language, "lang", "", "Tesseract language (default from configuration)")
	cfg, logger, err := parse(fs, &c, args, nil)
	if err != nil {
		return err
	}

	classes := cfg.ClassList()
	files, err := dataset.ScanClasses(cfg.Root, classes, []string{".jpg"}, logger)
	if err != nil {
		return err
	}
	var paths []string
	for _, class := range classes {
		list := files[class]
		if limit > 0 && len(list) > limit {
			list = list[:limit]
		}
		paths = append(paths, list...)
	}

	srv := server.New(cfg, logger)
	bar := newProgressBar(len(paths), "Auditing")
	var failed, ocrSkipped int
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		report, err := srv.Audit(path, "", tolerance, language)
		_ = bar.Add(1)
		if err != nil {
			failed++
			logger.Warn("audit failed", "path", path, "error", err)
			continue
		}
		if report.OCR == nil {
			ocrSkipped++
		}
		if !report.Passed() {
			failed++
			logger.Warn("sample did not pass audit", "path", path,
				"border_distance", report.Border.Distance, "ocr", report.OCR)
		}
	}
	_ = bar.Finish()

	fmt.Printf("Audited %d samples: %d passed, %d failed\n", len(paths), len(paths)-failed, failed)
	if ocrSkipped > 0 {
		fmt.Printf("OCR read-back skipped for %d samples (Tesseract unavailable)\n", ocrSkipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d samples failed the audit", failed, len(paths))
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	var c commonFlags
	fs := newFlagSet("serve", &c)
	cfg, logger, err := parse(fs, &c, args, nil)
	if err != nil {
		return err
	}
	logger.Debug("starting MCP server", "version", Version, "built", BuildTime, "commit", GitCommit, "root", cfg.Root)
	return server.New(cfg, logger).Run(ctx)
}
