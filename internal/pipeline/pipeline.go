package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ironsheep/cert-dataset-tools/internal/config"
	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
	"github.com/ironsheep/cert-dataset-tools/internal/export"
)

// Options parameterizes a pipeline run.
type Options struct {
	Root    string
	Classes []dataset.Class

	Architecture string
	LearningRate float64
	Epochs       int
	BatchSize    int

	// Augment expands the training subset with AugmentCopies perturbed
	// copies of every sample. Validation and test subsets are never
	// augmented.
	Augment       bool
	AugmentCopies int
	Augmenter     Augmenter

	// Extensions selects the corpus files to load. Nil means
	// dataset.DefaultExtensions.
	Extensions []string

	ImageSize dataset.Size
	Fractions dataset.Fractions
	Seed      uint64

	OutputDir    string
	ModelVersion string

	Logger *slog.Logger
}

// OptionsFromConfig maps the train and dataset sections of cfg to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:          cfg.Root,
		Classes:       cfg.ClassList(),
		Architecture:  cfg.Train.Architecture,
		LearningRate:  cfg.Train.LearningRate,
		Epochs:        cfg.Train.Epochs,
		BatchSize:     cfg.Train.BatchSize,
		Augment:       cfg.Train.Augment,
		AugmentCopies: 1,
		Augmenter:     DefaultAugmenter(),
		Extensions:    cfg.Dataset.Extensions,
		ImageSize:     cfg.Dataset.ImageSize,
		Fractions:     cfg.Dataset.Fractions,
		Seed:          cfg.Seed,
		OutputDir:     cfg.Train.OutputDir,
		ModelVersion:  cfg.Train.ModelVersion,
	}
}

// Result summarizes a completed run.
type Result struct {
	Counts   export.DatasetCounts
	History  History
	Test     Metrics
	Metadata *export.Metadata
	Model    Classifier
}

// Pipeline is one configured training run.
type Pipeline struct {
	opts     Options
	builder  Builder
	exporter export.Exporter
	logger   *slog.Logger
	now      func() time.Time
}

// New validates opts and resolves the architecture in registry. A nil
// exporter selects export.SidecarExporter.
func New(opts Options, registry *Registry, exporter export.Exporter) (*Pipeline, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("pipeline root directory is required")
	}
	if len(opts.Classes) == 0 {
		opts.Classes = append([]dataset.Class(nil), dataset.DefaultClasses...)
	}
	if opts.ImageSize.Width <= 0 || opts.ImageSize.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", opts.ImageSize.Width, opts.ImageSize.Height)
	}
	if opts.Fractions == (dataset.Fractions{}) {
		opts.Fractions = dataset.DefaultFractions
	}
	if err := opts.Fractions.Validate(); err != nil {
		return nil, err
	}
	if opts.LearningRate <= 0 || opts.Epochs <= 0 || opts.BatchSize <= 0 {
		return nil, fmt.Errorf("learning rate, epochs and batch size must be positive")
	}
	if opts.Augment && opts.AugmentCopies <= 0 {
		opts.AugmentCopies = 1
	}
	if opts.Augment && opts.Augmenter == (Augmenter{}) {
		opts.Augmenter = DefaultAugmenter()
	}
	if opts.ModelVersion == "" {
		opts.ModelVersion = "1.0.0"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	if exporter == nil {
		exporter = export.SidecarExporter{}
	}

	builder, err := registry.Lookup(opts.Architecture)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		opts:     opts,
		builder:  builder,
		exporter: exporter,
		logger:   opts.Logger,
		now:      time.Now,
	}, nil
}

// Run loads the corpus, splits it, fits and evaluates a classifier and
// exports its metadata.
//
// Corpus-level errors from dataset.Build and dataset.StratifiedSplit are
// returned unwrapped, before the builder is invoked.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	o := p.opts
	ds, err := dataset.Build(ctx, o.Root, o.Classes, o.Extensions, o.ImageSize, p.logger)
	if err != nil {
		return nil, err
	}

	split, err := dataset.StratifiedSplit(ds.Labels, o.Fractions, o.Seed)
	if err != nil {
		return nil, err
	}
	train := ds.Subset(split.Train)
	validation := ds.Subset(split.Validation)
	test := ds.Subset(split.Test)
	p.logger.Info("dataset split", "train", train.Len(), "validation", validation.Len(), "test", test.Len())

	if o.Augment {
		rng := rand.New(rand.NewPCG(o.Seed, 0x6175676d656e74))
		train = o.Augmenter.Expand(train, o.AugmentCopies, rng)
		p.logger.Info("training subset augmented", "samples", train.Len())
	}

	spec := ModelSpec{
		Architecture: o.Architecture,
		InputShape:   [3]int{o.ImageSize.Height, o.ImageSize.Width, dataset.Channels},
		NumClasses:   ds.NumClasses(),
		LearningRate: o.LearningRate,
		Epochs:       o.Epochs,
		BatchSize:    o.BatchSize,
	}
	clf, err := p.builder(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s classifier: %w", o.Architecture, err)
	}

	history, err := clf.Fit(ctx, train, validation)
	if err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}
	metrics, err := clf.Evaluate(ctx, test)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate classifier: %w", err)
	}
	trainAcc, valAcc := history.Final()
	p.logger.Info("classifier evaluated", "architecture", o.Architecture,
		"train_accuracy", trainAcc, "val_accuracy", valAcc,
		"test_accuracy", metrics.Accuracy, "test_loss", metrics.Loss)

	counts := export.DatasetCounts{
		Train:      len(split.Train),
		Validation: len(split.Validation),
		Test:       len(split.Test),
		Skipped:    len(ds.Skipped),
	}
	md := &export.Metadata{
		Version:    o.ModelVersion,
		Timestamp:  p.now().UTC().Truncate(time.Second),
		ModelType:  o.Architecture,
		NumClasses: ds.NumClasses(),
		ClassNames: dataset.ClassNames(ds.Classes),
		InputShape: spec.InputShape,
		Hyperparameters: export.Hyperparameters{
			BatchSize:    o.BatchSize,
			LearningRate: o.LearningRate,
			Epochs:       o.Epochs,
			Augment:      o.Augment,
			Seed:         o.Seed,
		},
		Dataset:            counts,
		EpochsTrained:      history.Epochs(),
		TrainAccuracy:      trainAcc,
		ValidationAccuracy: valAcc,
		TestMetrics:        export.TestMetrics{Loss: metrics.Loss, Accuracy: metrics.Accuracy},
	}

	if o.OutputDir != "" {
		if err := p.exporter.Export(ctx, o.OutputDir, clf, md); err != nil {
			return nil, fmt.Errorf("failed to export model: %w", err)
		}
		p.logger.Info("model exported", "dir", o.OutputDir)
	}

	return &Result{
		Counts:   counts,
		History:  history,
		Test:     metrics,
		Metadata: md,
		Model:    clf,
	}, nil
}
