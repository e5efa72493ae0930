// Package config loads and validates the settings shared by the generator,
// the dataset loader and the training pipeline.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
	"github.com/ironsheep/cert-dataset-tools/internal/synth"
)

// Config holds the complete tool configuration. Components receive the
// sections they need explicitly; nothing reads configuration globally.
type Config struct {
	// Root is the corpus directory containing one subdirectory per class.
	Root string `toml:"root" json:"root" yaml:"root"`

	// Classes restricts the label set. Empty means all four classes.
	Classes []string `toml:"classes" json:"classes" yaml:"classes"`

	// Seed drives content selection, noise and the split.
	Seed uint64 `toml:"seed" json:"seed" yaml:"seed"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level" json:"log_level" yaml:"log_level"`

	Generate GenerateConfig `toml:"generate" json:"generate" yaml:"generate"`
	Dataset  DatasetConfig  `toml:"dataset" json:"dataset" yaml:"dataset"`
	Train    TrainConfig    `toml:"train" json:"train" yaml:"train"`
	OCR      OCRConfig      `toml:"ocr" json:"ocr" yaml:"ocr"`
}

// GenerateConfig configures the synthetic sample generator.
type GenerateConfig struct {
	SamplesPerClass int `toml:"samples_per_class" json:"samples_per_class" yaml:"samples_per_class"`
	Width           int `toml:"width" json:"width" yaml:"width"`
	Height          int `toml:"height" json:"height" yaml:"height"`

	// FontPath names a TrueType font. Empty selects the bundled Go font.
	FontPath string `toml:"font_path" json:"font_path" yaml:"font_path"`

	Degrade synth.DegradeOptions `toml:"degrade" json:"degrade" yaml:"degrade"`

	// ClassSpecs overrides entries of the default class table by class name.
	ClassSpecs map[string]synth.ClassSpec `toml:"class_specs" json:"class_specs" yaml:"class_specs"`
}

// DatasetConfig configures loading and splitting.
type DatasetConfig struct {
	ImageSize  dataset.Size      `toml:"image_size" json:"image_size" yaml:"image_size"`
	Fractions  dataset.Fractions `toml:"fractions" json:"fractions" yaml:"fractions"`
	Extensions []string          `toml:"extensions" json:"extensions" yaml:"extensions"`
}

// TrainConfig selects the model-building strategy and its hyperparameters.
type TrainConfig struct {
	Architecture string  `toml:"architecture" json:"architecture" yaml:"architecture"`
	LearningRate float64 `toml:"learning_rate" json:"learning_rate" yaml:"learning_rate"`
	Augment      bool    `toml:"augment" json:"augment" yaml:"augment"`
	Epochs       int     `toml:"epochs" json:"epochs" yaml:"epochs"`
	BatchSize    int     `toml:"batch_size" json:"batch_size" yaml:"batch_size"`

	// OutputDir receives metadata.json and the exported model bundle.
	OutputDir string `toml:"output_dir" json:"output_dir" yaml:"output_dir"`

	// ModelVersion is recorded in the exported metadata.
	ModelVersion string `toml:"model_version" json:"model_version" yaml:"model_version"`
}

// OCRConfig configures the read-back audit.
type OCRConfig struct {
	Language string `toml:"language" json:"language" yaml:"language"`
}

// Default returns a Config populated with the standard settings.
func Default() *Config {
	return &Config{
		Root:     "training_data",
		Seed:     42,
		LogLevel: "info",
		Generate: GenerateConfig{
			SamplesPerClass: 50,
			Width:           synth.CanvasWidth,
			Height:          synth.CanvasHeight,
			Degrade:         synth.DefaultDegradeOptions(),
		},
		Dataset: DatasetConfig{
			ImageSize:  dataset.Size{Width: 224, Height: 224},
			Fractions:  dataset.DefaultFractions,
			Extensions: append([]string(nil), dataset.DefaultExtensions...),
		},
		Train: TrainConfig{
			Architecture: "centroid",
			LearningRate: 0.0001,
			Augment:      true,
			Epochs:       50,
			BatchSize:    32,
			OutputDir:    filepath.Join("models", "certificate-detector"),
			ModelVersion: "1.0.0",
		},
		OCR: OCRConfig{Language: "eng"},
	}
}

// Load reads the configuration file at path on top of the defaults, applies
// CERTDS_* environment overrides and validates the result.
//
// The format is chosen by extension: .toml, .json, .yaml or .yml. An empty
// path skips the file and uses defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

// ApplyEnvOverrides overlays CERTDS_* environment variables.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("CERTDS_ROOT"); v != "" {
		c.Root = v
	}
	if v := os.Getenv("CERTDS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CERTDS_FONT_PATH"); v != "" {
		c.Generate.FontPath = v
	}
	if v := os.Getenv("CERTDS_ARCHITECTURE"); v != "" {
		c.Train.Architecture = v
	}
	if v := os.Getenv("CERTDS_OUTPUT_DIR"); v != "" {
		c.Train.OutputDir = v
	}
	if v := os.Getenv("CERTDS_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CERTDS_SEED %q: %w", v, err)
		}
		c.Seed = seed
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Root == "" {
		errs = append(errs, errors.New("root must not be empty"))
	}
	if _, err := dataset.ParseClasses(c.Classes); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Generate.SamplesPerClass < 0 {
		errs = append(errs, fmt.Errorf("generate.samples_per_class must not be negative"))
	}
	if c.Generate.Width <= 0 || c.Generate.Height <= 0 {
		errs = append(errs, fmt.Errorf("generate canvas %dx%d must be positive", c.Generate.Width, c.Generate.Height))
	}
	if _, err := c.ClassSpecs(); err != nil {
		errs = append(errs, err)
	}
	if s := c.Dataset.ImageSize; s.Width <= 0 || s.Height <= 0 {
		errs = append(errs, fmt.Errorf("dataset.image_size %dx%d must be positive", s.Width, s.Height))
	}
	if err := c.Dataset.Fractions.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Train.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("train.learning_rate must be positive"))
	}
	if c.Train.Epochs <= 0 || c.Train.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("train.epochs and train.batch_size must be positive"))
	}
	if c.Train.Architecture == "" {
		errs = append(errs, errors.New("train.architecture must not be empty"))
	}
	return errors.Join(errs...)
}

// ClassList returns the configured classes in label-index order.
func (c *Config) ClassList() []dataset.Class {
	classes, err := dataset.ParseClasses(c.Classes)
	if err != nil {
		return append([]dataset.Class(nil), dataset.DefaultClasses...)
	}
	return classes
}

// ClassSpecs merges the configured overrides into the default class table.
func (c *Config) ClassSpecs() (map[dataset.Class]synth.ClassSpec, error) {
	specs := synth.DefaultClassSpecs()
	for name, spec := range c.Generate.ClassSpecs {
		class, err := dataset.ParseClass(name)
		if err != nil {
			return nil, fmt.Errorf("generate.class_specs: %w", err)
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("generate.class_specs.%s: %w", name, err)
		}
		specs[class] = spec
	}
	return specs, nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
