// Package export writes the JSON metadata sidecar that accompanies a trained
// classifier and defines the hook for external model bundle writers.
//
// The metadata is validated against an embedded JSON Schema before it is
// written, so a malformed record never reaches disk.
package export

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MetadataFile is the sidecar file name inside the output directory.
const MetadataFile = "metadata.json"

const schemaURL = "https://github.com/ironsheep/cert-dataset-tools/schema/metadata.schema.json"

//go:embed metadata.schema.json
var schemaJSON []byte

// Hyperparameters records the settings a model was trained with.
type Hyperparameters struct {
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	Augment      bool    `json:"augment"`
	Seed         uint64  `json:"seed"`
}

// DatasetCounts records how many samples went into each subset.
type DatasetCounts struct {
	Train      int `json:"train"`
	Validation int `json:"validation"`
	Test       int `json:"test"`
	Skipped    int `json:"skipped"`
}

// TestMetrics holds the held-out evaluation results.
type TestMetrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// Metadata is the sidecar record describing a trained classifier.
type Metadata struct {
	Version            string          `json:"model_version"`
	Timestamp          time.Time       `json:"trained_date"`
	ModelType          string          `json:"model_type"`
	Framework          string          `json:"framework,omitempty"`
	NumClasses         int             `json:"num_classes"`
	ClassNames         []string        `json:"class_names"`
	InputShape         [3]int          `json:"input_shape"`
	Hyperparameters    Hyperparameters `json:"hyperparameters"`
	Dataset            DatasetCounts   `json:"dataset"`
	EpochsTrained      int             `json:"epochs_trained"`
	TrainAccuracy      float64         `json:"final_train_accuracy"`
	ValidationAccuracy float64         `json:"final_val_accuracy"`
	TestMetrics        TestMetrics     `json:"test_results"`
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func metadataSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to add metadata schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile metadata schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Validate checks md against the metadata schema.
func (md *Metadata) Validate() error {
	if md.NumClasses != len(md.ClassNames) {
		return fmt.Errorf("num_classes %d does not match %d class names", md.NumClasses, len(md.ClassNames))
	}
	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}

	schema, err := metadataSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("metadata does not match schema: %w", err)
	}
	return nil
}

// WriteMetadata validates md and writes it as indented JSON to
// dir/metadata.json, creating dir if needed. It returns the written path.
func WriteMetadata(dir string, md *Metadata) (string, error) {
	if err := md.Validate(); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, MetadataFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	return path, nil
}

// ReadMetadata loads and validates a metadata sidecar.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := md.Validate(); err != nil {
		return nil, err
	}
	return &md, nil
}

// Exporter writes a trained model and its metadata to an output directory.
// The model value is whatever the classifier implementation produced; its
// serialization format belongs to the exporter.
type Exporter interface {
	Export(ctx context.Context, dir string, model any, md *Metadata) error
}

// SidecarExporter writes only metadata.json. It is the default when no
// external bundle writer is configured.
type SidecarExporter struct{}

// Export implements Exporter.
func (SidecarExporter) Export(ctx context.Context, dir string, _ any, md *Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := WriteMetadata(dir, md)
	return err
}
