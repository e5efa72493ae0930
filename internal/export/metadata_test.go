package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMetadata() *Metadata {
	return &Metadata{
		Version:    "1.0.0",
		Timestamp:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ModelType:  "centroid",
		NumClasses: 4,
		ClassNames: []string{"authentic", "forged", "tampered", "screenshot"},
		InputShape: [3]int{224, 224, 3},
		Hyperparameters: Hyperparameters{
			BatchSize:    32,
			LearningRate: 0.0001,
			Epochs:       50,
			Augment:      true,
			Seed:         42,
		},
		Dataset:            DatasetCounts{Train: 28, Validation: 6, Test: 6},
		EpochsTrained:      1,
		TrainAccuracy:      0.9,
		ValidationAccuracy: 0.8,
		TestMetrics:        TestMetrics{Loss: 0.4, Accuracy: 0.75},
	}
}

func TestWriteMetadata(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models", "certificate-detector")
	md := validMetadata()

	path, err := WriteMetadata(dir, md)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, MetadataFile), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "1.0.0", generic["model_version"])
	assert.Equal(t, "2026-03-14T09:26:53Z", generic["trained_date"])
	assert.Contains(t, string(raw), "\n  \"model_type\"")

	back, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, md.ClassNames, back.ClassNames)
	assert.Equal(t, md.InputShape, back.InputShape)
	assert.True(t, md.Timestamp.Equal(back.Timestamp))
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Metadata)
	}{
		{"bad version", func(m *Metadata) { m.Version = "v1" }},
		{"class count mismatch", func(m *Metadata) { m.NumClasses = 3 }},
		{"unknown class", func(m *Metadata) { m.ClassNames[0] = "receipt" }},
		{"zero input dimension", func(m *Metadata) { m.InputShape[0] = 0 }},
		{"zero learning rate", func(m *Metadata) { m.Hyperparameters.LearningRate = 0 }},
		{"accuracy above one", func(m *Metadata) { m.TestMetrics.Accuracy = 1.5 }},
		{"missing model type", func(m *Metadata) { m.ModelType = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := validMetadata()
			tt.mutate(md)
			assert.Error(t, md.Validate())

			dir := t.TempDir()
			_, err := WriteMetadata(dir, md)
			assert.Error(t, err)
			assert.NoFileExists(t, filepath.Join(dir, MetadataFile))
		})
	}
}

func TestSidecarExporter(t *testing.T) {
	dir := t.TempDir()
	var exp Exporter = SidecarExporter{}
	require.NoError(t, exp.Export(context.Background(), dir, nil, validMetadata()))
	assert.FileExists(t, filepath.Join(dir, MetadataFile))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	other := t.TempDir()
	assert.ErrorIs(t, exp.Export(ctx, other, nil, validMetadata()), context.Canceled)
	assert.NoFileExists(t, filepath.Join(other, MetadataFile))
}

func TestReadMetadata_Errors(t *testing.T) {
	_, err := ReadMetadata(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), MetadataFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = ReadMetadata(path)
	assert.ErrorContains(t, err, "parse metadata")
}
