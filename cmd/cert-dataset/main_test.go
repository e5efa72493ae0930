package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/cert-dataset-tools/internal/config"
	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
)

func TestRun_VersionAndHelp(t *testing.T) {
	assert.Equal(t, 0, run([]string{"--version"}))
	assert.Equal(t, 0, run([]string{"help"}))
	assert.Equal(t, 2, run(nil))
	assert.Equal(t, 2, run([]string{"bogus"}))
}

func TestRun_UsageErrors(t *testing.T) {
	assert.Equal(t, 2, run([]string{"prepare", "--no-such-flag"}))
	assert.Equal(t, 2, run([]string{"prepare", "extra"}))
	assert.Equal(t, 2, run([]string{"prepare", "--classes", "genuine"}))
	assert.Equal(t, 0, run([]string{"serve", "--help"}))
}

func TestRun_EmptyCorpus(t *testing.T) {
	assert.Equal(t, 1, run([]string{"prepare", "--root", t.TempDir()}))
	assert.Equal(t, 1, run([]string{"audit", "--root", t.TempDir()}))
	assert.Equal(t, 1, run([]string{"train", "--root", t.TempDir()}))
}

func TestRun_GenerateThenPrepare(t *testing.T) {
	root := t.TempDir()
	require.Equal(t, 0, run([]string{"generate", "--root", root, "--count", "3", "--classes", "authentic,tampered", "--log-level", "warn"}))

	for _, name := range []string{"authentic/cert_0003.jpg", "tampered/edited_0001.jpg"} {
		_, err := os.Stat(filepath.Join(root, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(root, "forged"))
	assert.True(t, os.IsNotExist(err), "unrequested class directory was created")

	assert.Equal(t, 0, run([]string{"prepare", "--root", root, "--classes", "authentic,tampered", "--log-level", "error"}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(flag.ErrHelp))
	assert.Equal(t, 1, exitCode(&dataset.EmptyDatasetError{Root: "data", Classes: dataset.DefaultClasses}))
	assert.Equal(t, 1, exitCode(fmt.Errorf("wrapped: %w", &dataset.EmptyDatasetError{Root: "data"})))
	assert.Equal(t, 2, exitCode(&usageError{errors.New("bad flag")}))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"authentic", "forged"}, splitList(" authentic, ,forged,"))
	assert.Nil(t, splitList(""))
}

func parseTrain(t *testing.T, cfgText string, args ...string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cert.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfgText), 0o644))

	var c commonFlags
	var tf trainFlags
	fs := newFlagSet("train", &c)
	tf.register(fs)
	cfg, _, err := parse(fs, &c, append([]string{"--config", path, "--log-level", "error"}, args...), tf.apply)
	require.NoError(t, err)
	return cfg
}

func TestTrainFlags_NoAugment(t *testing.T) {
	disabled := "[train]\naugment = false\n"
	enabled := "[train]\naugment = true\n"

	assert.False(t, parseTrain(t, disabled, "--no-augment=false").Train.Augment)
	assert.False(t, parseTrain(t, disabled).Train.Augment)
	assert.False(t, parseTrain(t, enabled, "--no-augment").Train.Augment)
	assert.True(t, parseTrain(t, enabled, "--no-augment=false").Train.Augment)
	assert.Equal(t, 7, parseTrain(t, enabled, "--epochs", "7").Train.Epochs)
}

func TestRun_PrepareHonorsExtensions(t *testing.T) {
	root := t.TempDir()
	require.Equal(t, 0, run([]string{"generate", "--root", root, "--count", "3", "--classes", "authentic,forged", "--log-level", "warn"}))

	path := filepath.Join(t.TempDir(), "png-only.toml")
	require.NoError(t, os.WriteFile(path, []byte("[dataset]\nextensions = [\".png\"]\n"), 0o644))

	// Generated samples are JPEGs, so a PNG-only corpus is empty.
	assert.Equal(t, 1, run([]string{"prepare", "--config", path, "--root", root, "--classes", "authentic,forged"}))
	assert.Equal(t, 1, run([]string{"train", "--config", path, "--root", root, "--classes", "authentic,forged"}))
}
