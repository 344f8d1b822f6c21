package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	t.Setenv("HOME", dir)
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Body_Performance.csv", c.DataPath)
	assert.Equal(t, ":8501", c.ListenAddr)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 0.2, c.Training.TestSize)
	assert.Equal(t, int64(42), c.Training.RandomState)
	assert.Equal(t, 100, c.Training.NEstimators)
	assert.Equal(t, "sqrt", c.Training.MaxFeatures)
	assert.True(t, c.Training.Bootstrap)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BODYPERF_DATA_PATH", "/data/bp.csv")
	t.Setenv("BODYPERF_N_ESTIMATORS", "25")
	t.Setenv("BODYPERF_CRITERION", "entropy")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/data/bp.csv", c.DataPath)
	assert.Equal(t, 25, c.Training.NEstimators)
	assert.Equal(t, "entropy", c.Training.Criterion)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "bodyperf.yaml")

	c := Default()
	c.ListenAddr = "127.0.0.1:9000"
	c.Training.MaxDepth = 12
	require.NoError(t, Save(c, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "max_depth: 12")
	assert.Contains(t, string(raw), "listen_addr: 127.0.0.1:9000")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoad_InvalidTraining(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test_size: 1.5\n"), 0o644))

	_, err := Load(path)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
