package predictor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donapp/triage/internal/training"
)

func trainedEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	bundle, err := training.Run(training.Options{
		DatasetPath: filepath.Join(dir, "dataset.csv"),
		BundlePath:  filepath.Join(dir, "model.bundle"),
		Trees:       50,
		Seed:        42,
	})
	require.NoError(t, err)
	return New(bundle)
}

func TestPredictUnavailableWithoutArtifacts(t *testing.T) {
	e := New(nil)

	_, err := e.Predict("Galaxy S21")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, e.Ready())
	assert.Nil(t, e.Classes())
}

func TestLoadMissingBundleIsDegraded(t *testing.T) {
	e := Load(filepath.Join(t.TempDir(), "missing.bundle"))

	assert.False(t, e.Ready())
	_, err := e.Predict("Galaxy S21")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPredictEmptyText(t *testing.T) {
	e := trainedEngine(t)

	_, err := e.Predict("   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPredictKnownDevice(t *testing.T) {
	e := trainedEngine(t)

	label, err := e.Predict("Galaxy S21")
	require.NoError(t, err)
	assert.Equal(t, "Reparación", label)
}

func TestPredictLabelAlwaysInTrainingSet(t *testing.T) {
	e := trainedEngine(t)
	classes := e.Classes()
	require.NotEmpty(t, classes)

	inputs := []string{
		"Galaxy S21",
		"iPhone 11 pantalla rota",
		"Modelo X obsoleto",
		"dispositivo completamente desconocido zzz",
	}
	for _, text := range inputs {
		label, err := e.Predict(text)
		require.NoError(t, err, "input %q", text)
		assert.Contains(t, classes, label)
	}
}

func TestPredictRoundTripBundle(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "model.bundle")
	_, err := training.Run(training.Options{
		DatasetPath: filepath.Join(dir, "dataset.csv"),
		BundlePath:  bundlePath,
		Trees:       50,
		Seed:        42,
	})
	require.NoError(t, err)

	e := Load(bundlePath)
	require.True(t, e.Ready())

	label, err := e.Predict("Modelo X muy viejo obsoleto")
	require.NoError(t, err)
	assert.Contains(t, e.Classes(), label)
}
