package classifier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelEncoderRoundTrip(t *testing.T) {
	enc := FitLabels([]string{"Reparación", "Reciclaje", "Reparación"})

	require.Equal(t, 2, enc.NumClasses())
	// Codes follow sorted label order.
	assert.Equal(t, []string{"Reciclaje", "Reparación"}, enc.Classes)

	code, ok := enc.Encode("Reparación")
	require.True(t, ok)
	label, err := enc.Decode(code)
	require.NoError(t, err)
	assert.Equal(t, "Reparación", label)

	_, ok = enc.Encode("Donación")
	assert.False(t, ok)
}

func TestLabelEncoderDecodeOutOfRange(t *testing.T) {
	enc := FitLabels([]string{"a", "b"})

	_, err := enc.Decode(2)
	assert.Error(t, err)
	_, err = enc.Decode(-1)
	assert.Error(t, err)
}

func TestVectorizerTokenize(t *testing.T) {
	terms := tokenize("Galaxy S21 batería")
	assert.Equal(t, []string{"galaxy", "s21", "batería", "galaxy s21", "s21 batería"}, terms)
}

func TestVectorizerOOVIsZero(t *testing.T) {
	v := NewVectorizer(200)
	v.Fit([]string{"galaxy s21", "iphone 11"})

	vec := v.Transform("zzz unknown terms")
	for _, x := range vec {
		assert.Zero(t, x)
	}
}

func TestVectorizerFeatureCap(t *testing.T) {
	v := NewVectorizer(3)
	v.Fit([]string{"uno dos tres cuatro cinco", "uno dos tres"})

	assert.Equal(t, 3, v.NumFeatures())
	assert.Len(t, v.Vocabulary, 3)
}

func TestVectorizerNormalized(t *testing.T) {
	v := NewVectorizer(200)
	v.Fit([]string{"pantalla rota", "no enciende", "pantalla azul"})

	vec := v.Transform("pantalla rota")
	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestForestSeparableData(t *testing.T) {
	// Two trivially separable classes on one feature.
	X := [][]float64{{0.1}, {0.2}, {0.15}, {0.9}, {0.8}, {0.95}}
	y := []int{0, 0, 0, 1, 1, 1}

	f := FitForest(X, y, 2, 25, 42)

	assert.Equal(t, 0, f.Predict([]float64{0.05}))
	assert.Equal(t, 1, f.Predict([]float64{0.99}))
}

func TestForestDeterministic(t *testing.T) {
	X := [][]float64{{0.1, 0.5}, {0.2, 0.4}, {0.9, 0.1}, {0.8, 0.2}}
	y := []int{0, 0, 1, 1}

	a := FitForest(X, y, 2, 10, 7)
	b := FitForest(X, y, 2, 10, 7)

	for i := range a.Trees {
		assert.Equal(t, a.Trees[i].Nodes, b.Trees[i].Nodes)
	}
}

func TestBundleSaveLoad(t *testing.T) {
	v := NewVectorizer(200)
	v.Fit([]string{"galaxy s21", "modelo x viejo"})
	enc := FitLabels([]string{"Reparación", "Reciclaje"})
	f := FitForest(v.TransformAll([]string{"galaxy s21", "modelo x viejo"}), []int{1, 0}, 2, 5, 42)

	b := &Bundle{Version: 1, TrainedAt: time.Now().UTC(), Vectorizer: v, Encoder: enc, Forest: f}
	path := filepath.Join(t.TempDir(), "model.bundle")
	require.NoError(t, b.Save(path))

	loaded, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, b.Encoder.Classes, loaded.Encoder.Classes)
	assert.Equal(t, b.Vectorizer.Vocabulary, loaded.Vectorizer.Vocabulary)
	assert.Len(t, loaded.Forest.Trees, 5)
}

func TestBundleLoadMissing(t *testing.T) {
	_, err := LoadBundle(filepath.Join(t.TempDir(), "nope.bundle"))
	assert.Error(t, err)
}

func TestBundleLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bundle")
	require.NoError(t, os.WriteFile(path, []byte("not a bundle"), 0o644))

	_, err := LoadBundle(path)
	assert.Error(t, err)
}
