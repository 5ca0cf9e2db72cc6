// Package predictor is the online inference engine: a thin, read-only
// wrapper around the loaded artifact bundle.
package predictor

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/donapp/triage/internal/classifier"
)

// ErrUnavailable means the artifact bundle is not loaded. Callers surface
// it as a retryable-later condition, distinct from a prediction failure.
var ErrUnavailable = errors.New("model artifacts not loaded")

// ErrInvalidInput means the input text was empty after trimming. It is
// checked before the model is touched.
var ErrInvalidInput = errors.New("empty input text")

// Engine serves predictions from one loaded bundle. The bundle is
// read-only for the process lifetime; there is no hot reload.
type Engine struct {
	bundle *classifier.Bundle
}

// New wraps an already-loaded bundle. A nil bundle yields a degraded
// engine whose Predict always returns ErrUnavailable.
func New(bundle *classifier.Bundle) *Engine {
	return &Engine{bundle: bundle}
}

// Load attempts to load the bundle at path. A missing or corrupt bundle is
// not fatal: the engine starts degraded and every Predict reports
// ErrUnavailable until the service is restarted with trained artifacts.
func Load(path string) *Engine {
	bundle, err := classifier.LoadBundle(path)
	if err != nil {
		zap.L().Warn("model bundle unavailable, serving degraded",
			zap.String("path", path),
			zap.Error(err))
		return &Engine{}
	}
	zap.L().Info("model bundle loaded",
		zap.String("path", path),
		zap.Time("trained_at", bundle.TrainedAt),
		zap.Strings("classes", bundle.Encoder.Classes))
	return &Engine{bundle: bundle}
}

// Ready reports whether artifacts are loaded.
func (e *Engine) Ready() bool {
	return e != nil && e.bundle != nil
}

// Classes returns the label set, or nil when degraded.
func (e *Engine) Classes() []string {
	if !e.Ready() {
		return nil
	}
	return e.bundle.Encoder.Classes
}

// Predict classifies one free-text description. Unknown tokens contribute
// zero weight and never fail; any unexpected failure inside the model is
// returned as a wrapped error, never a panic.
func (e *Engine) Predict(text string) (label string, err error) {
	if !e.Ready() {
		return "", ErrUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrInvalidInput
	}

	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("prediction failed: %v", r)
		}
	}()

	vec := e.bundle.Vectorizer.Transform(text)
	code := e.bundle.Forest.Predict(vec)
	label, err = e.bundle.Encoder.Decode(code)
	if err != nil {
		return "", eris.Wrap(err, "prediction failed")
	}
	return label, nil
}
