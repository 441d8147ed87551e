package model

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/serenity-health/risk-api/pkg/logging"
)

var adapterTracer = otel.Tracer("serenity/classifier-adapter")

// Prediction is a single classification result: the best label, the
// probability assigned to it, and the full distribution over the label
// vocabulary. Hard-prediction classifiers report confidence 1.0 and an empty
// distribution.
type Prediction struct {
	Label         string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// ModelInfo describes the loaded artifact.
type ModelInfo struct {
	Classes        []string `json:"classes"`
	ModelType      string   `json:"model_type"`
	VocabularySize int      `json:"vocabulary_size"`
	ModelPath      string   `json:"model_path"`
}

// Adapter wraps the fitted vectorizer + classifier pair behind a uniform
// predict call. The bundle is immutable and the inference path touches no
// shared mutable state, so one Adapter serves concurrent requests without
// locking.
type Adapter struct {
	bundle *Bundle
	labels []string
	logger *logging.Logger
}

// NewAdapter creates an adapter around a loaded bundle.
func NewAdapter(bundle *Bundle, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	a := &Adapter{
		bundle: bundle,
		logger: logger,
	}
	a.labels = a.resolveLabels()
	return a
}

// resolveLabels picks the label vocabulary: an explicit labels file wins over
// the classifier's own class ordering; with neither, numeric indices stand in
// so a missing metadata file never crashes the adapter.
func (a *Adapter) resolveLabels() []string {
	classes := a.bundle.Classifier.Classes()
	n := len(classes)
	if n == 0 {
		n = len(a.bundle.Labels)
	}

	labels := make([]string, n)
	for i := range labels {
		switch {
		case i < len(a.bundle.Labels):
			labels[i] = a.bundle.Labels[i]
		case i < len(classes):
			labels[i] = classes[i]
		default:
			labels[i] = strconv.Itoa(i)
		}
	}
	return labels
}

func (a *Adapter) labelFor(idx int) string {
	if idx >= 0 && idx < len(a.labels) {
		return a.labels[idx]
	}
	return strconv.Itoa(idx)
}

// Labels returns the resolved label vocabulary.
func (a *Adapter) Labels() []string {
	out := make([]string, len(a.labels))
	copy(out, a.labels)
	return out
}

// Info returns metadata about the loaded model.
func (a *Adapter) Info() ModelInfo {
	return ModelInfo{
		Classes:        a.Labels(),
		ModelType:      ModelType(a.bundle.Classifier),
		VocabularySize: a.bundle.Vectorizer.VocabularySize(),
		ModelPath:      a.bundle.Path,
	}
}

// Predict classifies text. Failures in the feature transform or classifier
// are logged with full detail and returned as a generic *PredictionError.
func (a *Adapter) Predict(ctx context.Context, text string) (*Prediction, error) {
	_, span := adapterTracer.Start(ctx, "model.predict")
	defer span.End()

	features, err := a.bundle.Vectorizer.Transform(text)
	if err != nil {
		a.logger.Error("vectorizer transform failed", "error", err)
		return nil, &PredictionError{cause: err}
	}

	pred, err := a.classify(features)
	if err != nil {
		a.logger.Error("classifier inference failed", "error", err)
		return nil, &PredictionError{cause: err}
	}

	span.SetAttributes(
		attribute.String("model.prediction", pred.Label),
		attribute.Float64("model.confidence", pred.Confidence),
	)
	a.logger.Info("prediction made", "prediction", pred.Label, "confidence", pred.Confidence)

	return pred, nil
}

// PredictBatch classifies several texts in one pass. It stops at the first
// failure so a malformed element cannot yield a partially silent batch.
func (a *Adapter) PredictBatch(ctx context.Context, texts []string) ([]*Prediction, error) {
	out := make([]*Prediction, 0, len(texts))
	for _, text := range texts {
		pred, err := a.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, pred)
	}
	return out, nil
}

func (a *Adapter) classify(features map[int]float64) (*Prediction, error) {
	if proba, ok := a.bundle.Classifier.(ProbabilityClassifier); ok {
		probs, err := proba.PredictProba(features)
		if err != nil {
			return nil, err
		}

		best := argMax(probs)
		distribution := make(map[string]float64, len(probs))
		for i, p := range probs {
			distribution[a.labelFor(i)] = p
		}

		return &Prediction{
			Label:         a.labelFor(best),
			Confidence:    probs[best],
			Probabilities: distribution,
		}, nil
	}

	// Hard-prediction classifier shape: confidence 1.0, no distribution.
	idx, err := a.bundle.Classifier.Predict(features)
	if err != nil {
		return nil, err
	}
	return &Prediction{
		Label:         a.labelFor(idx),
		Confidence:    1.0,
		Probabilities: map[string]float64{},
	}, nil
}
