package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrModelNotFound indicates the persisted model artifact is absent. This is
// fatal at startup: no model means no classification service.
var ErrModelNotFound = errors.New("model artifact not found")

// PredictionError is a recoverable per-request inference failure. Its message
// is deliberately generic; the underlying cause is logged internally by the
// adapter and never surfaced to callers.
type PredictionError struct {
	cause error
}

func (e *PredictionError) Error() string { return "prediction failed" }

// Cause returns the internal failure for logging. Not exposed via Unwrap so
// error chains handed to HTTP handlers stay generic.
func (e *PredictionError) Cause() error { return e.cause }

// Bundle is a loaded model artifact: fitted vectorizer, fitted classifier and
// an optional explicit label list. Immutable after load; shared by all
// requests without coordination.
type Bundle struct {
	Vectorizer *Vectorizer
	Classifier Classifier
	Labels     []string
	Path       string
}

// bundleFile is the on-disk artifact layout.
type bundleFile struct {
	FormatVersion int             `json:"format_version"`
	Vectorizer    *Vectorizer     `json:"vectorizer"`
	Classifier    json.RawMessage `json:"classifier"`
}

type classifierHeader struct {
	Type string `json:"type"`
}

// Classifier artifact types.
const (
	ClassifierLogisticRegression = "logistic_regression"
	ClassifierNearestCentroid    = "nearest_centroid"
)

// LoadBundle reads the model artifact from modelPath and, when labelsPath
// exists, the explicit label list overriding the classifier's class ordering.
// A missing artifact returns ErrModelNotFound; a missing labels file is not
// an error.
func LoadBundle(modelPath, labelsPath string) (*Bundle, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var file bundleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if file.Vectorizer == nil {
		return nil, fmt.Errorf("model artifact has no vectorizer")
	}
	if err := file.Vectorizer.init(); err != nil {
		return nil, fmt.Errorf("invalid vectorizer: %w", err)
	}

	clf, err := decodeClassifier(file.Classifier)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Vectorizer: file.Vectorizer,
		Classifier: clf,
		Path:       modelPath,
	}

	if labelsPath != "" {
		labels, err := loadLabels(labelsPath)
		if err != nil {
			return nil, err
		}
		bundle.Labels = labels
	}

	return bundle, nil
}

func decodeClassifier(raw json.RawMessage) (Classifier, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("model artifact has no classifier")
	}

	var header classifierHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decode classifier header: %w", err)
	}

	switch header.Type {
	case ClassifierLogisticRegression:
		var clf LogisticRegression
		if err := json.Unmarshal(raw, &clf); err != nil {
			return nil, fmt.Errorf("decode logistic regression: %w", err)
		}
		if err := clf.validate(); err != nil {
			return nil, err
		}
		return &clf, nil
	case ClassifierNearestCentroid:
		var clf NearestCentroid
		if err := json.Unmarshal(raw, &clf); err != nil {
			return nil, fmt.Errorf("decode nearest centroid: %w", err)
		}
		if err := clf.validate(); err != nil {
			return nil, err
		}
		return &clf, nil
	default:
		return nil, fmt.Errorf("unsupported classifier type %q", header.Type)
	}
}

// loadLabels reads a JSON array of canonical label names. A missing file
// yields nil labels, not an error.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read labels file: %w", err)
	}

	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("decode labels file: %w", err)
	}
	return labels, nil
}

// ModelType returns the artifact type name of a classifier.
func ModelType(c Classifier) string {
	switch c.(type) {
	case *LogisticRegression:
		return ClassifierLogisticRegression
	case *NearestCentroid:
		return ClassifierNearestCentroid
	default:
		return "unknown"
	}
}
