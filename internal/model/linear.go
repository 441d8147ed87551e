package model

import (
	"fmt"
	"math"
)

// Classifier predicts a hard class label for a feature vector.
type Classifier interface {
	Predict(features map[int]float64) (int, error)
	Classes() []string
}

// ProbabilityClassifier additionally exposes a per-class probability
// distribution. Adapters prefer this shape when available.
type ProbabilityClassifier interface {
	Classifier
	PredictProba(features map[int]float64) ([]float64, error)
}

// LogisticRegression is a fitted multinomial logistic regression model.
// Coefficients has one row per class (one row total for binary models).
type LogisticRegression struct {
	ClassNames   []string    `json:"classes"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
}

// Classes returns the fitted class ordering.
func (m *LogisticRegression) Classes() []string { return m.ClassNames }

func (m *LogisticRegression) validate() error {
	if len(m.ClassNames) == 0 {
		return fmt.Errorf("logistic regression has no classes")
	}
	binary := len(m.ClassNames) == 2 && len(m.Coefficients) == 1
	if !binary && len(m.Coefficients) != len(m.ClassNames) {
		return fmt.Errorf("coefficient rows %d do not match %d classes", len(m.Coefficients), len(m.ClassNames))
	}
	if len(m.Intercepts) != len(m.Coefficients) {
		return fmt.Errorf("intercepts %d do not match coefficient rows %d", len(m.Intercepts), len(m.Coefficients))
	}
	return nil
}

func (m *LogisticRegression) decision(row int, features map[int]float64) (float64, error) {
	coef := m.Coefficients[row]
	z := m.Intercepts[row]
	for idx, val := range features {
		if idx >= len(coef) {
			return 0, fmt.Errorf("feature index %d exceeds coefficient width %d", idx, len(coef))
		}
		z += coef[idx] * val
	}
	return z, nil
}

// PredictProba returns the class probability distribution: sigmoid for the
// binary single-row shape, softmax otherwise.
func (m *LogisticRegression) PredictProba(features map[int]float64) ([]float64, error) {
	if len(m.ClassNames) == 2 && len(m.Coefficients) == 1 {
		z, err := m.decision(0, features)
		if err != nil {
			return nil, err
		}
		p := 1.0 / (1.0 + math.Exp(-z))
		return []float64{1 - p, p}, nil
	}

	scores := make([]float64, len(m.Coefficients))
	maxScore := math.Inf(-1)
	for i := range m.Coefficients {
		z, err := m.decision(i, features)
		if err != nil {
			return nil, err
		}
		scores[i] = z
		if z > maxScore {
			maxScore = z
		}
	}

	var sum float64
	for i, z := range scores {
		scores[i] = math.Exp(z - maxScore)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
	return scores, nil
}

// Predict returns the arg-max class index.
func (m *LogisticRegression) Predict(features map[int]float64) (int, error) {
	probs, err := m.PredictProba(features)
	if err != nil {
		return 0, err
	}
	return argMax(probs), nil
}

// NearestCentroid is a fitted centroid classifier. It exposes only hard
// predictions, exercising the no-probabilities classifier shape.
type NearestCentroid struct {
	ClassNames []string    `json:"classes"`
	Centroids  [][]float64 `json:"centroids"`
}

// Classes returns the fitted class ordering.
func (m *NearestCentroid) Classes() []string { return m.ClassNames }

func (m *NearestCentroid) validate() error {
	if len(m.ClassNames) == 0 {
		return fmt.Errorf("nearest centroid has no classes")
	}
	if len(m.Centroids) != len(m.ClassNames) {
		return fmt.Errorf("centroid rows %d do not match %d classes", len(m.Centroids), len(m.ClassNames))
	}
	return nil
}

// Predict returns the index of the closest centroid by squared euclidean
// distance. ||x - c||^2 expands so only centroid norms and the sparse dot
// product are needed.
func (m *NearestCentroid) Predict(features map[int]float64) (int, error) {
	best := -1
	bestDist := math.Inf(1)
	for i, centroid := range m.Centroids {
		var dot, cNorm float64
		for _, c := range centroid {
			cNorm += c * c
		}
		for idx, val := range features {
			if idx >= len(centroid) {
				return 0, fmt.Errorf("feature index %d exceeds centroid width %d", idx, len(centroid))
			}
			dot += val * centroid[idx]
		}
		dist := cNorm - 2*dot
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("nearest centroid has no centroids")
	}
	return best, nil
}

func argMax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}
