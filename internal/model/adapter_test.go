package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBundle() *Bundle {
	return &Bundle{
		Vectorizer: &Vectorizer{
			Lowercase: true,
			NgramMin:  1,
			NgramMax:  1,
			Vocabulary: map[string]int{
				"anxious":  0,
				"hopeless": 1,
				"fine":     2,
			},
			Idf: []float64{1.0, 1.0, 1.0},
		},
		Classifier: &LogisticRegression{
			ClassNames: []string{"Anxiety", "Depression", "Normal"},
			Coefficients: [][]float64{
				{6, 0, 0},
				{0, 6, 0},
				{0, 0, 6},
			},
			Intercepts: []float64{0, 0, 0},
		},
		Path: "testdata/text_classifier.json",
	}
}

func TestAdapterPredict(t *testing.T) {
	adapter := NewAdapter(testBundle(), nil)

	pred, err := adapter.Predict(context.Background(), "I feel so anxious today")
	require.NoError(t, err)

	assert.Equal(t, "Anxiety", pred.Label)
	assert.Greater(t, pred.Confidence, 0.5)

	// Distribution keys equal the full label vocabulary.
	require.Len(t, pred.Probabilities, 3)
	var sum float64
	for _, label := range []string{"Anxiety", "Depression", "Normal"} {
		p, ok := pred.Probabilities[label]
		require.True(t, ok, "missing label %s", label)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, pred.Probabilities[pred.Label], pred.Confidence)
}

func TestAdapterLabelsOverride(t *testing.T) {
	bundle := testBundle()
	bundle.Labels = []string{"Anxious", "Depressed", "Healthy"}
	adapter := NewAdapter(bundle, nil)

	pred, err := adapter.Predict(context.Background(), "everything is fine")
	require.NoError(t, err)

	// Explicit label list takes precedence over the classifier's ordering.
	assert.Equal(t, "Healthy", pred.Label)
	for _, label := range bundle.Labels {
		assert.Contains(t, pred.Probabilities, label)
	}
}

func TestAdapterHardClassifierShape(t *testing.T) {
	bundle := testBundle()
	bundle.Classifier = &NearestCentroid{
		ClassNames: []string{"Anxiety", "Depression", "Normal"},
		Centroids: [][]float64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
	}
	adapter := NewAdapter(bundle, nil)

	pred, err := adapter.Predict(context.Background(), "feeling hopeless")
	require.NoError(t, err)

	assert.Equal(t, "Depression", pred.Label)
	assert.Equal(t, 1.0, pred.Confidence)
	assert.Empty(t, pred.Probabilities)
}

func TestAdapterNumericFallbackLabels(t *testing.T) {
	bundle := testBundle()
	bundle.Classifier = &LogisticRegression{
		Coefficients: [][]float64{
			{6, 0, 0},
			{0, 6, 0},
			{0, 0, 6},
		},
		Intercepts: []float64{0, 0, 0},
	}
	bundle.Labels = nil

	// Classes unknown entirely: the adapter must not crash; numeric indices
	// stand in as degenerate labels.
	adapter := NewAdapter(bundle, nil)
	assert.Equal(t, "0", adapter.labelFor(0))
	assert.Equal(t, "2", adapter.labelFor(2))
}

func TestAdapterPredictError(t *testing.T) {
	bundle := testBundle()
	bundle.Classifier = &LogisticRegression{
		ClassNames:   []string{"A", "B"},
		Coefficients: [][]float64{{1}, {1}}, // narrower than the vocabulary
		Intercepts:   []float64{0, 0},
	}
	adapter := NewAdapter(bundle, nil)

	_, err := adapter.Predict(context.Background(), "feeling hopeless")
	require.Error(t, err)

	var perr *PredictionError
	require.ErrorAs(t, err, &perr)
	// Outward message stays generic; the cause is for internal logs only.
	assert.Equal(t, "prediction failed", perr.Error())
	assert.Error(t, perr.Cause())
}

func TestAdapterPredictBatch(t *testing.T) {
	adapter := NewAdapter(testBundle(), nil)

	preds, err := adapter.PredictBatch(context.Background(), []string{
		"so anxious",
		"totally fine",
	})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Anxiety", preds[0].Label)
	assert.Equal(t, "Normal", preds[1].Label)
}

func TestAdapterInfo(t *testing.T) {
	adapter := NewAdapter(testBundle(), nil)
	info := adapter.Info()

	assert.Equal(t, []string{"Anxiety", "Depression", "Normal"}, info.Classes)
	assert.Equal(t, ClassifierLogisticRegression, info.ModelType)
	assert.Equal(t, 3, info.VocabularySize)
	assert.Equal(t, "testdata/text_classifier.json", info.ModelPath)
}
