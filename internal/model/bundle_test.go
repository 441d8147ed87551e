package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bundleJSON = `{
  "format_version": 1,
  "vectorizer": {
    "lowercase": true,
    "ngram_min": 1,
    "ngram_max": 2,
    "stop_words": ["the", "a"],
    "vocabulary": {"anxious": 0, "hopeless": 1, "fine": 2},
    "idf": [1.4, 1.6, 1.1]
  },
  "classifier": {
    "type": "logistic_regression",
    "classes": ["Anxiety", "Depression", "Normal"],
    "coefficients": [[6, 0, 0], [0, 6, 0], [0, 0, 6]],
    "intercepts": [0, 0, 0]
  }
}`

func writeBundle(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "text_classifier.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadBundle(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, bundleJSON)

	bundle, err := LoadBundle(path, filepath.Join(dir, "labels.json"))
	require.NoError(t, err)

	assert.Equal(t, 3, bundle.Vectorizer.VocabularySize())
	assert.Equal(t, []string{"Anxiety", "Depression", "Normal"}, bundle.Classifier.Classes())
	assert.Nil(t, bundle.Labels, "missing labels file must not be an error")

	adapter := NewAdapter(bundle, nil)
	pred, err := adapter.Predict(context.Background(), "I feel anxious")
	require.NoError(t, err)
	assert.Equal(t, "Anxiety", pred.Label)
}

func TestLoadBundleWithLabels(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, bundleJSON)
	labelsPath := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(labelsPath, []byte(`["Anxious", "Low", "Healthy"]`), 0o600))

	bundle, err := LoadBundle(path, labelsPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anxious", "Low", "Healthy"}, bundle.Labels)

	// Round trip: every label from the metadata file keys the distribution.
	adapter := NewAdapter(bundle, nil)
	pred, err := adapter.Predict(context.Background(), "hopeless about it all")
	require.NoError(t, err)
	for _, label := range bundle.Labels {
		assert.Contains(t, pred.Probabilities, label)
	}
	assert.Equal(t, "Low", pred.Label)
}

func TestLoadBundleMissing(t *testing.T) {
	_, err := LoadBundle(filepath.Join(t.TempDir(), "absent.json"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestLoadBundleMalformed(t *testing.T) {
	dir := t.TempDir()

	path := writeBundle(t, dir, `{"format_version": 1}`)
	_, err := LoadBundle(path, "")
	assert.Error(t, err)

	path = writeBundle(t, dir, `{
	  "format_version": 1,
	  "vectorizer": {"lowercase": true, "ngram_min": 1, "ngram_max": 1, "vocabulary": {"x": 0}, "idf": [1.0]},
	  "classifier": {"type": "decision_tree"}
	}`)
	_, err = LoadBundle(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported classifier type")
}

func TestLoadBundleNearestCentroid(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, `{
	  "format_version": 1,
	  "vectorizer": {"lowercase": true, "ngram_min": 1, "ngram_max": 1, "vocabulary": {"anxious": 0, "fine": 1}, "idf": [1.0, 1.0]},
	  "classifier": {"type": "nearest_centroid", "classes": ["Anxiety", "Normal"], "centroids": [[1, 0], [0, 1]]}
	}`)

	bundle, err := LoadBundle(path, "")
	require.NoError(t, err)

	adapter := NewAdapter(bundle, nil)
	pred, err := adapter.Predict(context.Background(), "feeling fine")
	require.NoError(t, err)
	assert.Equal(t, "Normal", pred.Label)
	assert.Equal(t, 1.0, pred.Confidence)
}
