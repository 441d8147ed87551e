package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serenity-health/risk-api/internal/model"
	"github.com/serenity-health/risk-api/internal/observability/metrics"
	"github.com/serenity-health/risk-api/internal/risk"
)

// stubPredictor returns a fixed prediction or error.
type stubPredictor struct {
	pred *model.Prediction
	err  error
}

func (s *stubPredictor) Predict(ctx context.Context, text string) (*model.Prediction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pred, nil
}

func newTestService(p Predictor) *Service {
	return NewService(
		risk.NewPatternMatcher(nil),
		p,
		risk.NewEngine(nil),
		metrics.NewAnalysisMetrics(prometheus.NewRegistry()),
		nil,
	)
}

func TestAnalyzeNormalPath(t *testing.T) {
	svc := newTestService(&stubPredictor{pred: &model.Prediction{
		Label:      "Anxiety",
		Confidence: 0.7,
		Probabilities: map[string]float64{
			"Anxiety": 0.7, "Normal": 0.2, "Depression": 0.05, "Suicidal": 0.05,
		},
	}})

	a, err := svc.Analyze(context.Background(), "I feel really anxious and worried about everything lately")
	require.NoError(t, err)

	assert.Equal(t, "Anxiety", a.RiskLabel)
	assert.Empty(t, a.Flags)
	assert.Equal(t, risk.ActionNormal, a.RecommendedAction)
	assert.False(t, a.Degraded)
}

func TestAnalyzeFlagsDominateModel(t *testing.T) {
	// Classifier is confident everything is fine; rules still escalate.
	svc := newTestService(&stubPredictor{pred: &model.Prediction{
		Label:         "Normal",
		Confidence:    0.99,
		Probabilities: map[string]float64{"Normal": 0.99},
	}})

	a, err := svc.Analyze(context.Background(), "I am going to kill myself tonight")
	require.NoError(t, err)

	assert.True(t, a.Flags.Has(risk.FlagIntent))
	assert.True(t, a.Flags.Has(risk.FlagTime))
	assert.Equal(t, risk.ActionCrisisCritical, a.RecommendedAction)
}

func TestAnalyzeModelOnlyEscalation(t *testing.T) {
	svc := newTestService(&stubPredictor{pred: &model.Prediction{
		Label:         "Suicidal",
		Confidence:    0.8,
		Probabilities: map[string]float64{"Suicidal": 0.8},
	}})

	a, err := svc.Analyze(context.Background(), "nothing matters anymore to me")
	require.NoError(t, err)

	assert.Empty(t, a.Flags)
	assert.Equal(t, risk.ActionCrisisHigh, a.RecommendedAction)
}

func TestAnalyzeLowConfidence(t *testing.T) {
	svc := newTestService(&stubPredictor{pred: &model.Prediction{
		Label:         "Normal",
		Confidence:    0.54,
		Probabilities: map[string]float64{"Normal": 0.54},
	}})

	a, err := svc.Analyze(context.Background(), "hm okay whatever then")
	require.NoError(t, err)
	assert.Equal(t, risk.ActionUncertainSupport, a.RecommendedAction)
}

func TestAnalyzePredictionFailureKeepsFlags(t *testing.T) {
	svc := newTestService(&stubPredictor{err: errors.New("inference blew up")})

	a, err := svc.Analyze(context.Background(), "I will kill myself tonight")
	require.Error(t, err)
	require.NotNil(t, a, "flags-only assessment must accompany the error")

	assert.True(t, a.Degraded)
	assert.True(t, a.Flags.Has(risk.FlagIntent))
	assert.Equal(t, risk.ActionCrisisCritical, a.RecommendedAction)
}

func TestAnalyzeDegradedMode(t *testing.T) {
	svc := newTestService(nil)
	assert.True(t, svc.Degraded())

	a, err := svc.Analyze(context.Background(), "I have a plan for tonight")
	require.NoError(t, err)
	assert.True(t, a.Degraded)
	assert.Equal(t, risk.ActionCrisisCritical, a.RecommendedAction)

	a, err = svc.Analyze(context.Background(), "lovely weather outside")
	require.NoError(t, err)
	assert.Empty(t, a.Flags)
	assert.Equal(t, risk.ActionUncertainSupport, a.RecommendedAction)
}
