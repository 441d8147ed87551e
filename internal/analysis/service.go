package analysis

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/serenity-health/risk-api/internal/model"
	"github.com/serenity-health/risk-api/internal/observability/metrics"
	"github.com/serenity-health/risk-api/internal/risk"
	"github.com/serenity-health/risk-api/pkg/logging"
)

var analysisTracer = otel.Tracer("serenity/analysis")

// Predictor is the classifier surface the service needs.
type Predictor interface {
	Predict(ctx context.Context, text string) (*model.Prediction, error)
}

// Assessment is the full result of analyzing one message. It is request
// scoped: computed, handed to the caller, and discarded.
type Assessment struct {
	RiskLabel         string
	Confidence        float64
	Probabilities     map[string]float64
	Flags             risk.Flags
	RecommendedAction risk.Action
	Degraded          bool
}

// Service runs the analysis pipeline: pattern matching and classification run
// independently on the raw text, then the decision engine fuses both into a
// recommended action.
type Service struct {
	matcher   *risk.PatternMatcher
	predictor Predictor
	engine    *risk.Engine
	metrics   *metrics.AnalysisMetrics
	logger    *logging.Logger
}

// NewService creates the analysis service. predictor may be nil for degraded
// flags-only deployments.
func NewService(matcher *risk.PatternMatcher, predictor Predictor, engine *risk.Engine, m *metrics.AnalysisMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		matcher:   matcher,
		predictor: predictor,
		engine:    engine,
		metrics:   m,
		logger:    logger,
	}
}

// Degraded reports whether the service runs without a classifier.
func (s *Service) Degraded() bool {
	return s.predictor == nil
}

// Analyze assesses a single message. On prediction failure it returns both a
// flags-only assessment and the error: safety-flag evaluation is never
// skipped, and the caller chooses whether to fail the request or degrade.
func (s *Service) Analyze(ctx context.Context, text string) (*Assessment, error) {
	ctx, span := analysisTracer.Start(ctx, "analysis.analyze")
	defer span.End()

	text = strings.TrimSpace(text)

	flags := s.matcher.Match(ctx, text)
	for _, f := range flags {
		s.metrics.ObserveFlag(string(f))
	}

	if s.predictor == nil {
		return s.flagsOnly(flags), nil
	}

	start := time.Now()
	pred, err := s.predictor.Predict(ctx, text)
	s.metrics.ObservePredictionLatency(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ObservePredictionFailure()
		return s.flagsOnly(flags), err
	}

	action := s.engine.Decide(pred.Label, pred.Confidence, flags)
	s.metrics.ObserveAnalysis(string(action))

	span.SetAttributes(
		attribute.String("analysis.risk_label", pred.Label),
		attribute.Float64("analysis.confidence", pred.Confidence),
		attribute.String("analysis.action", string(action)),
	)
	s.logger.Info("analysis completed",
		"risk_label", pred.Label,
		"confidence", pred.Confidence,
		"flags", flags.Strings(),
		"action", action,
	)

	return &Assessment{
		RiskLabel:         pred.Label,
		Confidence:        pred.Confidence,
		Probabilities:     pred.Probabilities,
		Flags:             flags,
		RecommendedAction: action,
	}, nil
}

// flagsOnly builds the degraded assessment used without a working classifier.
// Flags still drive crisis escalation; without flags the only safe answer is
// a cautious one.
func (s *Service) flagsOnly(flags risk.Flags) *Assessment {
	action := s.engine.Decide("", 0, flags)
	s.metrics.ObserveAnalysis(string(action))
	return &Assessment{
		Probabilities:     map[string]float64{},
		Flags:             flags,
		RecommendedAction: action,
		Degraded:          true,
	}
}
