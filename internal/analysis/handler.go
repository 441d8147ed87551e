package analysis

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/serenity-health/risk-api/internal/model"
	"github.com/serenity-health/risk-api/pkg/logging"
)

// Input bounds for the raw prediction surface.
const (
	minPredictChars = 10
	maxPredictChars = 5000
)

// ModelInspector exposes metadata about the loaded classifier.
type ModelInspector interface {
	Info() model.ModelInfo
}

// Handler serves the analysis and raw prediction endpoints.
type Handler struct {
	svc       *Service
	inspector ModelInspector
	logger    *logging.Logger

	minTextChars int
	maxTextChars int
}

// NewHandler creates an analysis handler. inspector is nil in degraded mode.
func NewHandler(svc *Service, inspector ModelInspector, minTextChars, maxTextChars int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:          svc,
		inspector:    inspector,
		logger:       logger,
		minTextChars: minTextChars,
		maxTextChars: maxTextChars,
	}
}

// AnalyzeRequest is the analysis request payload.
type AnalyzeRequest struct {
	Text    string   `json:"text"`
	Context []string `json:"context,omitempty"`
}

// AnalyzeResponse is the analysis result payload.
type AnalyzeResponse struct {
	RiskLabel         string   `json:"risk_label"`
	Confidence        float64  `json:"confidence"`
	Flags             []string `json:"flags"`
	RecommendedAction string   `json:"recommended_action"`
}

// Analyze handles POST /analyze requests.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(req.Text)
	if err := validateLength(text, h.minTextChars, h.maxTextChars); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("received analysis request",
		"text_length", len(text),
		"has_context", len(req.Context) > 0,
	)

	assessment, err := h.svc.Analyze(r.Context(), text)
	if err != nil {
		// Full detail is already logged by the adapter; callers get a
		// generic failure only.
		http.Error(w, "Model prediction failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		RiskLabel:         assessment.RiskLabel,
		Confidence:        assessment.Confidence,
		Flags:             assessment.Flags.Strings(),
		RecommendedAction: string(assessment.RecommendedAction),
	})
}

// PredictRequest is the raw prediction request payload.
type PredictRequest struct {
	Text string `json:"text"`
}

// PredictResponse is the raw prediction payload.
type PredictResponse struct {
	Prediction    string             `json:"prediction"`
	Probabilities map[string]float64 `json:"probabilities"`
	Status        string             `json:"status"`
}

// Predict handles POST /ml/predict requests.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if h.svc.Degraded() {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
		return
	}

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(req.Text)
	if err := validateLength(text, minPredictChars, maxPredictChars); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pred, err := h.svc.predictor.Predict(r.Context(), text)
	if err != nil {
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		Prediction:    pred.Label,
		Probabilities: pred.Probabilities,
		Status:        "success",
	})
}

// ModelInfo handles GET /ml/model-info requests.
func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, h.inspector.Info())
}

func validateLength(text string, min, max int) error {
	if len(text) < min {
		return fmt.Errorf("text must be at least %d characters", min)
	}
	if len(text) > max {
		return fmt.Errorf("text must be at most %d characters", max)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
