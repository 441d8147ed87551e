package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/serenity-health/risk-api/internal/analysis"
	"github.com/serenity-health/risk-api/internal/conversation"
	"github.com/serenity-health/risk-api/internal/risk"
	"github.com/serenity-health/risk-api/pkg/logging"
)

// Recorder is the persistence surface the chat handler needs. Satisfied by
// *conversation.Store; nil disables history.
type Recorder interface {
	Get(ctx context.Context, id uuid.UUID) (*conversation.Conversation, error)
	RecordUserMessage(ctx context.Context, conversationID uuid.UUID, content, prediction string, probabilities map[string]float64, crisis bool) error
	RecordAssistantMessage(ctx context.Context, conversationID uuid.UUID, content string) error
}

// Handler serves the chat endpoints.
type Handler struct {
	svc      *analysis.Service
	composer *Composer
	recorder Recorder
	logger   *logging.Logger

	minTextChars int
	maxTextChars int
}

// NewHandler creates a chat handler. recorder may be nil to run without
// conversation history.
func NewHandler(svc *analysis.Service, composer *Composer, recorder Recorder, minTextChars, maxTextChars int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:          svc,
		composer:     composer,
		recorder:     recorder,
		logger:       logger,
		minTextChars: minTextChars,
		maxTextChars: maxTextChars,
	}
}

// MessageRequest is the chat message payload.
type MessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	PriorTurns     int    `json:"prior_turns,omitempty"`
}

// MessageResponse is the composed chat reply payload.
type MessageResponse struct {
	Response                 string             `json:"response"`
	Prediction               string             `json:"prediction,omitempty"`
	Probabilities            map[string]float64 `json:"probabilities"`
	RecommendedAction        string             `json:"recommended_action"`
	CrisisDetected           bool               `json:"crisis_detected"`
	RequiresProfessionalHelp bool               `json:"requires_professional_help"`
	CrisisResources          *CrisisResources   `json:"crisis_resources,omitempty"`
	ConversationID           string             `json:"conversation_id,omitempty"`
	Status                   string             `json:"status"`
}

// Message handles POST /chat/message requests. A failed prediction degrades to
// a safe fallback reply rather than an error: the user is mid-conversation and
// safety flags were still evaluated.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	if h.svc.Degraded() {
		http.Error(w, "chat unavailable", http.StatusServiceUnavailable)
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(req.Message)
	if len(text) < h.minTextChars || len(text) > h.maxTextChars {
		http.Error(w, "Invalid message length", http.StatusBadRequest)
		return
	}

	convID, priorTurns := h.resolveConversation(r.Context(), req)

	assessment, predictErr := h.svc.Analyze(r.Context(), text)
	crisisAction := assessment.RecommendedAction == risk.ActionCrisisHigh ||
		assessment.RecommendedAction == risk.ActionCrisisCritical

	var reply *Reply
	status := "success"
	if predictErr != nil {
		reply = h.composer.Fallback(crisisAction)
		status = "degraded"
	} else {
		reply = h.composer.Compose(assessment.RiskLabel, assessment.Probabilities, priorTurns)
	}

	// Rule-driven escalation overrides the composer: a crisis-tier action
	// always surfaces resources even when the classifier disagreed.
	if crisisAction {
		reply.CrisisDetected = true
		reply.RequiresProfessionalHelp = true
		reply.CrisisResources = h.composer.Resources()
	}

	h.persistTurn(r.Context(), convID, text, assessment, reply)

	resp := MessageResponse{
		Response:                 reply.Text,
		Prediction:               assessment.RiskLabel,
		Probabilities:            assessment.Probabilities,
		RecommendedAction:        string(assessment.RecommendedAction),
		CrisisDetected:           reply.CrisisDetected,
		RequiresProfessionalHelp: reply.RequiresProfessionalHelp,
		CrisisResources:          reply.CrisisResources,
		Status:                   status,
	}
	if convID != uuid.Nil {
		resp.ConversationID = convID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveConversation validates the supplied conversation ID against the
// store and returns it with the prior turn count. Unknown or malformed IDs
// fall back to a stateless exchange.
func (h *Handler) resolveConversation(ctx context.Context, req MessageRequest) (uuid.UUID, int) {
	if h.recorder == nil || req.ConversationID == "" {
		return uuid.Nil, req.PriorTurns
	}

	id, err := uuid.Parse(req.ConversationID)
	if err != nil {
		h.logger.Warn("ignoring malformed conversation id", "conversation_id", req.ConversationID)
		return uuid.Nil, req.PriorTurns
	}

	conv, err := h.recorder.Get(ctx, id)
	if errors.Is(err, conversation.ErrNotFound) {
		h.logger.Warn("ignoring unknown conversation id", "conversation_id", id)
		return uuid.Nil, req.PriorTurns
	}
	if err != nil {
		h.logger.Error("failed to load conversation", "error", err, "conversation_id", id)
		return uuid.Nil, req.PriorTurns
	}
	return id, conv.MessageCount
}

// persistTurn records both sides of the exchange. History is best effort: a
// storage failure must not fail a reply that may carry crisis resources.
func (h *Handler) persistTurn(ctx context.Context, convID uuid.UUID, text string, a *analysis.Assessment, reply *Reply) {
	if h.recorder == nil || convID == uuid.Nil {
		return
	}

	if err := h.recorder.RecordUserMessage(ctx, convID, text, a.RiskLabel, a.Probabilities, reply.CrisisDetected); err != nil {
		h.logger.Error("failed to record user message", "error", err, "conversation_id", convID)
		return
	}
	if err := h.recorder.RecordAssistantMessage(ctx, convID, reply.Text); err != nil {
		h.logger.Error("failed to record assistant message", "error", err, "conversation_id", convID)
	}
}

// Greeting handles GET /chat/greeting requests.
func (h *Handler) Greeting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": h.composer.Greeting()})
}

// CrisisResources handles GET /chat/crisis-resources requests.
func (h *Handler) CrisisResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.composer.Resources())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
