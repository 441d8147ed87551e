package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/serenity-health/risk-api/pkg/logging"
)

// Handler serves the conversation history endpoints.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ConversationDetail is a conversation with its messages.
type ConversationDetail struct {
	*Conversation
	Messages []*Message `json:"messages"`
}

// CreateRequest is the new-conversation payload.
type CreateRequest struct {
	Title string `json:"title"`
}

// Create handles POST /conversations requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if r.Body != nil {
		// Empty body is allowed; title defaults server-side.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	conv, err := h.store.Create(r.Context(), req.Title)
	if err != nil {
		h.logger.Error("failed to create conversation", "error", err)
		http.Error(w, "failed to create conversation", http.StatusInternalServerError)
		return
	}

	h.logger.Info("conversation created", "id", conv.ID)
	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /conversations requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	if convs == nil {
		convs = []*Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

// Get handles GET /conversations/{conversationID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	conv, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get conversation", "error", err, "id", id)
		http.Error(w, "failed to get conversation", http.StatusInternalServerError)
		return
	}

	msgs, err := h.store.ListMessages(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err, "id", id)
		http.Error(w, "failed to get conversation", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []*Message{}
	}

	writeJSON(w, http.StatusOK, ConversationDetail{Conversation: conv, Messages: msgs})
}

// UpdateRequest is the conversation patch payload.
type UpdateRequest struct {
	Title    *string `json:"title"`
	IsActive *bool   `json:"is_active"`
}

// Update handles PATCH /conversations/{conversationID} requests.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.store.Update(r.Context(), id, req.Title, req.IsActive)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to update conversation", "error", err, "id", id)
		http.Error(w, "failed to update conversation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation updated successfully"})
}

// Delete handles DELETE /conversations/{conversationID} requests.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	err := h.store.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to delete conversation", "error", err, "id", id)
		http.Error(w, "failed to delete conversation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted successfully"})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
