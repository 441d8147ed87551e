package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	store, mock := newMockStore(t)
	return NewHandler(store, nil), mock
}

func withConversationID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("conversationID", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandlerCreate(t *testing.T) {
	h, mock := newMockHandler(t)

	mock.ExpectExec("INSERT INTO conversations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/conversations", strings.NewReader(`{"title": "Evening check-in"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var conv Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, "Evening check-in", conv.Title)
	assert.True(t, conv.IsActive)
}

func TestHandlerList(t *testing.T) {
	h, mock := newMockHandler(t)

	mock.ExpectQuery("SELECT id, title, started_at").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "started_at", "last_message_at", "is_active", "message_count", "crisis_detected",
		}).AddRow(uuid.New(), "Check-in", time.Now(), time.Now(), true, 3, false))

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var convs []Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	assert.Equal(t, "Check-in", convs[0].Title)
}

func TestHandlerListEmpty(t *testing.T) {
	h, mock := newMockHandler(t)

	mock.ExpectQuery("SELECT id, title, started_at").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "started_at", "last_message_at", "is_active", "message_count", "crisis_detected",
		}))

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// Empty list serializes as [], not null.
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandlerGetWithMessages(t *testing.T) {
	h, mock := newMockHandler(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT id, title, started_at").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "started_at", "last_message_at", "is_active", "message_count", "crisis_detected",
		}).AddRow(id, "Check-in", time.Now(), time.Now(), true, 1, false))
	mock.ExpectQuery("SELECT id, conversation_id, role").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "role", "content", "prediction", "probabilities", "crisis_detected", "created_at",
		}).AddRow(uuid.New(), id, "user", "hi there", nil, nil, false, time.Now()))

	req := withConversationID(httptest.NewRequest(http.MethodGet, "/conversations/"+id.String(), nil), id.String())
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var detail ConversationDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Check-in", detail.Title)
	require.Len(t, detail.Messages, 1)
	assert.Equal(t, "hi there", detail.Messages[0].Content)
}

func TestHandlerGetNotFound(t *testing.T) {
	h, mock := newMockHandler(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT id, title, started_at").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "started_at", "last_message_at", "is_active", "message_count", "crisis_detected",
		}))

	req := withConversationID(httptest.NewRequest(http.MethodGet, "/conversations/"+id.String(), nil), id.String())
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerGetInvalidID(t *testing.T) {
	h, _ := newMockHandler(t)

	req := withConversationID(httptest.NewRequest(http.MethodGet, "/conversations/abc", nil), "abc")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUpdate(t *testing.T) {
	h, mock := newMockHandler(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE conversations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := withConversationID(
		httptest.NewRequest(http.MethodPatch, "/conversations/"+id.String(), strings.NewReader(`{"is_active": false}`)),
		id.String(),
	)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerUpdateNotFound(t *testing.T) {
	h, mock := newMockHandler(t)

	id := uuid.New()
	mock.ExpectExec("UPDATE conversations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := withConversationID(
		httptest.NewRequest(http.MethodPatch, "/conversations/"+id.String(), strings.NewReader(`{"title": "x"}`)),
		id.String(),
	)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerDeleteNotFound(t *testing.T) {
	h, mock := newMockHandler(t)

	id := uuid.New()
	mock.ExpectExec("DELETE FROM conversations").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := withConversationID(httptest.NewRequest(http.MethodDelete, "/conversations/"+id.String(), nil), id.String())
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
