package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Conversation is a stored chat session.
type Conversation struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	StartedAt      time.Time `json:"started_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
	IsActive       bool      `json:"is_active"`
	MessageCount   int       `json:"message_count"`
	CrisisDetected bool      `json:"crisis_detected"`
}

// Message is a stored chat turn with its analysis results.
type Message struct {
	ID             uuid.UUID          `json:"id"`
	ConversationID uuid.UUID          `json:"conversation_id"`
	Role           string             `json:"role"` // "user" or "assistant"
	Content        string             `json:"content"`
	Prediction     string             `json:"prediction,omitempty"`
	Probabilities  map[string]float64 `json:"probabilities,omitempty"`
	CrisisDetected bool               `json:"crisis_detected"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Store persists conversations and messages to PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a conversation store. Returns nil when db is nil so the
// service can run stateless.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// Create starts a new conversation.
func (s *Store) Create(ctx context.Context, title string) (*Conversation, error) {
	if title == "" {
		title = "New Conversation"
	}
	conv := &Conversation{
		ID:            uuid.New(),
		Title:         title,
		StartedAt:     time.Now().UTC(),
		LastMessageAt: time.Now().UTC(),
		IsActive:      true,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, started_at, last_message_at, is_active, message_count, crisis_detected)
		VALUES ($1, $2, $3, $4, $5, 0, FALSE)`,
		conv.ID, conv.Title, conv.StartedAt, conv.LastMessageAt, conv.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Get returns a conversation by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, started_at, last_message_at, is_active, message_count, crisis_detected
		FROM conversations WHERE id = $1`, id)

	var c Conversation
	err := row.Scan(&c.ID, &c.Title, &c.StartedAt, &c.LastMessageAt, &c.IsActive, &c.MessageCount, &c.CrisisDetected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

// List returns conversations ordered by most recent activity.
func (s *Store) List(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, started_at, last_message_at, is_active, message_count, crisis_detected
		FROM conversations ORDER BY last_message_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.StartedAt, &c.LastMessageAt, &c.IsActive, &c.MessageCount, &c.CrisisDetected); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Update changes the title and/or active state of a conversation. Nil fields
// are left untouched.
func (s *Store) Update(ctx context.Context, id uuid.UUID, title *string, isActive *bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET title = COALESCE($2, title), is_active = COALESCE($3, is_active)
		WHERE id = $1`, id, title, isActive)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a conversation and its messages.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage stores one turn and updates the conversation counters. A
// message flagged as crisis latches the conversation-level crisis flag.
func (s *Store) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var probs []byte
	if msg.Probabilities != nil {
		var err error
		probs, err = json.Marshal(msg.Probabilities)
		if err != nil {
			return fmt.Errorf("marshal probabilities: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, prediction, probabilities, crisis_detected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, nullString(msg.Prediction), probs, msg.CrisisDetected, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations
		SET message_count = message_count + 1,
		    last_message_at = $2,
		    crisis_detected = crisis_detected OR $3
		WHERE id = $1`,
		msg.ConversationID, msg.CreatedAt, msg.CrisisDetected,
	)
	if err != nil {
		return fmt.Errorf("update conversation counters: %w", err)
	}

	return tx.Commit()
}

// ListMessages returns all messages for a conversation in chronological order.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, prediction, probabilities, crisis_detected, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var (
			m          Message
			prediction sql.NullString
			probs      []byte
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &prediction, &probs, &m.CrisisDetected, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Prediction = prediction.String
		if len(probs) > 0 {
			if err := json.Unmarshal(probs, &m.Probabilities); err != nil {
				return nil, fmt.Errorf("unmarshal probabilities: %w", err)
			}
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// RecordUserMessage persists an analyzed user turn.
func (s *Store) RecordUserMessage(ctx context.Context, conversationID uuid.UUID, content, prediction string, probabilities map[string]float64, crisis bool) error {
	return s.AppendMessage(ctx, &Message{
		ConversationID: conversationID,
		Role:           "user",
		Content:        content,
		Prediction:     prediction,
		Probabilities:  probabilities,
		CrisisDetected: crisis,
	})
}

// RecordAssistantMessage persists a composed assistant turn.
func (s *Store) RecordAssistantMessage(ctx context.Context, conversationID uuid.UUID, content string) error {
	return s.AppendMessage(ctx, &Message{
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        content,
	})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
