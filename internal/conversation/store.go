package conversation

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"document-chat/internal/helper"
	"document-chat/internal/models"
)

// Message is the persisted form of one conversation turn. Rows are append
// only: never updated, never deleted.
type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID        int64  `bun:"id,pk,autoincrement"`
	SessionID string `bun:"chat_id,notnull"`
	Owner     string `bun:"username,notnull"`
	Role      string `bun:"role,notnull"`
	Content   string `bun:"content,notnull"`
	Timestamp string `bun:"timestamp,notnull"`
}

// Store persists conversation turns keyed by owner and session id.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the messages table and its lookup index.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Message)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create messages table: %v", err)
	}
	_, err := s.db.NewCreateIndex().
		Model((*Message)(nil)).
		Index("idx_messages_owner_session").
		IfNotExists().
		Column("username", "chat_id", "timestamp").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create messages index: %v", err)
	}
	return nil
}

// Append stores one turn. The session id must be a version-4 UUID and the
// role must be one of the known roles.
func (s *Store) Append(ctx context.Context, owner, sessionID string, role models.Role, content, timestamp string) error {
	if owner == "" {
		return fmt.Errorf("owner must not be empty")
	}
	if err := helper.ValidateSessionID(sessionID); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("unknown message role: %q", role)
	}

	msg := &Message{
		SessionID: sessionID,
		Owner:     owner,
		Role:      string(role),
		Content:   content,
		Timestamp: timestamp,
	}
	if _, err := s.db.NewInsert().Model(msg).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store message: %v", err)
	}
	return nil
}

// ListSession returns all messages of one conversation in timestamp order.
// An unknown session id yields an empty conversation, not an error.
func (s *Store) ListSession(ctx context.Context, owner, sessionID string) ([]models.Message, error) {
	if err := helper.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	var rows []Message
	err := s.db.NewSelect().
		Model(&rows).
		Where("username = ?", owner).
		Where("chat_id = ?", sessionID).
		Order("timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list session messages: %v", err)
	}

	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toModel(row))
	}
	return messages, nil
}

// ListSummaries returns one summary per session the owner has, oldest
// session first. All sessions are materialized from a single ordered query,
// grouped by session id in one pass; the summary carries the earliest
// message's role and timestamp plus a snippet of its content.
func (s *Store) ListSummaries(ctx context.Context, owner string) ([]models.ConversationSummary, error) {
	var rows []Message
	err := s.db.NewSelect().
		Model(&rows).
		Column("chat_id", "role", "content", "timestamp").
		Where("username = ?", owner).
		Order("timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %v", err)
	}

	seen := make(map[string]bool, len(rows))
	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		if seen[row.SessionID] {
			continue
		}
		seen[row.SessionID] = true
		summaries = append(summaries, models.ConversationSummary{
			SessionID: row.SessionID,
			Role:      models.Role(row.Role),
			Content:   helper.Truncate(row.Content, models.SnippetLength),
			Timestamp: row.Timestamp,
		})
	}
	return summaries, nil
}

func toModel(row Message) models.Message {
	return models.Message{
		ID:        row.ID,
		SessionID: row.SessionID,
		Owner:     row.Owner,
		Role:      models.Role(row.Role),
		Content:   row.Content,
		Timestamp: row.Timestamp,
	}
}
