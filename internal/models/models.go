package models

// DocumentChunk is a chunk stamped with tenant metadata, ready for indexing.
// Owner is mandatory: a chunk without an owner must never reach the index.
type DocumentChunk struct {
	Content    string
	Owner      string
	DocumentID string
	FileName   string
	SessionID  string
	PageNumber int
	ChunkID    int
	Timestamp  string
}

// Role is the sender of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one turn in a conversation.
type Message struct {
	ID        int64  `json:"id,omitempty"`
	SessionID string `json:"chat_id"`
	Owner     string `json:"username"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Conversation is the ordered sequence of messages sharing one session id.
type Conversation struct {
	Messages []Message `json:"messages"`
}

// SnippetLength is the number of characters of the first message kept in a summary.
const SnippetLength = 30

// ConversationSummary is one row per session: the earliest message's role and
// timestamp plus a short snippet of its content.
type ConversationSummary struct {
	SessionID string `json:"chat_id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// IngestionSummary reports the outcome of a document ingestion.
type IngestionSummary struct {
	Status     string `json:"status"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
}

// TimestampLayout is a fixed-width UTC layout so lexical order equals
// chronological order when timestamps are compared as strings.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"
