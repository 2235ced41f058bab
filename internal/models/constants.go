package models

// Metadata keys attached to every indexed chunk. OwnerKey is the tenant
// isolation key: every search filter must carry it.
const (
	OwnerKey      = "user_id"
	SessionKey    = "chat_id"
	FileNameKey   = "file_name"
	DocumentIDKey = "document_id"
	PageNumberKey = "page_number"
	ChunkIDKey    = "chunk_id"
	TimestampKey  = "timestamp"
)

var (
	// AnswerPromptTemplate grounds the model on retrieved context only.
	// Expects the concatenated context followed by the question.
	AnswerPromptTemplate = `Answer the question based only on the context provided below:
Context: %s

Question: %s
Answer:`

	// DegradedAnswer is returned to the user when embedding, retrieval or
	// generation fails. The chat endpoint never surfaces provider errors.
	DegradedAnswer = "An error occurred while processing your request. Please try again later."
)
