package vectorstore

import (
	"context"
	"fmt"

	"document-chat/internal/models"
)

// Filter is an exact-match conjunction over chunk metadata fields. A filter
// used for search must always carry the owner key; retrieval scoped to a
// single conversation adds the session key.
type Filter map[string]string

// Entry is an embedded chunk ready for indexing.
type Entry struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Result is a retrieved chunk with its similarity score.
type Result struct {
	Entry
	Similarity float32
}

// Index is the vector index capability consumed by ingestion and retrieval.
type Index interface {
	// Upsert writes embedded chunks. Best-effort: there is no cross-chunk
	// atomicity, and the caller must not assume partial writes committed.
	Upsert(ctx context.Context, entries []Entry) error

	// Search returns up to topK chunks matching the filter, ordered by
	// descending similarity. An empty or missing collection yields an empty
	// result, never an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int, filter Filter) ([]Result, error)

	// Delete removes all chunks matching the filter (whole-document or
	// whole-tenant purge).
	Delete(ctx context.Context, filter Filter) error
}

// OwnerFilter builds the retrieval filter for one owner, optionally scoped
// to a single session. The owner field is never optional.
func OwnerFilter(owner, sessionID string) Filter {
	f := Filter{models.OwnerKey: owner}
	if sessionID != "" {
		f[models.SessionKey] = sessionID
	}
	return f
}

func validateFilter(filter Filter) error {
	if filter[models.OwnerKey] == "" {
		return fmt.Errorf("search filter must include a non-empty %s", models.OwnerKey)
	}
	return nil
}
