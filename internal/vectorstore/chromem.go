package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/philippgille/chromem-go"

	"document-chat/internal/models"
)

const compress = false

// ChromemIndex implements Index on top of an embedded chromem-go collection.
// Tenant isolation relies on the metadata filter passed to every query;
// ownerless chunks are rejected at the write boundary so they can never be
// retrieved.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	dbPath     string
}

// NewChromemIndex opens (or creates) a persistent chromem database and its
// collection. With inMemory set, nothing is written to disk.
func NewChromemIndex(dbPath, collectionName string, inMemory bool) (*ChromemIndex, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	// Embeddings are always supplied by the caller, so no embedding func is
	// registered on the collection.
	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &ChromemIndex{
		db:         db,
		collection: collection,
		dbPath:     dbPath,
	}, nil
}

// Upsert adds embedded chunks to the collection. Chunks without an owner are
// rejected before anything is written.
func (m *ChromemIndex) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		if e.Metadata[models.OwnerKey] == "" {
			return fmt.Errorf("refusing to index chunk %q without an owner", e.ID)
		}
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Content:   e.Content,
			Metadata:  e.Metadata,
			Embedding: e.Embedding,
		})
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
	}
	return nil
}

// Search runs a filtered similarity query. Results are ordered by descending
// similarity with ties broken by document id for deterministic output.
func (m *ChromemIndex) Search(ctx context.Context, queryEmbedding []float32, topK int, filter Filter) ([]Result, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	count := m.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       topK,
		Where:          map[string]string(filter),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, Result{
			Entry: Entry{
				ID:        r.ID,
				Content:   r.Content,
				Metadata:  r.Metadata,
				Embedding: r.Embedding,
			},
			Similarity: r.Similarity,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes every chunk matching the filter.
func (m *ChromemIndex) Delete(ctx context.Context, filter Filter) error {
	if err := validateFilter(filter); err != nil {
		return err
	}
	if err := m.collection.Delete(ctx, map[string]string(filter), nil); err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
	}
	return nil
}
