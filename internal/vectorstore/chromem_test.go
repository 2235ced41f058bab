package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chat/internal/models"
	"document-chat/internal/vectorstore"
)

func newTestIndex(t *testing.T) *vectorstore.ChromemIndex {
	t.Helper()
	index, err := vectorstore.NewChromemIndex("", "test_collection", true)
	require.NoError(t, err)
	return index
}

func entry(id, owner, session, content string, embedding []float32) vectorstore.Entry {
	meta := map[string]string{models.OwnerKey: owner}
	if session != "" {
		meta[models.SessionKey] = session
	}
	return vectorstore.Entry{ID: id, Content: content, Metadata: meta, Embedding: embedding}
}

func TestSearchEmptyCollection(t *testing.T) {
	index := newTestIndex(t)

	results, err := index.Search(context.Background(), []float32{1, 0, 0}, 3, vectorstore.OwnerFilter("alice", ""))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRequiresOwnerFilter(t *testing.T) {
	index := newTestIndex(t)

	_, err := index.Search(context.Background(), []float32{1, 0, 0}, 3, vectorstore.Filter{})
	assert.Error(t, err)

	_, err = index.Search(context.Background(), []float32{1, 0, 0}, 3, vectorstore.Filter{models.SessionKey: "x"})
	assert.Error(t, err)
}

func TestUpsertRejectsOwnerlessChunk(t *testing.T) {
	index := newTestIndex(t)

	err := index.Upsert(context.Background(), []vectorstore.Entry{
		{ID: "c1", Content: "orphan", Metadata: map[string]string{}, Embedding: []float32{1, 0, 0}},
	})
	assert.Error(t, err)
}

func TestTenantIsolation(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	err := index.Upsert(ctx, []vectorstore.Entry{
		entry("a1", "alice", "", "alice first", []float32{1, 0, 0}),
		entry("a2", "alice", "", "alice second", []float32{0, 1, 0}),
		entry("b1", "bob", "", "bob secret", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	// bob's chunk matches the query embedding exactly, but the filter is
	// scoped to alice.
	results, err := index.Search(ctx, []float32{1, 0, 0}, 2, vectorstore.OwnerFilter("alice", ""))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "alice", r.Metadata[models.OwnerKey])
		assert.NotEqual(t, "b1", r.ID)
	}
}

func TestSearchSessionScope(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	sessionA := "11111111-1111-4111-8111-111111111111"
	sessionB := "22222222-2222-4222-8222-222222222222"

	err := index.Upsert(ctx, []vectorstore.Entry{
		entry("s1", "alice", sessionA, "from session A", []float32{1, 0, 0}),
		entry("s2", "alice", sessionB, "from session B", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	results, err := index.Search(ctx, []float32{1, 0, 0}, 1, vectorstore.OwnerFilter("alice", sessionA))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].ID)
}

func TestSearchOrderedBySimilarity(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	err := index.Upsert(ctx, []vectorstore.Entry{
		entry("far", "alice", "", "far away", []float32{0, 1, 0}),
		entry("near", "alice", "", "close match", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	results, err := index.Search(ctx, []float32{1, 0, 0}, 2, vectorstore.OwnerFilter("alice", ""))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].ID)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestSearchClampsTopKToCollectionSize(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	err := index.Upsert(ctx, []vectorstore.Entry{
		entry("c1", "alice", "", "one", []float32{1, 0, 0}),
		entry("c2", "alice", "", "two", []float32{0, 1, 0}),
	})
	require.NoError(t, err)

	results, err := index.Search(ctx, []float32{1, 0, 0}, 10, vectorstore.OwnerFilter("alice", ""))
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDeleteByFilter(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	err := index.Upsert(ctx, []vectorstore.Entry{
		entry("d1", "alice", "", "to purge", []float32{1, 0, 0}),
		entry("d2", "bob", "", "to keep", []float32{0, 1, 0}),
	})
	require.NoError(t, err)

	require.NoError(t, index.Delete(ctx, vectorstore.OwnerFilter("alice", "")))

	results, err := index.Search(ctx, []float32{1, 0, 0}, 1, vectorstore.OwnerFilter("bob", ""))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d2", results[0].ID)
}

func TestOwnerFilter(t *testing.T) {
	f := vectorstore.OwnerFilter("alice", "")
	assert.Equal(t, vectorstore.Filter{models.OwnerKey: "alice"}, f)

	f = vectorstore.OwnerFilter("alice", "sess")
	assert.Equal(t, "sess", f[models.SessionKey])
}
