package rag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chat/internal/models"
	"document-chat/internal/rag"
	"document-chat/internal/vectorstore"
)

const testSession = "11111111-1111-4111-8111-111111111111"

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

type fakeIndex struct {
	results    []vectorstore.Result
	err        error
	lastFilter vectorstore.Filter
	lastTopK   int
}

func (f *fakeIndex) Upsert(ctx context.Context, entries []vectorstore.Entry) error { return nil }

func (f *fakeIndex) Search(ctx context.Context, embedding []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Result, error) {
	f.lastFilter = filter
	f.lastTopK = topK
	return f.results, f.err
}

func (f *fakeIndex) Delete(ctx context.Context, filter vectorstore.Filter) error { return nil }

type fakeGenerator struct {
	answer     string
	err        error
	lastPrompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type recordedTurn struct {
	owner     string
	sessionID string
	role      models.Role
	content   string
	timestamp string
}

type fakeTurns struct {
	turns []recordedTurn
	err   error
}

func (f *fakeTurns) Append(ctx context.Context, owner, sessionID string, role models.Role, content, timestamp string) error {
	if f.err != nil {
		return f.err
	}
	f.turns = append(f.turns, recordedTurn{owner, sessionID, role, content, timestamp})
	return nil
}

func newEngine(index *fakeIndex, embedder *fakeEmbedder, generator *fakeGenerator, turns *fakeTurns) *rag.Engine {
	return rag.NewEngine(index, embedder, generator, turns)
}

func validRequest() rag.Request {
	return rag.Request{
		Question:  "What is in the document?",
		Owner:     "alice",
		SessionID: testSession,
		TopK:      3,
	}
}

func TestAnswerHappyPath(t *testing.T) {
	index := &fakeIndex{results: []vectorstore.Result{
		{Entry: vectorstore.Entry{ID: "c1", Content: "relevant chunk"}, Similarity: 0.9},
	}}
	generator := &fakeGenerator{answer: "the document is about chunks"}
	turns := &fakeTurns{}

	engine := newEngine(index, &fakeEmbedder{}, generator, turns)
	answer, err := engine.Answer(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "the document is about chunks", answer)

	assert.Contains(t, generator.lastPrompt, "relevant chunk")
	assert.Contains(t, generator.lastPrompt, "What is in the document?")
	assert.Equal(t, 3, index.lastTopK)
}

func TestAnswerTopKBounds(t *testing.T) {
	engine := newEngine(&fakeIndex{}, &fakeEmbedder{}, &fakeGenerator{answer: "ok"}, &fakeTurns{})

	for _, topK := range []int{0, -1, 11, 100} {
		req := validRequest()
		req.TopK = topK
		_, err := engine.Answer(context.Background(), req)
		assert.ErrorIs(t, err, models.ErrInvalidRequest, "top_k=%d must be rejected", topK)
	}

	for _, topK := range []int{1, 10} {
		req := validRequest()
		req.TopK = topK
		_, err := engine.Answer(context.Background(), req)
		assert.NoError(t, err, "top_k=%d must be accepted", topK)
	}
}

func TestAnswerSessionIDValidation(t *testing.T) {
	engine := newEngine(&fakeIndex{}, &fakeEmbedder{}, &fakeGenerator{answer: "ok"}, &fakeTurns{})

	for _, sessionID := range []string{
		"",
		"not-a-uuid",
		"e8a6cd36-86f9-11ee-b9d1-0242ac120002", // version 1
	} {
		req := validRequest()
		req.SessionID = sessionID
		_, err := engine.Answer(context.Background(), req)
		assert.ErrorIs(t, err, models.ErrInvalidRequest, "session id %q must be rejected", sessionID)
	}
}

func TestAnswerFilterIsOwnerScoped(t *testing.T) {
	index := &fakeIndex{}
	engine := newEngine(index, &fakeEmbedder{}, &fakeGenerator{answer: "ok"}, &fakeTurns{})

	_, err := engine.Answer(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "alice", index.lastFilter[models.OwnerKey])
	assert.NotContains(t, index.lastFilter, models.SessionKey)

	req := validRequest()
	req.SessionScoped = true
	_, err = engine.Answer(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, testSession, index.lastFilter[models.SessionKey])
}

func TestAnswerDegradedOnGeneratorFailure(t *testing.T) {
	turns := &fakeTurns{}
	engine := newEngine(&fakeIndex{}, &fakeEmbedder{}, &fakeGenerator{err: errors.New("provider quota exceeded")}, turns)

	answer, err := engine.Answer(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.DegradedAnswer, answer)

	// Both turns are persisted even on the degraded path.
	require.Len(t, turns.turns, 2)
	assert.Equal(t, models.DegradedAnswer, turns.turns[1].content)
}

func TestAnswerDegradedOnEmbeddingFailure(t *testing.T) {
	engine := newEngine(&fakeIndex{}, &fakeEmbedder{err: errors.New("embedding down")}, &fakeGenerator{answer: "unused"}, &fakeTurns{})

	answer, err := engine.Answer(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.DegradedAnswer, answer)
}

func TestAnswerDegradedOnSearchFailure(t *testing.T) {
	engine := newEngine(&fakeIndex{err: errors.New("index unreachable")}, &fakeEmbedder{}, &fakeGenerator{answer: "unused"}, &fakeTurns{})

	answer, err := engine.Answer(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.DegradedAnswer, answer)
}

func TestAnswerTurnOrdering(t *testing.T) {
	turns := &fakeTurns{}
	engine := newEngine(&fakeIndex{}, &fakeEmbedder{}, &fakeGenerator{answer: "because"}, turns)

	_, err := engine.Answer(context.Background(), validRequest())
	require.NoError(t, err)

	require.Len(t, turns.turns, 2)
	user, assistant := turns.turns[0], turns.turns[1]
	assert.Equal(t, models.RoleUser, user.role)
	assert.Equal(t, models.RoleAssistant, assistant.role)
	assert.Equal(t, "What is in the document?", user.content)
	assert.Equal(t, "because", assistant.content)
	assert.Equal(t, testSession, user.sessionID)
	assert.LessOrEqual(t, user.timestamp, assistant.timestamp)
}

func TestAnswerSurvivesPersistenceFailure(t *testing.T) {
	engine := newEngine(&fakeIndex{}, &fakeEmbedder{}, &fakeGenerator{answer: "still here"}, &fakeTurns{err: errors.New("db down")})

	answer, err := engine.Answer(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "still here", answer)
}

func TestAnswerEmptyContextIsNotAnError(t *testing.T) {
	generator := &fakeGenerator{answer: "no idea"}
	engine := newEngine(&fakeIndex{results: nil}, &fakeEmbedder{}, generator, &fakeTurns{})

	answer, err := engine.Answer(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "no idea", answer)
}
