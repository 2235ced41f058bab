package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"document-chat/internal/helper"
	"document-chat/internal/models"
	"document-chat/internal/vectorstore"
)

const (
	// Bounds on the number of retrieved chunks, part of the query contract.
	MinTopK = 1
	MaxTopK = 10

	DefaultTopK = 3
)

// Embedder turns a question into a query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator invokes the generative model with a composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Turns is the slice of the conversation store the engine writes to.
type Turns interface {
	Append(ctx context.Context, owner, sessionID string, role models.Role, content, timestamp string) error
}

// Request is one question asked by one owner within one session.
type Request struct {
	Question  string
	Owner     string
	SessionID string
	TopK      int

	// SessionScoped restricts retrieval to chunks ingested under this
	// session. Default is retrieval over all of the owner's documents.
	SessionScoped bool
}

// Engine answers questions over the owner's indexed documents and records
// both turns of the exchange.
type Engine struct {
	index     vectorstore.Index
	embedder  Embedder
	generator Generator
	turns     Turns
}

func NewEngine(index vectorstore.Index, embedder Embedder, generator Generator, turns Turns) *Engine {
	return &Engine{
		index:     index,
		embedder:  embedder,
		generator: generator,
		turns:     turns,
	}
}

// Answer retrieves context scoped to the asking owner, invokes the model and
// persists the exchange. Provider failures never propagate: the caller always
// receives an answer string, degraded if necessary. Persistence failures are
// logged but do not mask an already-computed answer.
func (e *Engine) Answer(ctx context.Context, req Request) (string, error) {
	if err := e.validate(req); err != nil {
		return "", err
	}

	askedAt := time.Now().UTC()

	answer := e.retrieveAndGenerate(ctx, req)

	answeredAt := time.Now().UTC()
	if answeredAt.Before(askedAt) {
		answeredAt = askedAt
	}

	// History is best-effort: the answer is already computed, losing it
	// would be worse than losing the transcript.
	if err := e.turns.Append(ctx, req.Owner, req.SessionID, models.RoleUser, req.Question, askedAt.Format(models.TimestampLayout)); err != nil {
		log.Error().Err(err).Str("owner", req.Owner).Str("chat_id", req.SessionID).Msg("Failed to persist user turn")
	}
	if err := e.turns.Append(ctx, req.Owner, req.SessionID, models.RoleAssistant, answer, answeredAt.Format(models.TimestampLayout)); err != nil {
		log.Error().Err(err).Str("owner", req.Owner).Str("chat_id", req.SessionID).Msg("Failed to persist assistant turn")
	}

	return answer, nil
}

func (e *Engine) validate(req Request) error {
	if req.Owner == "" {
		return fmt.Errorf("%w: missing owner identity", models.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Question) == "" {
		return fmt.Errorf("%w: question must not be empty", models.ErrInvalidRequest)
	}
	if req.TopK < MinTopK || req.TopK > MaxTopK {
		return fmt.Errorf("%w: top_k must be between %d and %d, got %d", models.ErrInvalidRequest, MinTopK, MaxTopK, req.TopK)
	}
	if err := helper.ValidateSessionID(req.SessionID); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	return nil
}

// retrieveAndGenerate runs the retrieval and generation steps. Any failure
// here is absorbed into the degraded answer.
func (e *Engine) retrieveAndGenerate(ctx context.Context, req Request) string {
	sessionScope := ""
	if req.SessionScoped {
		sessionScope = req.SessionID
	}
	filter := vectorstore.OwnerFilter(req.Owner, sessionScope)

	log.Debug().Interface("filter", filter).Int("top_k", req.TopK).Msg("Retrieving context")

	queryEmbedding, err := e.embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		log.Error().Err(err).Msg("Error embedding question")
		return models.DegradedAnswer
	}

	results, err := e.index.Search(ctx, queryEmbedding, req.TopK, filter)
	if err != nil {
		log.Error().Err(err).Msg("Error searching index")
		return models.DegradedAnswer
	}

	var contextText strings.Builder
	for _, result := range results {
		contextText.WriteString(result.Content + "\n\n")
	}

	prompt := fmt.Sprintf(models.AnswerPromptTemplate, contextText.String(), req.Question)

	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("Error generating answer")
		return models.DegradedAnswer
	}
	return answer
}
