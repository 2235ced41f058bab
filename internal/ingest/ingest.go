package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-chat/internal/chunker"
	"document-chat/internal/embedding"
	"document-chat/internal/helper"
	"document-chat/internal/models"
	"document-chat/internal/parser"
	"document-chat/internal/vectorstore"
)

// StatusProcessed is reported when a document made it into the index.
const StatusProcessed = "processed"

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".pptx": true,
	".xlsx": true,
	".ods":  true,
	".txt":  true,
}

// ExtractPages turns document bytes into page-ordered text. Swappable in
// tests; the default is the parser package.
type ExtractPages func(data []byte, filename string) ([]parser.Page, error)

// Options tune chunking and upload validation.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MaxFileSize  int64
}

// Request is one document upload to be indexed for one owner.
type Request struct {
	Data      []byte
	Filename  string
	Owner     string
	SessionID string
}

// Pipeline ingests uploaded documents: extract, chunk, stamp, embed, upsert.
// The pipeline is best-effort: chunks upserted before a mid-pipeline failure
// are not rolled back.
type Pipeline struct {
	index    vectorstore.Index
	embedder embeddings.Embedder
	extract  ExtractPages
	opts     Options
}

func NewPipeline(index vectorstore.Index, embedder embeddings.Embedder, opts Options) *Pipeline {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 20 << 20
	}
	return &Pipeline{
		index:    index,
		embedder: embedder,
		extract:  parser.Parse,
		opts:     opts,
	}
}

// WithExtractor overrides the page extractor.
func (p *Pipeline) WithExtractor(extract ExtractPages) *Pipeline {
	p.extract = extract
	return p
}

// Ingest validates the upload, extracts its text and indexes it for the
// owner. Validation failures surface before any chunking work happens.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (models.IngestionSummary, error) {
	var summary models.IngestionSummary

	if err := p.validate(req); err != nil {
		return summary, err
	}

	pages, err := p.extract(req.Data, req.Filename)
	if err != nil {
		return summary, err
	}

	meta := chunker.Metadata{
		Owner:      req.Owner,
		DocumentID: documentID(req.Data),
		FileName:   req.Filename,
		SessionID:  req.SessionID,
	}

	var chunks []models.DocumentChunk
	for _, page := range pages {
		chunks = append(chunks, chunker.ChunkPage(page.Content, page.Number, meta, p.opts.ChunkSize, p.opts.ChunkOverlap)...)
	}

	chunks, vectors, err := embedding.EmbedChunks(ctx, p.embedder, chunks)
	if err != nil {
		return summary, fmt.Errorf("%w: embedding failed: %v", models.ErrIndexWrite, err)
	}

	entries := make([]vectorstore.Entry, 0, len(chunks))
	for i, chunk := range chunks {
		entries = append(entries, vectorstore.Entry{
			ID:        fmt.Sprintf("%s-%d-%d", chunk.DocumentID, chunk.PageNumber, chunk.ChunkID),
			Content:   chunk.Content,
			Metadata:  chunkMetadata(chunk),
			Embedding: vectors[i],
		})
	}

	if err := p.index.Upsert(ctx, entries); err != nil {
		return summary, err
	}

	log.Info().
		Str("owner", req.Owner).
		Str("file_name", req.Filename).
		Int("pages", len(pages)).
		Int("chunks", len(entries)).
		Msg("Document ingested")

	summary = models.IngestionSummary{
		Status:     StatusProcessed,
		PageCount:  len(pages),
		ChunkCount: len(entries),
	}
	return summary, nil
}

func (p *Pipeline) validate(req Request) error {
	if req.Owner == "" {
		return fmt.Errorf("%w: missing owner identity", models.ErrInvalidUpload)
	}
	if len(req.Data) == 0 {
		return fmt.Errorf("%w: empty file", models.ErrInvalidUpload)
	}
	if int64(len(req.Data)) > p.opts.MaxFileSize {
		return fmt.Errorf("%w: file exceeds %d bytes", models.ErrUploadTooLarge, p.opts.MaxFileSize)
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: file type %q is not accepted", models.ErrInvalidUpload, ext)
	}
	if req.SessionID != "" {
		if err := helper.ValidateSessionID(req.SessionID); err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidUpload, err)
		}
	}
	return nil
}

func chunkMetadata(chunk models.DocumentChunk) map[string]string {
	meta := map[string]string{
		models.OwnerKey:      chunk.Owner,
		models.DocumentIDKey: chunk.DocumentID,
		models.FileNameKey:   chunk.FileName,
		models.PageNumberKey: fmt.Sprintf("%d", chunk.PageNumber),
		models.ChunkIDKey:    fmt.Sprintf("%d", chunk.ChunkID),
		models.TimestampKey:  chunk.Timestamp,
	}
	// Session scope is attached only when the upload asked for it.
	if chunk.SessionID != "" {
		meta[models.SessionKey] = chunk.SessionID
	}
	return meta
}

// documentID derives a content-addressed id for the uploaded bytes.
func documentID(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
