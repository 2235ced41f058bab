package chunker

import (
	"time"

	"document-chat/internal/models"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Split cuts content into overlapping chunks of at most maxChars runes.
// A cut prefers a natural boundary (space, newline, sentence end) within the
// last 10% of the window and falls back to a hard cut. The next chunk starts
// exactly overlapChars runes before the previous cut, so consecutive chunks
// always share overlapChars runes of context. Split is pure: the same input
// yields the same output.
func Split(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		maxChars = defaultChunkSize
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}
	if len(content) == 0 {
		return nil
	}

	runes := []rune(content)
	contentLen := len(runes)
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < contentLen {
		end := min(start+maxChars, contentLen)

		// Look for a space or punctuation within the last 10% of the chunk
		if end < contentLen {
			lookBack := min(maxChars/10, end-start-1)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		chunks = append(chunks, string(runes[start:end]))
		if end == contentLen {
			break
		}

		next := end - overlapChars
		if next <= start {
			next = start + maxChars - overlapChars
		}
		start = next
	}

	return chunks
}

// Metadata identifies who a document belongs to and where it came from.
// SessionID is propagated from the ingestion request and may be empty.
type Metadata struct {
	Owner      string
	DocumentID string
	FileName   string
	SessionID  string
}

// ChunkPage splits one page of extracted text and stamps each chunk with the
// document metadata and an ingestion timestamp. Stamping has no side effects;
// nothing is written to storage here.
func ChunkPage(content string, pageNumber int, meta Metadata, maxChars, overlapChars int) []models.DocumentChunk {
	now := time.Now().UTC().Format(models.TimestampLayout)

	var chunks []models.DocumentChunk
	for i, chunkString := range Split(content, maxChars, overlapChars) {
		chunks = append(chunks, models.DocumentChunk{
			Content:    chunkString,
			Owner:      meta.Owner,
			DocumentID: meta.DocumentID,
			FileName:   meta.FileName,
			SessionID:  meta.SessionID,
			PageNumber: pageNumber,
			ChunkID:    i + 1,
			Timestamp:  now,
		})
	}
	return chunks
}
