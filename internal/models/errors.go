package models

import (
	"errors"
	"fmt"
)

// Error taxonomy for the ingestion and query paths. Callers match with
// errors.Is; the HTTP layer maps each sentinel to a status code.
var (
	// ErrInvalidRequest marks a caller validation failure on the query path,
	// e.g. an out-of-range top_k or a malformed session id.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidSessionID marks a session id that is not a version-4 UUID.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrInvalidUpload marks an upload rejected before extraction
	// (too large, wrong content type).
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrUploadTooLarge marks an upload over the configured size limit. It is
	// a refinement of ErrInvalidUpload so the HTTP layer can answer 413.
	ErrUploadTooLarge = fmt.Errorf("%w: file too large", ErrInvalidUpload)

	// ErrUnsupportedDocument marks a file whose content could not be parsed.
	ErrUnsupportedDocument = errors.New("unsupported document")

	// ErrIndexWrite marks a failed write to the vector index. The caller must
	// not assume partial writes were rolled back.
	ErrIndexWrite = errors.New("index write failed")
)
