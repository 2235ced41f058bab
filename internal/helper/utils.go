package helper

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"document-chat/internal/models"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// ValidateSessionID checks that id is a syntactically valid version-4 UUID.
func ValidateSessionID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q is not a UUID", models.ErrInvalidSessionID, id)
	}
	if u.Version() != 4 {
		return fmt.Errorf("%w: %q is UUID version %d, want version 4", models.ErrInvalidSessionID, id, u.Version())
	}
	return nil
}

// Truncate returns at most n characters of s. Content is cut on rune
// boundaries so multi-byte text is never split mid-character.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}
