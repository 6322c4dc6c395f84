package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// AnswerCache stores generated answers keyed by question, context and format.
type AnswerCache interface {
	// GetAnswer returns nil, nil on a miss.
	GetAnswer(ctx context.Context, key string) (*Answer, error)

	SetAnswer(ctx context.Context, key string, answer *Answer, ttl time.Duration) error

	Close() error
}

// Answer is a cached question answer.
type Answer struct {
	Answer    string    `json:"answer"`
	Format    string    `json:"format"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Key derives a stable cache key. Questions differing only in surrounding
// whitespace or letter case share a key.
func Key(question, contextText, format string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(question))))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(contextText)))
	h.Write([]byte{0})
	h.Write([]byte(format))
	return hex.EncodeToString(h.Sum(nil))
}
