// Package sessions persists per-session chat history and model choice.
package sessions

import (
	"context"

	"github.com/haasonsaas/tome/pkg/models"
)

// DefaultMaxMessages caps stored history per session. Appending beyond
// the cap evicts the oldest messages.
const DefaultMaxMessages = 20

// Store persists chat sessions keyed by session ID.
type Store interface {
	// Get returns the session for key. A key never seen before yields an
	// empty session, not an error.
	Get(ctx context.Context, key string) (*models.Session, error)

	// AppendMessage appends a message to the session's history, evicting
	// the oldest messages beyond the cap, and returns the updated
	// session.
	AppendMessage(ctx context.Context, key string, msg models.Message) (*models.Session, error)

	// SetModel records the session's model choice.
	SetModel(ctx context.Context, key, modelID string) error

	// Close releases backend resources.
	Close() error
}
