// Package models defines the core data types for tome.
package models

import "time"

// Role indicates the message author type.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation entry. Messages are immutable once
// appended to a session.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is a durable, key-addressed conversation thread.
//
// The message sequence is bounded: when it exceeds the configured history
// limit the oldest entries are dropped first. The JSON shape below is also
// the persisted storage shape, so field names are part of the storage
// contract.
type Session struct {
	// Key is the opaque caller-supplied session identifier.
	Key string `json:"-"`

	// Messages is the conversation history in chronological order.
	Messages []Message `json:"messages"`

	// ModelID is the model selected for this session, empty for the default.
	ModelID string `json:"modelId,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Messages = make([]Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	return &clone
}
