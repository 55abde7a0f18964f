// Package store persists chat sessions, messages and attachments.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Session is one persisted conversation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one persisted turn entry, ordered by creation.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is a compressed image tied to a message.
type Attachment struct {
	MessageID string `json:"message_id"`
	Data      []byte `json:"data"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	ByteSize  int    `json:"byte_size"`
}

// Store is the persistence boundary the chat controller talks to.
type Store interface {
	CreateSession(ctx context.Context, userID string) (*Session, error)
	// GetSession returns ErrSessionNotFound when the id does not
	// exist or belongs to another user.
	GetSession(ctx context.Context, id, userID string) (*Session, error)
	// TouchSession bumps updated_at; a non-empty title also sets the
	// session title.
	TouchSession(ctx context.Context, id, title string) error
	ListSessions(ctx context.Context, userID string, limit int) ([]Session, error)

	CreateMessage(ctx context.Context, sessionID, role, content string) (*Message, error)
	UpdateMessageContent(ctx context.Context, id, content string) error
	// RecentMessages returns the last n messages of the session,
	// oldest first.
	RecentMessages(ctx context.Context, sessionID string, n int) ([]Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)

	AddAttachment(ctx context.Context, att Attachment) error
	Attachments(ctx context.Context, messageID string) ([]Attachment, error)

	// PruneIdleSessions deletes sessions not updated since cutoff and
	// returns how many were removed.
	PruneIdleSessions(ctx context.Context, cutoff time.Time) (int, error)
}
