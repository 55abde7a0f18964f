package channel

import "context"

// Message represents an inbound chat turn from a channel
type Message struct {
	ID        string
	Channel   string
	UserID    string
	SessionID string
	Content   string
	Timestamp int64
}

// Response represents a reply to send back to a channel
type Response struct {
	SessionID string
	Content   string
}

// Adapter is the interface for chat channel adapters
type Adapter interface {
	// Start starts the channel adapter
	Start(ctx context.Context) error

	// Stop stops the channel adapter
	Stop() error

	// SendMessage sends a reply to the channel
	SendMessage(userID string, resp *Response) error

	// Incoming returns a channel of incoming messages
	Incoming() <-chan *Message

	// Name returns the name of the channel adapter
	Name() string

	// IsEnabled returns whether the channel is enabled
	IsEnabled() bool
}
