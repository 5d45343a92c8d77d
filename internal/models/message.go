package models

// Message represents a chat message between the two household members.
type Message struct {
	// ID is the unique identifier for the message (UUID format).
	ID string

	// SenderID and ReceiverID reference the two users.
	SenderID   string
	ReceiverID string

	// Content is the raw message text.
	Content string

	// Classification is attached exactly once after the classifier responds,
	// nil until then and never changed afterwards.
	Classification *Classification

	// CreatedAt is the Unix timestamp when the message was persisted.
	CreatedAt int64
}
