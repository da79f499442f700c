package model

import "time"

// Message status values. Status is monotonic: once a message is read it never
// becomes unread again.
const (
	StatusUnread = "unread"
	StatusRead   = "read"
)

// SystemSenderID is the reserved sender id for service-generated messages.
const SystemSenderID int64 = 0

// Message represents a stored message row. Content and FileURL are mutually
// extensible: a message may carry either or both.
type Message struct {
	ID       int64     `json:"id"`
	ChatID   int64     `json:"chat_id"`
	SenderID int64     `json:"sender_id"`
	Content  string    `json:"content,omitempty"`
	FileURL  string    `json:"file_url,omitempty"`
	Status   string    `json:"status"`
	SentAt   time.Time `json:"sent_at"`
}

// IsFile reports whether the message carries an uploaded file that must be
// cleaned up when the message goes away.
func (m *Message) IsFile() bool {
	return m.FileURL != ""
}

// ReactionKind is static reference data: a named reaction with its display
// glyph, seeded by the migrations.
type ReactionKind struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// ReactionAttachment is one user's reaction on a message, denormalized with
// the author display info the clients render.
type ReactionAttachment struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Reaction string `json:"reaction_name"`
	Avatar   string `json:"avatar"`
}
