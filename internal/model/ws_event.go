package model

// Envelope is a payload broadcast to every connection of one chat room. The
// set of envelope kinds is closed: only types in this package implement it.
// Tagged envelopes carry a "type" discriminator; the new-message shape is
// deliberately untagged for backward compatibility with existing clients.
type Envelope interface {
	envelope()
}

// Envelope type discriminators.
const (
	TypeReadReceipts       = "read_receipts"
	TypeChatHistoryCleared = "chat_history_cleared"
	TypeMessageDeleted     = "message_deleted"
	TypeReactionUpdate     = "reaction_update"
)

// MessageEvent announces a new text or file message. It is the untagged
// default shape: no "type" field on the wire.
type MessageEvent struct {
	ID           int64  `json:"id"`
	Content      string `json:"content,omitempty"`
	FileURL      string `json:"file_url,omitempty"`
	Filename     string `json:"filename,omitempty"`
	IsImage      bool   `json:"is_image,omitempty"`
	Author       string `json:"author,omitempty"`
	AuthorAvatar string `json:"author_avatar,omitempty"`
	IsSystem     bool   `json:"is_system,omitempty"`
	SentAt       string `json:"sent_at"`
	Status       string `json:"status"`
}

// ReadReceiptsEvent lists messages that just transitioned to read.
type ReadReceiptsEvent struct {
	Type           string  `json:"type"`
	ReadMessageIDs []int64 `json:"read_message_ids"`
}

func NewReadReceipts(ids []int64) ReadReceiptsEvent {
	return ReadReceiptsEvent{Type: TypeReadReceipts, ReadMessageIDs: ids}
}

// ChatHistoryClearedEvent tells clients to drop their local message list.
type ChatHistoryClearedEvent struct {
	Type    string `json:"type"`
	ChatID  int64  `json:"chat_id"`
	Message string `json:"message"`
}

func NewChatHistoryCleared(chatID int64) ChatHistoryClearedEvent {
	return ChatHistoryClearedEvent{
		Type:    TypeChatHistoryCleared,
		ChatID:  chatID,
		Message: "Chat history has been cleared by the admin",
	}
}

// MessageDeletedEvent removes a single message from client views.
type MessageDeletedEvent struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
}

func NewMessageDeleted(messageID int64) MessageDeletedEvent {
	return MessageDeletedEvent{Type: TypeMessageDeleted, MessageID: messageID}
}

// ReactionUpdateEvent carries the full current reaction list for a message,
// not a delta, so clients stay correct even if they missed earlier updates.
type ReactionUpdateEvent struct {
	Type      string               `json:"type"`
	MessageID int64                `json:"message_id"`
	Reactions []ReactionAttachment `json:"reactions"`
}

func NewReactionUpdate(messageID int64, reactions []ReactionAttachment) ReactionUpdateEvent {
	if reactions == nil {
		reactions = []ReactionAttachment{}
	}
	return ReactionUpdateEvent{Type: TypeReactionUpdate, MessageID: messageID, Reactions: reactions}
}

func (MessageEvent) envelope()            {}
func (ReadReceiptsEvent) envelope()       {}
func (ChatHistoryClearedEvent) envelope() {}
func (MessageDeletedEvent) envelope()     {}
func (ReactionUpdateEvent) envelope()     {}

// InboundFrame is a client-to-server websocket frame. A frame may carry text
// content, a file reference, or both; frames with neither are ignored.
type InboundFrame struct {
	Content string `json:"content"`
	FileURL string `json:"file_url"`
}
