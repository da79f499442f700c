package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"messly-backend/internal/model"
	"messly-backend/internal/observability"
	"messly-backend/internal/repository"
)

var (
	ErrChatNotFound     = errors.New("chat not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrReactionNotFound = errors.New("reaction not found")
	ErrNotMember        = errors.New("not a member of this chat")
	ErrNotAdmin         = errors.New("not an admin of this chat")
)

// MessageStore is the persisted message collaborator.
type MessageStore interface {
	Create(ctx context.Context, chatID, senderID int64, content, fileURL, status string) (*model.Message, error)
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	MarkChatRead(ctx context.Context, chatID, excludingSender int64) ([]int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteByChat(ctx context.Context, chatID int64) ([]string, error)
}

// ReactionStore is the reaction attachment collaborator.
type ReactionStore interface {
	GetKindByName(ctx context.Context, name string) (*model.ReactionKind, error)
	Toggle(ctx context.Context, messageID, userID, kindID int64) ([]model.ReactionAttachment, error)
}

// MembershipStore answers chat lookup and membership questions.
type MembershipStore interface {
	GetByID(ctx context.Context, chatID int64) (*model.Chat, error)
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// Broadcaster is the live fan-out side of the room registry.
type Broadcaster interface {
	PresentUsers(chatID int64) map[int64]struct{}
	Broadcast(chatID int64, payload model.Envelope)
}

// BlobDeleter removes uploaded files, best-effort.
type BlobDeleter interface {
	DeleteFile(ctx context.Context, fileURL, token string)
}

// DeliveryService drives every message state transition and emits the
// matching broadcast once the change is committed. A broadcast never precedes
// its persistence write: if the store rejects a transition, nothing goes out
// and the live view stays aligned with durable state.
//
// Read state is presence-based, not acknowledgment-based: a message becomes
// read as soon as any user other than its sender is present in the room, and
// never reverts.
type DeliveryService struct {
	messages  MessageStore
	reactions ReactionStore
	chats     MembershipStore
	registry  Broadcaster
	blobs     BlobDeleter
}

func NewDeliveryService(messages MessageStore, reactions ReactionStore, chats MembershipStore, registry Broadcaster, blobs BlobDeleter) *DeliveryService {
	return &DeliveryService{
		messages:  messages,
		reactions: reactions,
		chats:     chats,
		registry:  registry,
		blobs:     blobs,
	}
}

// SendText persists a text message unread, re-evaluates presence, and
// announces it. When another user is present by the time the row is
// committed, the escalation to read is folded into the single announcement;
// no separate read_receipts event is emitted for a send-time escalation.
func (s *DeliveryService) SendText(ctx context.Context, chatID int64, sender *model.User, content string) error {
	msg, err := s.messages.Create(ctx, chatID, sender.ID, content, "", model.StatusUnread)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	if err := s.escalateIfSeen(ctx, msg, sender.ID); err != nil {
		return err
	}

	s.registry.Broadcast(chatID, model.MessageEvent{
		ID:           msg.ID,
		Content:      msg.Content,
		Author:       sender.Username,
		AuthorAvatar: sender.AvatarURL(),
		SentAt:       msg.SentAt.UTC().Format(time.RFC3339),
		Status:       msg.Status,
	})
	observability.MessagesTotal.WithLabelValues("text").Inc()
	return nil
}

// SendFile persists a file message and announces it with the display filename
// and an is_image hint derived from the URL extension. Read escalation works
// exactly as for text messages.
func (s *DeliveryService) SendFile(ctx context.Context, chatID int64, sender *model.User, fileURL string) error {
	msg, err := s.messages.Create(ctx, chatID, sender.ID, "", fileURL, model.StatusUnread)
	if err != nil {
		return fmt.Errorf("create file message: %w", err)
	}
	if err := s.escalateIfSeen(ctx, msg, sender.ID); err != nil {
		return err
	}

	s.registry.Broadcast(chatID, model.MessageEvent{
		ID:           msg.ID,
		FileURL:      msg.FileURL,
		Filename:     fileDisplayName(msg.FileURL),
		IsImage:      isImageURL(msg.FileURL),
		Author:       sender.Username,
		AuthorAvatar: sender.AvatarURL(),
		SentAt:       msg.SentAt.UTC().Format(time.RFC3339),
		Status:       msg.Status,
	})
	observability.MessagesTotal.WithLabelValues("file").Inc()
	return nil
}

// escalateIfSeen re-evaluates presence after the message row is committed and
// flips it to read before its first broadcast when any user besides the
// sender is present. Sampling presence only after the commit closes the gap
// with a concurrent join: a joiner lands either before this check, which then
// sees them, or after the commit, in which case their own backlog pass sees
// the stored row. Either way the message ends up read.
func (s *DeliveryService) escalateIfSeen(ctx context.Context, msg *model.Message, senderID int64) error {
	for userID := range s.registry.PresentUsers(msg.ChatID) {
		if userID == senderID {
			continue
		}
		if err := s.messages.UpdateStatus(ctx, msg.ID, model.StatusRead); err != nil {
			return fmt.Errorf("escalate message %d: %w", msg.ID, err)
		}
		msg.Status = model.StatusRead
		return nil
	}
	return nil
}

// SendSystemMessage persists a message under the reserved system sender and
// announces it. System messages are stored unread for schema uniformity and
// never escalate to read at send time.
func (s *DeliveryService) SendSystemMessage(ctx context.Context, chatID int64, content string) error {
	if _, err := s.chats.GetByID(ctx, chatID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChatNotFound
		}
		return fmt.Errorf("load chat %d: %w", chatID, err)
	}

	msg, err := s.messages.Create(ctx, chatID, model.SystemSenderID, content, "", model.StatusUnread)
	if err != nil {
		return fmt.Errorf("create system message: %w", err)
	}

	s.registry.Broadcast(chatID, model.MessageEvent{
		ID:       msg.ID,
		Content:  msg.Content,
		IsSystem: true,
		SentAt:   msg.SentAt.UTC().Format(time.RFC3339),
		Status:   msg.Status,
	})
	observability.MessagesTotal.WithLabelValues("system").Inc()
	return nil
}

// MarkBacklogRead flips every unread message not sent by the joining user to
// read and announces the batch as one read_receipts event. Called once per
// room join, before any other traffic from that connection is handled. A
// backlog without unread messages produces no broadcast.
func (s *DeliveryService) MarkBacklogRead(ctx context.Context, chatID, userID int64) error {
	ids, err := s.messages.MarkChatRead(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("mark chat %d read: %w", chatID, err)
	}
	if len(ids) == 0 {
		return nil
	}
	s.registry.Broadcast(chatID, model.NewReadReceipts(ids))
	return nil
}

// ToggleReaction attaches the (message, user, kind) reaction, or detaches it
// when already present, then announces the message's full reaction list.
func (s *DeliveryService) ToggleReaction(ctx context.Context, messageID int64, user *model.User, kindName string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("load message %d: %w", messageID, err)
	}

	kind, err := s.reactions.GetKindByName(ctx, kindName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReactionNotFound
		}
		return fmt.Errorf("load reaction %q: %w", kindName, err)
	}

	list, err := s.reactions.Toggle(ctx, messageID, user.ID, kind.ID)
	if err != nil {
		return fmt.Errorf("toggle reaction: %w", err)
	}

	s.registry.Broadcast(msg.ChatID, model.NewReactionUpdate(messageID, list))
	return nil
}

// ClearHistory deletes every message of a chat on behalf of its creator or an
// admin member, removes the associated files best-effort, and tells the room
// to drop its history.
func (s *DeliveryService) ClearHistory(ctx context.Context, chatID int64, user *model.User, token string) error {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChatNotFound
		}
		return fmt.Errorf("load chat %d: %w", chatID, err)
	}

	if chat.CreatorID != user.ID {
		admin, err := s.chats.IsAdmin(ctx, chatID, user.ID)
		if err != nil {
			return fmt.Errorf("check admin: %w", err)
		}
		if !admin {
			return ErrNotAdmin
		}
	}

	fileURLs, err := s.messages.DeleteByChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("clear chat %d: %w", chatID, err)
	}
	for _, u := range fileURLs {
		s.blobs.DeleteFile(ctx, u, token)
	}

	s.registry.Broadcast(chatID, model.NewChatHistoryCleared(chatID))
	return nil
}

// DeleteMessage removes one message on behalf of a chat member, deletes its
// file best-effort, and announces the deletion to the room.
func (s *DeliveryService) DeleteMessage(ctx context.Context, messageID int64, user *model.User, token string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("load message %d: %w", messageID, err)
	}

	member, err := s.chats.IsMember(ctx, msg.ChatID, user.ID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return ErrNotMember
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}

	if msg.IsFile() {
		s.blobs.DeleteFile(ctx, msg.FileURL, token)
	}

	s.registry.Broadcast(msg.ChatID, model.NewMessageDeleted(messageID))
	return nil
}

// fileDisplayName strips the upload prefix the website service prepends to
// stored filenames (three underscore-separated segments).
func fileDisplayName(fileURL string) string {
	base := path.Base(fileURL)
	parts := strings.SplitN(base, "_", 4)
	return parts[len(parts)-1]
}

func isImageURL(fileURL string) bool {
	return strings.HasPrefix(mime.TypeByExtension(path.Ext(fileURL)), "image/")
}
