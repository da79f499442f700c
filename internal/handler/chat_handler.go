package handler

import (
	"errors"
	"log"

	"messly-backend/internal/model"
	"messly-backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ChatHandler exposes the one-shot management actions. Each action runs the
// same delivery transition as a live-loop event and therefore produces the
// same broadcast.
type ChatHandler struct {
	delivery *service.DeliveryService
	validate *validator.Validate
}

func NewChatHandler(delivery *service.DeliveryService) *ChatHandler {
	return &ChatHandler{delivery: delivery, validate: validator.New()}
}

// SystemMessageRequest is the service-to-service announcement payload.
type SystemMessageRequest struct {
	ChatID  int64  `json:"chat_id" validate:"required,gt=0"`
	Content string `json:"content" validate:"required"`
}

// SendSystemMessage posts an announcement under the reserved system sender.
// POST /api/v1/chats/system-message (X-Server-Key)
func (h *ChatHandler) SendSystemMessage(c *fiber.Ctx) error {
	var req SystemMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "chat_id and content are required"})
	}

	if err := h.delivery.SendSystemMessage(c.Context(), req.ChatID, req.Content); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"detail": "System message sent"})
}

// ClearHistory wipes every message of a chat. Admin only.
// DELETE /api/v1/chats/:chatID/messages
func (h *ChatHandler) ClearHistory(c *fiber.Ctx) error {
	chatID, err := c.ParamsInt("chatID")
	if err != nil || chatID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid chat id"})
	}

	user, token := requester(c)
	if err := h.delivery.ClearHistory(c.Context(), int64(chatID), user, token); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"detail": "Chat history cleared successfully"})
}

// DeleteMessage removes a single message. Chat members only.
// DELETE /api/v1/messages/:messageID
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	messageID, err := c.ParamsInt("messageID")
	if err != nil || messageID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid message id"})
	}

	user, token := requester(c)
	if err := h.delivery.DeleteMessage(c.Context(), int64(messageID), user, token); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"detail": "Message deleted successfully"})
}

// ReactionToggleRequest names the reaction to attach or detach.
type ReactionToggleRequest struct {
	MessageID    int64  `json:"message_id" validate:"required,gt=0"`
	ReactionName string `json:"reaction_name" validate:"required"`
}

// ToggleReaction flips one user's reaction on a message.
// POST /api/v1/reactions
func (h *ChatHandler) ToggleReaction(c *fiber.Ctx) error {
	var req ReactionToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "message_id and reaction_name are required"})
	}

	user, _ := requester(c)
	if err := h.delivery.ToggleReaction(c.Context(), req.MessageID, user, req.ReactionName); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"detail": "Reaction updated"})
}

// requester pulls the authenticated user and raw token set by the auth
// middleware. System-message routes are server-key gated and have neither.
func requester(c *fiber.Ctx) (*model.User, string) {
	user, _ := c.Locals("user").(*model.User)
	token, _ := c.Locals("token").(string)
	return user, token
}

func (h *ChatHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrChatNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "chat not found"})
	case errors.Is(err, service.ErrMessageNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "message not found"})
	case errors.Is(err, service.ErrReactionNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "reaction not found"})
	case errors.Is(err, service.ErrNotAdmin):
		return c.Status(403).JSON(fiber.Map{"error": "you are not the admin of this chat"})
	case errors.Is(err, service.ErrNotMember):
		return c.Status(403).JSON(fiber.Map{"error": "you are not a member of this chat"})
	default:
		log.Printf("[Chat] request failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal error"})
	}
}
