package handler

import (
	"context"
	"encoding/json"
	"log"

	"messly-backend/internal/model"
	"messly-backend/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WSHandler is the per-connection bridge between the websocket transport, the
// room registry and the delivery service.
type WSHandler struct {
	registry *service.Registry
	delivery *service.DeliveryService
	verifier *service.TokenVerifier
}

func NewWSHandler(registry *service.Registry, delivery *service.DeliveryService, verifier *service.TokenVerifier) *WSHandler {
	return &WSHandler{registry: registry, delivery: delivery, verifier: verifier}
}

// Upgrade authenticates the credential from the query string and promotes the
// request to a websocket connection bound to the chat room. A bad credential
// rejects the request before any registry state exists.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	chatID, err := c.ParamsInt("chatID")
	if err != nil || chatID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid chat id"})
	}

	token := c.Query("token")
	if token == "" {
		return c.Status(401).JSON(fiber.Map{"error": "token required"})
	}

	user, err := h.verifier.Verify(c.Context(), token)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
	}

	c.Locals("chat_id", int64(chatID))
	c.Locals("user", user)
	return websocket.New(h.handleConnection)(c)
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	chatID, _ := c.Locals("chat_id").(int64)
	user, _ := c.Locals("user").(*model.User)
	if user == nil || chatID == 0 {
		// Should have been rejected at upgrade; close with a policy violation.
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthenticated"))
		_ = c.Close()
		return
	}

	client := service.NewClient(c, user)
	h.registry.Join(chatID, client)
	defer h.registry.Leave(chatID, client)

	// Writer goroutine: the only goroutine writing to the connection. It ends
	// when Leave closes the Send channel.
	go func() {
		defer c.Close()
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Flip the backlog to read before handling any frame from this connection.
	if err := h.delivery.MarkBacklogRead(context.Background(), chatID, user.ID); err != nil {
		log.Printf("[WS] chat %d backlog read for %s: %v", chatID, user.Username, err)
	}

	// One frame at a time, in order. Malformed frames are dropped without
	// touching any state; only the transport ends this loop.
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			break
		}

		var frame model.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("[WS] chat %d dropped malformed frame from %s", chatID, user.Username)
			continue
		}

		h.dispatch(chatID, user, frame)
	}
}

func (h *WSHandler) dispatch(chatID int64, user *model.User, frame model.InboundFrame) {
	ctx := context.Background()

	if frame.Content != "" {
		if err := h.delivery.SendText(ctx, chatID, user, frame.Content); err != nil {
			log.Printf("[WS] chat %d text from %s: %v", chatID, user.Username, err)
		}
	}

	if frame.FileURL != "" {
		if err := h.delivery.SendFile(ctx, chatID, user, frame.FileURL); err != nil {
			log.Printf("[WS] chat %d file from %s: %v", chatID, user.Username, err)
		}
	}
}
