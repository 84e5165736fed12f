package messaging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/utils"
)

type Handler struct {
	svc *Service
	hub *Hub
}

func NewHandler(svc *Service, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// POST /messages
func (h *Handler) Send(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		To      string `json:"to"`
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil || body.To == "" {
		return utils.BadRequest(c, "invalid payload")
	}
	msg, err := h.svc.Send(c.Request().Context(), sess, body.To, body.Content)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// GET /messages
func (h *Handler) Conversations(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	convs, err := h.svc.Conversations(c.Request().Context(), sess)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conversations": convs})
}

// GET /messages/:username
func (h *Handler) Conversation(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	msgs, err := h.svc.Conversation(c.Request().Context(), sess, c.Param("username"))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// POST /messages/:username/read
func (h *Handler) MarkRead(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	n, err := h.svc.MarkConversationRead(c.Request().Context(), sess, c.Param("username"))
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"marked": n})
}

// GET /messages/unread
func (h *Handler) UnreadCount(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	n, err := h.svc.UnreadCount(c.Request().Context(), sess)
	if err != nil {
		return utils.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WS upgrades to a websocket that receives the caller's message events.
// The protocol is server push only; client frames are discarded.
// GET /ws
func (h *Handler) WS(c echo.Context) error {
	sess, ok := auth.FromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := newWSClient(conn)
	h.hub.register(sess.Username, client)
	go client.writePump()
	defer func() {
		h.hub.unregister(sess.Username, client)
		client.close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket closed", "username", sess.Username, "error", err)
			}
			return nil
		}
	}
}
