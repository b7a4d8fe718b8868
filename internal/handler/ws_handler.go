package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/config"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/hub"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/repository"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/service"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler is the WebSocket gateway. It authenticates the connection,
// binds it to a room and pumps envelopes between the peer and the chat
// service.
type WSHandler struct {
	hub      *hub.Hub
	chat     service.ChatService
	provider identity.Provider
	rooms    repository.RoomRepository
	wsCfg    config.WebSocketConfig
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, chat service.ChatService, provider identity.Provider, rooms repository.RoomRepository, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		chat:     chat,
		provider: provider,
		rooms:    rooms,
		wsCfg:    wsCfg,
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/chat/:room_slug", h.HandleConnection)
}

// HandleConnection upgrades the request and runs the connection through
// its lifecycle: authenticate, resolve the room, join, then pump until
// the peer goes away. Failures before the join close the socket with a
// policy violation and leave no trace in presence or membership.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ident, err := h.provider.Resolve(ctx, extractCredential(c))
	if err != nil {
		l.Warn().Err(err).Msg("websocket authentication rejected")
		closeWithPolicy(conn, "authentication required")
		return
	}

	slug := c.Param("room_slug")
	room, err := h.rooms.GetBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, repository.ErrRoomNotFound) {
			l.Error().Err(err).Str(log.FieldRoomSlug, slug).Msg("room lookup failed")
		}
		closeWithPolicy(conn, "room unavailable")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, ident, room.ID, room.Slug, h.wsCfg)
	h.hub.Register(client)

	if err := h.chat.HandleJoin(ctx, client); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, room.ID).Str(log.FieldUserID, ident.UserID).
			Msg("room join failed")
		h.hub.Unregister(client)
		closeWithPolicy(conn, "join failed")
		return
	}

	// Only a fully joined connection triggers the leave sequence on close.
	client.OnClose = func(cl *hub.Client) {
		// The request context is gone by the time the connection closes.
		h.chat.HandleDisconnect(context.Background(), cl)
	}

	l.Info().
		Str(log.FieldClientID, client.ID).
		Str(log.FieldRoomSlug, room.Slug).
		Str(log.FieldUserID, ident.UserID).
		Msg("websocket connected")

	go client.WritePump()
	client.ReadPump(h.dispatch)
}

// dispatch decodes one inbound frame and routes it by envelope type. A
// malformed or unknown envelope answers the sender with an error envelope
// and keeps the connection active.
func (h *WSHandler) dispatch(c *hub.Client, raw []byte) {
	ctx := context.Background()
	l := log.L()

	var base domain.BaseEnvelope
	if err := json.Unmarshal(raw, &base); err != nil {
		h.sendError(c, domain.ErrCodeBadRequest, "malformed envelope")
		return
	}

	switch base.Type {
	case domain.EnvTypeMessage:
		var env domain.InboundMessage
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(c, domain.ErrCodeBadRequest, "malformed message envelope")
			return
		}
		if err := h.chat.HandleMessage(ctx, c, env.Content); err != nil {
			h.replyServiceError(c, err)
		}

	case domain.EnvTypeTyping:
		var env domain.InboundTyping
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(c, domain.ErrCodeBadRequest, "malformed typing envelope")
			return
		}
		if err := h.chat.HandleTyping(ctx, c, env.IsTyping); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, c.ID).Msg("typing relay failed")
		}

	case domain.EnvTypeEditMessage:
		var env domain.InboundEditMessage
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(c, domain.ErrCodeBadRequest, "malformed edit envelope")
			return
		}
		if err := h.chat.HandleEdit(ctx, c, env.MessageID, env.Content); err != nil {
			h.replyServiceError(c, err)
		}

	case domain.EnvTypeDeleteMessage:
		var env domain.InboundDeleteMessage
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(c, domain.ErrCodeBadRequest, "malformed delete envelope")
			return
		}
		if err := h.chat.HandleDelete(ctx, c, env.MessageID); err != nil {
			h.replyServiceError(c, err)
		}

	default:
		h.sendError(c, domain.ErrCodeBadRequest, "unknown envelope type: "+base.Type)
	}
}

// replyServiceError maps a service rejection onto an error envelope for
// the requesting client. The room never sees rejected operations.
func (h *WSHandler) replyServiceError(c *hub.Client, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		h.sendError(c, domain.ErrCodeBadRequest, "message content is empty")
	case errors.Is(err, service.ErrNotSender):
		h.sendError(c, domain.ErrCodeBadRequest, "only the sender may modify a message")
	case errors.Is(err, service.ErrMessageDeleted):
		h.sendError(c, domain.ErrCodeBadRequest, "message has been deleted")
	case errors.Is(err, repository.ErrMessageNotFound):
		h.sendError(c, domain.ErrCodeBadRequest, "message not found")
	default:
		h.sendError(c, domain.ErrCodeInternalError, "operation failed")
	}
}

func (h *WSHandler) sendError(c *hub.Client, code, message string) {
	if err := c.SendEnvelope(domain.NewErrorEnvelope(code, message)); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldClientID, c.ID).Msg("failed to send error envelope")
	}
}

// extractCredential pulls the token from the query string, falling back to
// a bearer header for clients that can set one.
func extractCredential(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func closeWithPolicy(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	conn.Close()
}
