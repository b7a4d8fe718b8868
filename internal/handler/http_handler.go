package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/repository"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/service"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/response"
)

// HTTPHandler serves the REST surface: room management and history reads.
type HTTPHandler struct {
	roomsSvc   service.RoomService
	historySvc service.HistoryService
	presence   service.PresenceService
	provider   identity.Provider
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(roomsSvc service.RoomService, historySvc service.HistoryService, presence service.PresenceService, provider identity.Provider) *HTTPHandler {
	return &HTTPHandler{
		roomsSvc:   roomsSvc,
		historySvc: historySvc,
		presence:   presence,
		provider:   provider,
	}
}

// RegisterRoutes mounts the REST endpoints.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:slug", h.GetRoom)
	api.GET("/rooms/:slug/participants", h.ListParticipants)
	api.GET("/rooms/:slug/messages", h.GetHistory)

	authed := api.Group("", RequireAuth(h.provider))
	authed.POST("/rooms", h.CreateRoom)
	authed.DELETE("/rooms/:slug", h.CloseRoom)
}

// Health reports service liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "healthy"})
}

// CreateRoom handles POST /api/v1/rooms.
func (h *HTTPHandler) CreateRoom(c *gin.Context) {
	ident, ok := IdentityFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	room, err := h.roomsSvc.CreateRoom(c.Request.Context(), ident, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRoomType):
			response.BadRequest(c, "invalid room type")
		case errors.Is(err, repository.ErrSlugTaken):
			response.Conflict(c, "a room with this name already exists")
		default:
			l := log.Ctx(c.Request.Context())
			l.Error().Err(err).Msg("failed to create room")
			response.InternalError(c, "failed to create room")
		}
		return
	}

	response.Created(c, room)
}

// ListRooms handles GET /api/v1/rooms with an optional type filter.
func (h *HTTPHandler) ListRooms(c *gin.Context) {
	roomType := domain.RoomType(c.Query("type"))

	rooms, err := h.roomsSvc.ListRooms(c.Request.Context(), roomType)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRoomType) {
			response.BadRequest(c, "invalid room type")
			return
		}
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to list rooms")
		response.InternalError(c, "failed to list rooms")
		return
	}

	response.Success(c, gin.H{"rooms": rooms, "count": len(rooms)})
}

// GetRoom handles GET /api/v1/rooms/:slug, including the live online count.
func (h *HTTPHandler) GetRoom(c *gin.Context) {
	slug := c.Param("slug")

	room, err := h.roomsSvc.GetRoomBySlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoomSlug, slug).Msg("failed to get room")
		response.InternalError(c, "failed to get room")
		return
	}

	online, err := h.presence.OnlineCount(c.Request.Context(), room.ID)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to count online participants")
		online = 0
	}

	response.Success(c, gin.H{"room": room, "online_count": online})
}

// ListParticipants handles GET /api/v1/rooms/:slug/participants.
func (h *HTTPHandler) ListParticipants(c *gin.Context) {
	slug := c.Param("slug")

	participants, err := h.roomsSvc.ListParticipants(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoomSlug, slug).Msg("failed to list participants")
		response.InternalError(c, "failed to list participants")
		return
	}

	response.Success(c, gin.H{"participants": participants, "count": len(participants)})
}

// GetHistory handles GET /api/v1/rooms/:slug/messages with limit, offset
// and include_deleted query parameters. Deleted messages surface as their
// tombstone text either way; include_deleted only controls whether they
// appear at all.
func (h *HTTPHandler) GetHistory(c *gin.Context) {
	slug := c.Param("slug")

	room, err := h.roomsSvc.GetRoomBySlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoomSlug, slug).Msg("failed to get room")
		response.InternalError(c, "failed to get room")
		return
	}

	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		response.BadRequest(c, "limit must be an integer")
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		response.BadRequest(c, "offset must be an integer")
		return
	}
	includeDeleted := c.Query("include_deleted") == "true"

	messages, err := h.historySvc.GetRoomMessages(c.Request.Context(), room.ID, limit, offset, includeDeleted)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to load history")
		response.InternalError(c, "failed to load history")
		return
	}

	response.Success(c, gin.H{"messages": messages, "count": len(messages), "offset": offset})
}

// CloseRoom handles DELETE /api/v1/rooms/:slug.
func (h *HTTPHandler) CloseRoom(c *gin.Context) {
	ident, ok := IdentityFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	slug := c.Param("slug")
	if err := h.roomsSvc.CloseRoom(c.Request.Context(), ident, slug); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomNotFound):
			response.NotFound(c, "room not found")
		case errors.Is(err, service.ErrNotRoomCreator):
			response.Forbidden(c, "only the room creator may close it")
		default:
			l := log.Ctx(c.Request.Context())
			l.Error().Err(err).Str(log.FieldRoomSlug, slug).Msg("failed to close room")
			response.InternalError(c, "failed to close room")
		}
		return
	}

	response.Success(c, gin.H{"closed": true})
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
