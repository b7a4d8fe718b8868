package service

import (
	"context"
	"strings"
	"time"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/audit"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/cache"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/hub"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/repository"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

type chatService struct {
	registry Registry
	presence PresenceService
	messages repository.MessageRepository
	rooms    repository.RoomRepository
	history  cache.HistoryCache // optional, best-effort invalidation
}

// NewChatService wires the message lifecycle manager. history may be nil.
func NewChatService(
	registry Registry,
	presence PresenceService,
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	history cache.HistoryCache,
) ChatService {
	return &chatService{
		registry: registry,
		presence: presence,
		messages: messages,
		rooms:    rooms,
		history:  history,
	}
}

// HandleJoin runs the Joined stage: enter the broadcast group, persist and
// announce presence, record room membership, reset the unread counter. If
// the presence write fails the client is backed out of the group so a
// half-joined connection never lingers.
func (s *chatService) HandleJoin(ctx context.Context, c *hub.Client) error {
	s.registry.Join(c.RoomID, c)

	if err := s.presence.SetOnline(ctx, c.RoomID, c.Identity); err != nil {
		s.registry.Leave(c.RoomID, c)
		return err
	}

	if err := s.rooms.AddParticipant(ctx, c.RoomID, c.Identity.UserID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, c.RoomID).Msg("failed to record room membership")
	}

	// Catch-up semantics: opening the room reads everything.
	if err := s.presence.ResetUnread(ctx, c.RoomID, c.Identity.UserID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, c.RoomID).Str(log.FieldUserID, c.Identity.UserID).
			Msg("failed to reset unread counter")
	}

	return nil
}

// HandleDisconnect mirrors HandleJoin unconditionally, whatever the close
// reason. The client's close hook guarantees it runs at most once.
func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) {
	if err := s.presence.SetOffline(ctx, c.RoomID, c.Identity); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, c.RoomID).Str(log.FieldUserID, c.Identity.UserID).
			Msg("failed to mark participant offline")
	}

	s.registry.Leave(c.RoomID, c)
}

// HandleMessage validates, persists, then broadcasts a new message. Nothing
// is broadcast unless the row is durably committed.
func (s *chatService) HandleMessage(ctx context.Context, c *hub.Client, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}

	msg := &domain.Message{
		RoomID:      c.RoomID,
		SenderID:    c.Identity.UserID,
		SenderName:  c.Identity.DisplayName,
		SenderEmail: c.Identity.Email,
		Content:     content,
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomID, c.RoomID).Msg("message persist failed, dropping")
		return err
	}

	if err := s.registry.Broadcast(c.RoomID, &domain.OutboundMessage{
		Type:        domain.EnvTypeMessage,
		MessageID:   msg.ID,
		Content:     msg.Content,
		SenderID:    msg.SenderID,
		SenderName:  c.Identity.Username,
		DisplayName: c.Identity.DisplayName,
		Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339Nano),
	}, ""); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldMessageID, msg.ID).Msg("message broadcast failed")
	}

	if err := s.presence.IncrementUnread(ctx, c.RoomID, c.Identity.UserID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, c.RoomID).Msg("failed to increment unread counters")
	}
	if err := s.presence.TouchLastSeen(ctx, c.RoomID, c.Identity.UserID); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Str(log.FieldRoomID, c.RoomID).Msg("failed to touch last seen")
	}

	s.invalidateHistory(ctx, c.RoomID)
	audit.Log(ctx, audit.ActionMessageCreate, c.Identity.UserID, "message created")
	return nil
}

// HandleEdit lets the original sender replace the content of a live
// message. Any rejection is silent toward the room: no broadcast, no state
// change.
func (s *chatService) HandleEdit(ctx context.Context, c *hub.Client, messageID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != c.Identity.UserID {
		l := log.Ctx(ctx)
		l.Warn().Str(log.FieldMessageID, messageID).Str(log.FieldUserID, c.Identity.UserID).
			Msg("edit rejected: requester is not the sender")
		return ErrNotSender
	}
	if msg.IsDeleted() {
		return ErrMessageDeleted
	}

	now := time.Now()
	if err := s.messages.MarkEdited(ctx, messageID, content, now); err != nil {
		return err
	}

	if err := s.registry.Broadcast(c.RoomID, &domain.OutboundMessageEdited{
		Type:      domain.EnvTypeMessageEdited,
		MessageID: messageID,
		Content:   content,
		EditedAt:  now.UTC().Format(time.RFC3339Nano),
		UserID:    c.Identity.UserID,
	}, ""); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("edit broadcast failed")
	}

	s.invalidateHistory(ctx, c.RoomID)
	audit.Log(ctx, audit.ActionMessageEdit, c.Identity.UserID, "message edited")
	return nil
}

// HandleDelete transitions a message to its terminal deleted state and
// announces the tombstone. Deleting an already-deleted message changes
// nothing observable.
func (s *chatService) HandleDelete(ctx context.Context, c *hub.Client, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != c.Identity.UserID {
		l := log.Ctx(ctx)
		l.Warn().Str(log.FieldMessageID, messageID).Str(log.FieldUserID, c.Identity.UserID).
			Msg("delete rejected: requester is not the sender")
		return ErrNotSender
	}
	if msg.IsDeleted() {
		return ErrMessageDeleted
	}

	tombstone := domain.TombstoneText(c.Identity.DisplayName)
	if err := s.messages.MarkDeleted(ctx, messageID, time.Now(), c.Identity.UserID, c.Identity.DisplayName, tombstone); err != nil {
		return err
	}

	if err := s.registry.Broadcast(c.RoomID, &domain.OutboundMessageDeleted{
		Type:        domain.EnvTypeMessageDeleted,
		MessageID:   messageID,
		DeletedText: tombstone,
		UserID:      c.Identity.UserID,
	}, ""); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("delete broadcast failed")
	}

	s.invalidateHistory(ctx, c.RoomID)
	audit.Log(ctx, audit.ActionMessageDelete, c.Identity.UserID, "message deleted")
	return nil
}

// HandleTyping relays a typing indicator to everyone but the sender. Never
// persisted.
func (s *chatService) HandleTyping(ctx context.Context, c *hub.Client, isTyping bool) error {
	return s.registry.Broadcast(c.RoomID, &domain.OutboundTyping{
		Type:        domain.EnvTypeTyping,
		UserID:      c.Identity.UserID,
		DisplayName: c.Identity.DisplayName,
		IsTyping:    isTyping,
	}, c.ID)
}

func (s *chatService) invalidateHistory(ctx context.Context, roomID string) {
	if s.history == nil {
		return
	}
	if err := s.history.Invalidate(ctx, roomID); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("history cache invalidation failed")
	}
}
