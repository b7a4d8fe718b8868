package service

import (
	"context"
	"errors"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/hub"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
)

var (
	ErrEmptyContent   = errors.New("message content is empty")
	ErrNotSender      = errors.New("requester is not the message sender")
	ErrMessageDeleted = errors.New("message has been deleted")
)

// Registry is the per-room broadcast group consumed by the services. The
// hub implements it; tests substitute a recording fake.
type Registry interface {
	Join(roomID string, client *hub.Client)
	Leave(roomID string, client *hub.Client)
	// Broadcast fans the envelope out to the room's membership snapshot,
	// excluding excludeClientID when non-empty. At-most-once, no retry.
	Broadcast(roomID string, envelope interface{}, excludeClientID string) error
	ClientCount(roomID string) int
}

// PresenceService tracks per-(room, participant) online state, last-seen
// and unread counters. Online/offline transitions write through to the
// store and emit a user_status broadcast.
type PresenceService interface {
	SetOnline(ctx context.Context, roomID string, ident *identity.Identity) error
	SetOffline(ctx context.Context, roomID string, ident *identity.Identity) error
	TouchLastSeen(ctx context.Context, roomID, userID string) error
	ResetUnread(ctx context.Context, roomID, userID string) error
	IncrementUnread(ctx context.Context, roomID, exceptUserID string) error
	OnlineCount(ctx context.Context, roomID string) (int, error)
}

// ChatService owns the connection lifecycle and the message lifecycle for
// one hub. All mutating operations persist first and broadcast only on
// success.
type ChatService interface {
	HandleJoin(ctx context.Context, client *hub.Client) error
	HandleDisconnect(ctx context.Context, client *hub.Client)
	HandleMessage(ctx context.Context, client *hub.Client, content string) error
	HandleEdit(ctx context.Context, client *hub.Client, messageID, content string) error
	HandleDelete(ctx context.Context, client *hub.Client, messageID string) error
	HandleTyping(ctx context.Context, client *hub.Client, isTyping bool) error
}

// HistoryService serves durable message history reads.
type HistoryService interface {
	GetRoomMessages(ctx context.Context, roomID string, limit, offset int, includeDeleted bool) ([]domain.Message, error)
}
