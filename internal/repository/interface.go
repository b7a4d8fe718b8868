package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrSlugTaken           = errors.New("room slug already taken")
	ErrMessageNotFound     = errors.New("message not found")
	ErrParticipantNotFound = errors.New("participant not found")
)

// RoomRepository persists rooms.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	// GetBySlug returns the active room with the given slug, or
	// ErrRoomNotFound if it does not exist or has been deactivated.
	GetBySlug(ctx context.Context, slug string) (*domain.Room, error)
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	ListByType(ctx context.Context, roomType domain.RoomType) ([]domain.Room, error)
	AddParticipant(ctx context.Context, roomID, userID string) error
	Deactivate(ctx context.Context, roomID string) error
}

// ParticipantRepository persists per-room membership, presence and unread
// state. GetOrCreate is idempotent per (room, user).
type ParticipantRepository interface {
	GetOrCreate(ctx context.Context, p *domain.Participant) (*domain.Participant, error)
	SetOnline(ctx context.Context, roomID, userID string, online bool) error
	TouchLastSeen(ctx context.Context, roomID, userID string) error
	ResetUnread(ctx context.Context, roomID, userID string) error
	// IncrementUnreadExcept bumps the unread counter of every participant
	// in the room except the given user.
	IncrementUnreadExcept(ctx context.Context, roomID, exceptUserID string) error
	ListByRoom(ctx context.Context, roomID string) ([]domain.Participant, error)
	CountOnline(ctx context.Context, roomID string) (int, error)
}

// MessageRepository persists messages. Rows are never physically removed;
// soft-delete is a terminal state transition.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// ListByRoom returns messages ordered by persisted timestamp, newest
	// first. The persisted timestamp is the only authoritative ordering.
	ListByRoom(ctx context.Context, roomID string, limit, offset int, includeDeleted bool) ([]domain.Message, error)
	MarkEdited(ctx context.Context, id, content string, at time.Time) error
	MarkDeleted(ctx context.Context, id string, at time.Time, byID, byName, tombstone string) error
}
