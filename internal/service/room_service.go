package service

import (
	"context"
	"errors"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/audit"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/repository"
)

var (
	ErrInvalidRoomType = errors.New("invalid room type")
	ErrNotRoomCreator  = errors.New("requester is not the room creator")
)

// RoomService covers the HTTP-facing room operations.
type RoomService interface {
	CreateRoom(ctx context.Context, ident *identity.Identity, req *domain.CreateRoomRequest) (*domain.Room, error)
	GetRoomBySlug(ctx context.Context, slug string) (*domain.Room, error)
	ListRooms(ctx context.Context, roomType domain.RoomType) ([]domain.Room, error)
	ListParticipants(ctx context.Context, slug string) ([]domain.Participant, error)
	CloseRoom(ctx context.Context, ident *identity.Identity, slug string) error
}

type roomService struct {
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
}

// NewRoomService creates a new room service.
func NewRoomService(rooms repository.RoomRepository, participants repository.ParticipantRepository) RoomService {
	return &roomService{
		rooms:        rooms,
		participants: participants,
	}
}

// CreateRoom creates a room with a slug derived from its name. The creator
// becomes the first participant.
func (s *roomService) CreateRoom(ctx context.Context, ident *identity.Identity, req *domain.CreateRoomRequest) (*domain.Room, error) {
	roomType := req.Type
	if roomType == "" {
		roomType = domain.RoomTypePublic
	}
	if !domain.ValidRoomType(roomType) {
		return nil, ErrInvalidRoomType
	}

	room := &domain.Room{
		Name:           req.Name,
		Slug:           domain.Slugify(req.Name),
		Type:           roomType,
		Description:    req.Description,
		CreatedByID:    ident.UserID,
		CreatedByName:  ident.DisplayName,
		CreatedByEmail: ident.Email,
		ParticipantIDs: []string{ident.UserID},
	}

	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionRoomCreate, ident.UserID, room.Slug, "room created")
	return room, nil
}

// GetRoomBySlug returns the active room with the given slug.
func (s *roomService) GetRoomBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	return s.rooms.GetBySlug(ctx, slug)
}

// ListRooms lists active rooms, optionally filtered by type.
func (s *roomService) ListRooms(ctx context.Context, roomType domain.RoomType) ([]domain.Room, error) {
	if roomType != "" && !domain.ValidRoomType(roomType) {
		return nil, ErrInvalidRoomType
	}
	return s.rooms.ListByType(ctx, roomType)
}

// ListParticipants returns the room's membership records with presence.
func (s *roomService) ListParticipants(ctx context.Context, slug string) ([]domain.Participant, error) {
	room, err := s.rooms.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.participants.ListByRoom(ctx, room.ID)
}

// CloseRoom deactivates a room. Only its creator may close it; history
// stays readable.
func (s *roomService) CloseRoom(ctx context.Context, ident *identity.Identity, slug string) error {
	room, err := s.rooms.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if room.CreatedByID != ident.UserID {
		return ErrNotRoomCreator
	}

	if err := s.rooms.Deactivate(ctx, room.ID); err != nil {
		return err
	}

	audit.LogWithDetail(ctx, audit.ActionRoomClose, ident.UserID, room.Slug, "room closed")
	return nil
}
