package service

import (
	"context"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/cache"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/repository"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

type presenceService struct {
	participants repository.ParticipantRepository
	registry     Registry
	projection   cache.PresenceCache // optional, rebuildable
}

// NewPresenceService creates the presence tracker. projection may be nil;
// the participant store stays the single source of truth either way.
func NewPresenceService(participants repository.ParticipantRepository, registry Registry, projection cache.PresenceCache) PresenceService {
	return &presenceService{
		participants: participants,
		registry:     registry,
		projection:   projection,
	}
}

// SetOnline gets-or-creates the participant record, persists the online
// flag, then broadcasts user_status online. Persistence failure suppresses
// the broadcast.
func (s *presenceService) SetOnline(ctx context.Context, roomID string, ident *identity.Identity) error {
	if _, err := s.participants.GetOrCreate(ctx, &domain.Participant{
		RoomID:    roomID,
		UserID:    ident.UserID,
		UserName:  ident.DisplayName,
		UserEmail: ident.Email,
	}); err != nil {
		return err
	}

	if err := s.participants.SetOnline(ctx, roomID, ident.UserID, true); err != nil {
		return err
	}

	s.project(ctx, roomID, ident.UserID, true)
	return s.broadcastStatus(ctx, roomID, ident, domain.StatusOnline)
}

// SetOffline persists the offline flag, then broadcasts user_status
// offline. A missing participant record means the connection never fully
// joined; nothing is broadcast.
func (s *presenceService) SetOffline(ctx context.Context, roomID string, ident *identity.Identity) error {
	if err := s.participants.SetOnline(ctx, roomID, ident.UserID, false); err != nil {
		return err
	}

	s.project(ctx, roomID, ident.UserID, false)
	return s.broadcastStatus(ctx, roomID, ident, domain.StatusOffline)
}

func (s *presenceService) TouchLastSeen(ctx context.Context, roomID, userID string) error {
	return s.participants.TouchLastSeen(ctx, roomID, userID)
}

func (s *presenceService) ResetUnread(ctx context.Context, roomID, userID string) error {
	return s.participants.ResetUnread(ctx, roomID, userID)
}

func (s *presenceService) IncrementUnread(ctx context.Context, roomID, exceptUserID string) error {
	return s.participants.IncrementUnreadExcept(ctx, roomID, exceptUserID)
}

// OnlineCount prefers the redis projection and falls back to the store when
// the projection is unavailable.
func (s *presenceService) OnlineCount(ctx context.Context, roomID string) (int, error) {
	if s.projection != nil {
		if n, err := s.projection.OnlineCount(ctx, roomID); err == nil {
			return n, nil
		}
	}
	return s.participants.CountOnline(ctx, roomID)
}

// project updates the redis projection. Failures are logged, not
// propagated: the projection is rebuildable and must never fail a presence
// transition that the store already committed.
func (s *presenceService) project(ctx context.Context, roomID, userID string, online bool) {
	if s.projection == nil {
		return
	}

	var err error
	if online {
		err = s.projection.SetOnline(ctx, roomID, userID)
	} else {
		err = s.projection.SetOffline(ctx, roomID, userID)
	}
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).
			Msg("presence projection update failed")
	}
}

func (s *presenceService) broadcastStatus(ctx context.Context, roomID string, ident *identity.Identity, status string) error {
	return s.registry.Broadcast(roomID, &domain.OutboundUserStatus{
		Type:        domain.EnvTypeUserStatus,
		UserID:      ident.UserID,
		DisplayName: ident.DisplayName,
		Status:      status,
	}, "")
}
