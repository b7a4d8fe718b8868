package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/repository"
)

type fakeParticipantRepo struct {
	setOnlineErr error
	records      map[string]*domain.Participant // roomID/userID
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{records: make(map[string]*domain.Participant)}
}

func (r *fakeParticipantRepo) key(roomID, userID string) string { return roomID + "/" + userID }

func (r *fakeParticipantRepo) GetOrCreate(ctx context.Context, p *domain.Participant) (*domain.Participant, error) {
	k := r.key(p.RoomID, p.UserID)
	if existing, ok := r.records[k]; ok {
		return existing, nil
	}
	copied := *p
	r.records[k] = &copied
	return &copied, nil
}

func (r *fakeParticipantRepo) SetOnline(ctx context.Context, roomID, userID string, online bool) error {
	if r.setOnlineErr != nil {
		return r.setOnlineErr
	}
	p, ok := r.records[r.key(roomID, userID)]
	if !ok {
		return repository.ErrParticipantNotFound
	}
	p.IsOnline = online
	p.LastSeen = time.Now()
	return nil
}

func (r *fakeParticipantRepo) TouchLastSeen(ctx context.Context, roomID, userID string) error {
	return nil
}

func (r *fakeParticipantRepo) ResetUnread(ctx context.Context, roomID, userID string) error {
	if p, ok := r.records[r.key(roomID, userID)]; ok {
		p.UnreadCount = 0
	}
	return nil
}

func (r *fakeParticipantRepo) IncrementUnreadExcept(ctx context.Context, roomID, exceptUserID string) error {
	for _, p := range r.records {
		if p.RoomID == roomID && p.UserID != exceptUserID {
			p.UnreadCount++
		}
	}
	return nil
}

func (r *fakeParticipantRepo) ListByRoom(ctx context.Context, roomID string) ([]domain.Participant, error) {
	var out []domain.Participant
	for _, p := range r.records {
		if p.RoomID == roomID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) CountOnline(ctx context.Context, roomID string) (int, error) {
	n := 0
	for _, p := range r.records {
		if p.RoomID == roomID && p.IsOnline {
			n++
		}
	}
	return n, nil
}

type fakeProjection struct {
	err     error
	members map[string]map[string]bool // roomID -> userID
}

func newFakeProjection() *fakeProjection {
	return &fakeProjection{members: make(map[string]map[string]bool)}
}

func (p *fakeProjection) SetOnline(ctx context.Context, roomID, userID string) error {
	if p.err != nil {
		return p.err
	}
	if p.members[roomID] == nil {
		p.members[roomID] = make(map[string]bool)
	}
	p.members[roomID][userID] = true
	return nil
}

func (p *fakeProjection) SetOffline(ctx context.Context, roomID, userID string) error {
	if p.err != nil {
		return p.err
	}
	delete(p.members[roomID], userID)
	return nil
}

func (p *fakeProjection) OnlineCount(ctx context.Context, roomID string) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return len(p.members[roomID]), nil
}

func (p *fakeProjection) Close() error { return nil }

func ident(userID, displayName string) *identity.Identity {
	return &identity.Identity{UserID: userID, Username: userID, DisplayName: displayName}
}

func TestSetOnlineBroadcastsUserStatus(t *testing.T) {
	registry := &fakeRegistry{}
	repo := newFakeParticipantRepo()
	svc := NewPresenceService(repo, registry, nil)

	if err := svc.SetOnline(context.Background(), "room-1", ident("u1", "Alice Smith")); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}

	if f := repo.records["room-1/u1"]; f == nil || !f.IsOnline {
		t.Fatal("participant record not online")
	}
	if registry.broadcastCount() != 1 {
		t.Fatalf("broadcasts = %d, want 1", registry.broadcastCount())
	}
	env, ok := registry.broadcasts[0].envelope.(*domain.OutboundUserStatus)
	if !ok {
		t.Fatalf("envelope type = %T, want *domain.OutboundUserStatus", registry.broadcasts[0].envelope)
	}
	if env.Status != domain.StatusOnline || env.UserID != "u1" {
		t.Errorf("status envelope = %+v", env)
	}
	// Presence changes announce to everyone, the subject included.
	if registry.broadcasts[0].exclude != "" {
		t.Errorf("exclude = %q, want none", registry.broadcasts[0].exclude)
	}
}

func TestSetOnlinePersistFailureSuppressesBroadcast(t *testing.T) {
	registry := &fakeRegistry{}
	repo := newFakeParticipantRepo()
	repo.setOnlineErr = errors.New("store down")
	svc := NewPresenceService(repo, registry, nil)

	if err := svc.SetOnline(context.Background(), "room-1", ident("u1", "Alice Smith")); err == nil {
		t.Fatal("SetOnline succeeded, want error")
	}
	if registry.broadcastCount() != 0 {
		t.Error("unpersisted presence change was broadcast")
	}
}

func TestSetOfflineWithoutRecordIsSilent(t *testing.T) {
	registry := &fakeRegistry{}
	repo := newFakeParticipantRepo()
	svc := NewPresenceService(repo, registry, nil)

	err := svc.SetOffline(context.Background(), "room-1", ident("ghost", "Ghost"))
	if !errors.Is(err, repository.ErrParticipantNotFound) {
		t.Fatalf("err = %v, want ErrParticipantNotFound", err)
	}
	if registry.broadcastCount() != 0 {
		t.Error("offline broadcast for a connection that never joined")
	}
}

func TestProjectionFailureDoesNotFailTransition(t *testing.T) {
	registry := &fakeRegistry{}
	repo := newFakeParticipantRepo()
	projection := newFakeProjection()
	projection.err = errors.New("redis down")
	svc := NewPresenceService(repo, registry, projection)

	if err := svc.SetOnline(context.Background(), "room-1", ident("u1", "Alice Smith")); err != nil {
		t.Fatalf("SetOnline: %v, projection failures must not propagate", err)
	}
	if registry.broadcastCount() != 1 {
		t.Error("status broadcast suppressed by projection failure")
	}
}

func TestOnlineCountFallsBackToStore(t *testing.T) {
	registry := &fakeRegistry{}
	repo := newFakeParticipantRepo()
	projection := newFakeProjection()
	svc := NewPresenceService(repo, registry, projection)

	if err := svc.SetOnline(context.Background(), "room-1", ident("u1", "Alice Smith")); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}
	if err := svc.SetOnline(context.Background(), "room-1", ident("u2", "Bob Jones")); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}

	n, err := svc.OnlineCount(context.Background(), "room-1")
	if err != nil || n != 2 {
		t.Fatalf("OnlineCount via projection = %d, %v, want 2", n, err)
	}

	// Projection gone: fall back to the participant store.
	projection.err = errors.New("redis down")
	n, err = svc.OnlineCount(context.Background(), "room-1")
	if err != nil || n != 2 {
		t.Fatalf("OnlineCount via store = %d, %v, want 2", n, err)
	}
}

func TestUnreadLifecycle(t *testing.T) {
	registry := &fakeRegistry{}
	repo := newFakeParticipantRepo()
	svc := NewPresenceService(repo, registry, nil)

	for _, u := range []string{"u1", "u2", "u3"} {
		if err := svc.SetOnline(context.Background(), "room-1", ident(u, u)); err != nil {
			t.Fatalf("SetOnline(%s): %v", u, err)
		}
	}

	if err := svc.IncrementUnread(context.Background(), "room-1", "u1"); err != nil {
		t.Fatalf("IncrementUnread: %v", err)
	}

	if got := repo.records["room-1/u1"].UnreadCount; got != 0 {
		t.Errorf("sender unread = %d, want 0", got)
	}
	if got := repo.records["room-1/u2"].UnreadCount; got != 1 {
		t.Errorf("recipient unread = %d, want 1", got)
	}

	if err := svc.ResetUnread(context.Background(), "room-1", "u2"); err != nil {
		t.Fatalf("ResetUnread: %v", err)
	}
	if got := repo.records["room-1/u2"].UnreadCount; got != 0 {
		t.Errorf("unread after reset = %d, want 0", got)
	}
}
