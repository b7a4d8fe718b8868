package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/config"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/hub"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/repository"
)

// --- fakes shared by the service tests ---

type recordedBroadcast struct {
	roomID   string
	envelope interface{}
	exclude  string
}

type fakeRegistry struct {
	mu         sync.Mutex
	joins      []string
	leaves     []string
	broadcasts []recordedBroadcast
}

func (r *fakeRegistry) Join(roomID string, c *hub.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins = append(r.joins, roomID+"/"+c.ID)
}

func (r *fakeRegistry) Leave(roomID string, c *hub.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaves = append(r.leaves, roomID+"/"+c.ID)
}

func (r *fakeRegistry) Broadcast(roomID string, envelope interface{}, excludeClientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, recordedBroadcast{roomID: roomID, envelope: envelope, exclude: excludeClientID})
	return nil
}

func (r *fakeRegistry) ClientCount(roomID string) int { return 0 }

func (r *fakeRegistry) broadcastCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.broadcasts)
}

type fakePresence struct {
	setOnlineErr  error
	setOfflineErr error
	online        []string
	offline       []string
	resets        []string
	increments    []string
}

func (p *fakePresence) SetOnline(ctx context.Context, roomID string, ident *identity.Identity) error {
	if p.setOnlineErr != nil {
		return p.setOnlineErr
	}
	p.online = append(p.online, roomID+"/"+ident.UserID)
	return nil
}

func (p *fakePresence) SetOffline(ctx context.Context, roomID string, ident *identity.Identity) error {
	if p.setOfflineErr != nil {
		return p.setOfflineErr
	}
	p.offline = append(p.offline, roomID+"/"+ident.UserID)
	return nil
}

func (p *fakePresence) TouchLastSeen(ctx context.Context, roomID, userID string) error { return nil }

func (p *fakePresence) ResetUnread(ctx context.Context, roomID, userID string) error {
	p.resets = append(p.resets, roomID+"/"+userID)
	return nil
}

func (p *fakePresence) IncrementUnread(ctx context.Context, roomID, exceptUserID string) error {
	p.increments = append(p.increments, roomID+"/"+exceptUserID)
	return nil
}

func (p *fakePresence) OnlineCount(ctx context.Context, roomID string) (int, error) { return 0, nil }

type fakeMessageRepo struct {
	mu        sync.Mutex
	createErr error
	byID      map[string]*domain.Message
	seq       int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byID: make(map[string]*domain.Message)}
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	msg.ID = fmt.Sprintf("msg-%d", r.seq)
	msg.State = domain.MessageStateActive
	msg.Timestamp = time.Now()
	copied := *msg
	r.byID[msg.ID] = &copied
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrMessageNotFound
	}
	copied := *msg
	return &copied, nil
}

func (r *fakeMessageRepo) ListByRoom(ctx context.Context, roomID string, limit, offset int, includeDeleted bool) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.byID {
		if m.RoomID != roomID {
			continue
		}
		if m.State == domain.MessageStateDeleted && !includeDeleted {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkEdited(ctx context.Context, id, content string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok || msg.State == domain.MessageStateDeleted {
		return repository.ErrMessageNotFound
	}
	msg.Content = content
	msg.State = domain.MessageStateEdited
	msg.EditedAt = &at
	return nil
}

func (r *fakeMessageRepo) MarkDeleted(ctx context.Context, id string, at time.Time, byID, byName, tombstone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok || msg.State == domain.MessageStateDeleted {
		return repository.ErrMessageNotFound
	}
	msg.Content = tombstone
	msg.State = domain.MessageStateDeleted
	msg.DeletedAt = &at
	msg.DeletedByID = byID
	msg.DeletedByName = byName
	return nil
}

type fakeRoomRepo struct {
	participants []string
}

func (r *fakeRoomRepo) Create(ctx context.Context, room *domain.Room) error { return nil }

func (r *fakeRoomRepo) GetBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	return nil, repository.ErrRoomNotFound
}

func (r *fakeRoomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	return nil, repository.ErrRoomNotFound
}

func (r *fakeRoomRepo) ListByType(ctx context.Context, roomType domain.RoomType) ([]domain.Room, error) {
	return nil, nil
}

func (r *fakeRoomRepo) AddParticipant(ctx context.Context, roomID, userID string) error {
	r.participants = append(r.participants, roomID+"/"+userID)
	return nil
}

func (r *fakeRoomRepo) Deactivate(ctx context.Context, roomID string) error { return nil }

func testClient(id, userID, displayName string) *hub.Client {
	return hub.NewClient(id, nil, nil, &identity.Identity{
		UserID:      userID,
		Username:    strings.ToLower(displayName),
		DisplayName: displayName,
	}, "room-1", "general", config.WebSocketConfig{})
}

type chatFixture struct {
	registry *fakeRegistry
	presence *fakePresence
	messages *fakeMessageRepo
	rooms    *fakeRoomRepo
	svc      ChatService
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		registry: &fakeRegistry{},
		presence: &fakePresence{},
		messages: newFakeMessageRepo(),
		rooms:    &fakeRoomRepo{},
	}
	f.svc = NewChatService(f.registry, f.presence, f.messages, f.rooms, nil)
	return f
}

// --- tests ---

func TestHandleJoinRegistersAndAnnounces(t *testing.T) {
	f := newChatFixture()
	c := testClient("c1", "u1", "Alice Smith")

	if err := f.svc.HandleJoin(context.Background(), c); err != nil {
		t.Fatalf("HandleJoin: %v", err)
	}

	if len(f.registry.joins) != 1 || f.registry.joins[0] != "room-1/c1" {
		t.Errorf("joins = %v, want [room-1/c1]", f.registry.joins)
	}
	if len(f.presence.online) != 1 {
		t.Errorf("online transitions = %v, want one", f.presence.online)
	}
	if len(f.rooms.participants) != 1 {
		t.Errorf("membership records = %v, want one", f.rooms.participants)
	}
	if len(f.presence.resets) != 1 || f.presence.resets[0] != "room-1/u1" {
		t.Errorf("unread resets = %v, want [room-1/u1]", f.presence.resets)
	}
}

func TestHandleJoinBacksOutOnPresenceFailure(t *testing.T) {
	f := newChatFixture()
	f.presence.setOnlineErr = errors.New("store down")
	c := testClient("c1", "u1", "Alice Smith")

	if err := f.svc.HandleJoin(context.Background(), c); err == nil {
		t.Fatal("HandleJoin succeeded, want error")
	}

	if len(f.registry.leaves) != 1 {
		t.Errorf("leaves = %v, want the failed join backed out", f.registry.leaves)
	}
	if len(f.presence.resets) != 0 {
		t.Errorf("resets = %v, want none after failed join", f.presence.resets)
	}
}

func TestHandleDisconnectLeavesAfterOffline(t *testing.T) {
	f := newChatFixture()
	c := testClient("c1", "u1", "Alice Smith")

	f.svc.HandleDisconnect(context.Background(), c)

	if len(f.presence.offline) != 1 {
		t.Errorf("offline transitions = %v, want one", f.presence.offline)
	}
	if len(f.registry.leaves) != 1 {
		t.Errorf("leaves = %v, want one", f.registry.leaves)
	}
}

func TestHandleDisconnectLeavesEvenWhenOfflineFails(t *testing.T) {
	f := newChatFixture()
	f.presence.setOfflineErr = errors.New("store down")
	c := testClient("c1", "u1", "Alice Smith")

	f.svc.HandleDisconnect(context.Background(), c)

	if len(f.registry.leaves) != 1 {
		t.Errorf("leaves = %v, want the client out of the group regardless", f.registry.leaves)
	}
}

func TestHandleMessagePersistsThenBroadcasts(t *testing.T) {
	f := newChatFixture()
	c := testClient("c1", "u1", "Alice Smith")

	if err := f.svc.HandleMessage(context.Background(), c, "  hello room  "); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if f.registry.broadcastCount() != 1 {
		t.Fatalf("broadcasts = %d, want 1", f.registry.broadcastCount())
	}
	b := f.registry.broadcasts[0]
	env, ok := b.envelope.(*domain.OutboundMessage)
	if !ok {
		t.Fatalf("envelope type = %T, want *domain.OutboundMessage", b.envelope)
	}
	if env.Content != "hello room" {
		t.Errorf("content = %q, want trimmed %q", env.Content, "hello room")
	}
	if env.MessageID == "" {
		t.Error("broadcast carries no persisted message id")
	}
	if b.exclude != "" {
		t.Errorf("exclude = %q, message broadcasts include the sender", b.exclude)
	}
	if len(f.presence.increments) != 1 || f.presence.increments[0] != "room-1/u1" {
		t.Errorf("unread increments = %v, want sender excluded", f.presence.increments)
	}
}

func TestHandleMessageRejectsEmptyContent(t *testing.T) {
	f := newChatFixture()
	c := testClient("c1", "u1", "Alice Smith")

	if err := f.svc.HandleMessage(context.Background(), c, "   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
	if f.registry.broadcastCount() != 0 {
		t.Error("empty message was broadcast")
	}
	if len(f.messages.byID) != 0 {
		t.Error("empty message was persisted")
	}
}

func TestHandleMessageDroppedWhenPersistFails(t *testing.T) {
	f := newChatFixture()
	f.messages.createErr = errors.New("db down")
	c := testClient("c1", "u1", "Alice Smith")

	if err := f.svc.HandleMessage(context.Background(), c, "hello"); err == nil {
		t.Fatal("HandleMessage succeeded, want persist error")
	}
	if f.registry.broadcastCount() != 0 {
		t.Error("unpersisted message was broadcast")
	}
	if len(f.presence.increments) != 0 {
		t.Error("unread counters bumped for a dropped message")
	}
}

func TestHandleEditOnlySender(t *testing.T) {
	f := newChatFixture()
	alice := testClient("c1", "u1", "Alice Smith")
	bob := testClient("c2", "u2", "Bob Jones")

	if err := f.svc.HandleMessage(context.Background(), alice, "original"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	msgID := f.registry.broadcasts[0].envelope.(*domain.OutboundMessage).MessageID

	if err := f.svc.HandleEdit(context.Background(), bob, msgID, "hijacked"); !errors.Is(err, ErrNotSender) {
		t.Fatalf("err = %v, want ErrNotSender", err)
	}
	if f.registry.broadcastCount() != 1 {
		t.Error("rejected edit reached the room")
	}
	stored, _ := f.messages.GetByID(context.Background(), msgID)
	if stored.Content != "original" {
		t.Errorf("content = %q, rejected edit changed state", stored.Content)
	}
}

func TestHandleEditBroadcastsNewContent(t *testing.T) {
	f := newChatFixture()
	alice := testClient("c1", "u1", "Alice Smith")

	if err := f.svc.HandleMessage(context.Background(), alice, "original"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	msgID := f.registry.broadcasts[0].envelope.(*domain.OutboundMessage).MessageID

	if err := f.svc.HandleEdit(context.Background(), alice, msgID, "corrected"); err != nil {
		t.Fatalf("HandleEdit: %v", err)
	}

	if f.registry.broadcastCount() != 2 {
		t.Fatalf("broadcasts = %d, want 2", f.registry.broadcastCount())
	}
	env, ok := f.registry.broadcasts[1].envelope.(*domain.OutboundMessageEdited)
	if !ok {
		t.Fatalf("envelope type = %T, want *domain.OutboundMessageEdited", f.registry.broadcasts[1].envelope)
	}
	if env.Content != "corrected" || env.MessageID != msgID {
		t.Errorf("edit envelope = %+v", env)
	}
	stored, _ := f.messages.GetByID(context.Background(), msgID)
	if !stored.IsEdited() {
		t.Error("message not marked edited")
	}
}

func TestHandleDeleteBroadcastsTombstone(t *testing.T) {
	f := newChatFixture()
	alice := testClient("c1", "u1", "Alice Smith")

	if err := f.svc.HandleMessage(context.Background(), alice, "regrets"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	msgID := f.registry.broadcasts[0].envelope.(*domain.OutboundMessage).MessageID

	if err := f.svc.HandleDelete(context.Background(), alice, msgID); err != nil {
		t.Fatalf("HandleDelete: %v", err)
	}

	env, ok := f.registry.broadcasts[1].envelope.(*domain.OutboundMessageDeleted)
	if !ok {
		t.Fatalf("envelope type = %T, want *domain.OutboundMessageDeleted", f.registry.broadcasts[1].envelope)
	}
	want := "Alice Smith deleted this message"
	if env.DeletedText != want {
		t.Errorf("tombstone = %q, want %q", env.DeletedText, want)
	}
	stored, _ := f.messages.GetByID(context.Background(), msgID)
	if !stored.IsDeleted() || stored.Content != want {
		t.Errorf("stored message = %+v, want tombstoned", stored)
	}
}

func TestHandleDeleteIsTerminal(t *testing.T) {
	f := newChatFixture()
	alice := testClient("c1", "u1", "Alice Smith")

	if err := f.svc.HandleMessage(context.Background(), alice, "once"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	msgID := f.registry.broadcasts[0].envelope.(*domain.OutboundMessage).MessageID

	if err := f.svc.HandleDelete(context.Background(), alice, msgID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	before := f.registry.broadcastCount()

	if err := f.svc.HandleDelete(context.Background(), alice, msgID); !errors.Is(err, ErrMessageDeleted) {
		t.Fatalf("second delete err = %v, want ErrMessageDeleted", err)
	}
	if err := f.svc.HandleEdit(context.Background(), alice, msgID, "resurrect"); !errors.Is(err, ErrMessageDeleted) {
		t.Fatalf("edit after delete err = %v, want ErrMessageDeleted", err)
	}
	if f.registry.broadcastCount() != before {
		t.Error("operations on a deleted message reached the room")
	}
}

func TestHandleTypingExcludesSender(t *testing.T) {
	f := newChatFixture()
	alice := testClient("c1", "u1", "Alice Smith")

	if err := f.svc.HandleTyping(context.Background(), alice, true); err != nil {
		t.Fatalf("HandleTyping: %v", err)
	}

	b := f.registry.broadcasts[0]
	if b.exclude != "c1" {
		t.Errorf("exclude = %q, typing must not echo to the sender", b.exclude)
	}
	env, ok := b.envelope.(*domain.OutboundTyping)
	if !ok {
		t.Fatalf("envelope type = %T, want *domain.OutboundTyping", b.envelope)
	}
	if !env.IsTyping || env.UserID != "u1" {
		t.Errorf("typing envelope = %+v", env)
	}
	if len(f.messages.byID) != 0 {
		t.Error("typing indicator was persisted")
	}
}
