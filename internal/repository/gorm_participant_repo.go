package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

// GormParticipantRepository implements ParticipantRepository using GORM.
type GormParticipantRepository struct {
	db *gorm.DB
}

// NewGormParticipantRepository creates a new GORM-based participant repository.
func NewGormParticipantRepository(db *gorm.DB) *GormParticipantRepository {
	return &GormParticipantRepository{db: db}
}

// GetOrCreate returns the existing participant record for (room, user) or
// creates one. The composite unique index keeps concurrent joins idempotent.
func (r *GormParticipantRepository) GetOrCreate(ctx context.Context, p *domain.Participant) (*domain.Participant, error) {
	l := log.Ctx(ctx)

	var model domain.ParticipantModel
	err := r.db.WithContext(ctx).
		First(&model, "room_id = ? AND user_id = ?", p.RoomID, p.UserID).Error
	if err == nil {
		return model.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error().Err(err).Str(log.FieldRoomID, p.RoomID).Str(log.FieldUserID, p.UserID).
			Msg("failed to look up participant")
		return nil, err
	}

	p.ID = uuid.New().String()
	p.LastSeen = time.Now()
	model = *domain.ParticipantToModel(p)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		// Lost a concurrent create race: the unique index guarantees a
		// single row, so re-read it.
		var existing domain.ParticipantModel
		if lookupErr := r.db.WithContext(ctx).
			First(&existing, "room_id = ? AND user_id = ?", p.RoomID, p.UserID).Error; lookupErr == nil {
			return existing.ToDomain(), nil
		}
		l.Error().Err(err).Str(log.FieldRoomID, p.RoomID).Str(log.FieldUserID, p.UserID).
			Msg("failed to create participant")
		return nil, err
	}

	p.JoinedAt = model.JoinedAt
	l.Debug().Str(log.FieldRoomID, p.RoomID).Str(log.FieldUserID, p.UserID).Msg("participant created in db")
	return p, nil
}

// SetOnline persists the online flag and refreshes last_seen.
func (r *GormParticipantRepository) SetOnline(ctx context.Context, roomID, userID string, online bool) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Updates(map[string]interface{}{
			"is_online": online,
			"last_seen": time.Now(),
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).
			Msg("failed to set participant online flag")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// TouchLastSeen refreshes last_seen without changing the online flag.
func (r *GormParticipantRepository) TouchLastSeen(ctx context.Context, roomID, userID string) error {
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("last_seen", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// ResetUnread zeroes the unread counter for one participant.
func (r *GormParticipantRepository) ResetUnread(ctx context.Context, roomID, userID string) error {
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("unread_count", 0)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// IncrementUnreadExcept bumps the unread counter of every other participant.
func (r *GormParticipantRepository) IncrementUnreadExcept(ctx context.Context, roomID, exceptUserID string) error {
	l := log.Ctx(ctx)

	err := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("room_id = ? AND user_id <> ?", roomID, exceptUserID).
		Update("unread_count", gorm.Expr("unread_count + 1")).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to increment unread counters")
	}
	return err
}

// ListByRoom returns every participant record of a room.
func (r *GormParticipantRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Participant, error) {
	l := log.Ctx(ctx)

	var models []domain.ParticipantModel
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&models).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list participants")
		return nil, err
	}

	participants := make([]domain.Participant, len(models))
	for i, model := range models {
		participants[i] = *model.ToDomain()
	}
	return participants, nil
}

// CountOnline counts participants currently flagged online.
func (r *GormParticipantRepository) CountOnline(ctx context.Context, roomID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("room_id = ? AND is_online = ?", roomID, true).
		Count(&count).Error
	return int(count), err
}
