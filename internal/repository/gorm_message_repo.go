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

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create persists a new message. The stored timestamp is authoritative for
// history ordering.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	l := log.Ctx(ctx)

	msg.ID = uuid.New().String()
	msg.State = domain.MessageStateActive
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	model := domain.MessageToModel(msg)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("failed to create message in db")
		return err
	}

	msg.Timestamp = model.Timestamp
	l.Debug().Str(log.FieldMessageID, msg.ID).Str(log.FieldRoomID, msg.RoomID).Msg("message created in db")
	return nil
}

// GetByID retrieves a message by ID.
func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	var model domain.MessageModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldMessageID, id).Msg("failed to get message by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListByRoom returns messages for a room ordered by persisted timestamp,
// newest first. Deleted messages keep their chronological position when
// includeDeleted is set.
func (r *GormMessageRepository) ListByRoom(ctx context.Context, roomID string, limit, offset int, includeDeleted bool) ([]domain.Message, error) {
	l := log.Ctx(ctx)

	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).Where("room_id = ?", roomID)
	if !includeDeleted {
		query = query.Where("state <> ?", string(domain.MessageStateDeleted))
	}

	var models []domain.MessageModel
	if err := query.Order("timestamp DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages from db")
		return nil, err
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}
	return messages, nil
}

// MarkEdited persists the new content and the edited state. Deleted messages
// are never updated; the state guard is part of the WHERE clause so a lost
// race with a concurrent delete cannot resurrect content.
func (r *GormMessageRepository) MarkEdited(ctx context.Context, id, content string, at time.Time) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("id = ? AND state <> ?", id, string(domain.MessageStateDeleted)).
		Updates(map[string]interface{}{
			"content":   content,
			"state":     string(domain.MessageStateEdited),
			"edited_at": at,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldMessageID, id).Msg("failed to mark message edited")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkDeleted transitions a message to its terminal deleted state and
// replaces the content with the tombstone. Repeating the call is a no-op
// error, never a second mutation.
func (r *GormMessageRepository) MarkDeleted(ctx context.Context, id string, at time.Time, byID, byName, tombstone string) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("id = ? AND state <> ?", id, string(domain.MessageStateDeleted)).
		Updates(map[string]interface{}{
			"content":         tombstone,
			"state":           string(domain.MessageStateDeleted),
			"deleted_at":      at,
			"deleted_by_id":   byID,
			"deleted_by_name": byName,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldMessageID, id).Msg("failed to mark message deleted")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
