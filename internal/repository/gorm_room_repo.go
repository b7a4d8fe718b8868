package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/database"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Create creates a new room. The slug is globally unique; a duplicate slug
// yields ErrSlugTaken.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	room.ID = uuid.New().String()
	room.IsActive = true
	if room.Slug == "" {
		room.Slug = domain.Slugify(room.Name)
	}

	model := domain.RoomToModel(room)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrSlugTaken
		}
		l.Error().Err(result.Error).Msg("failed to create room in db")
		return result.Error
	}

	room.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldRoomID, room.ID).Str(log.FieldRoomSlug, room.Slug).Msg("room created in db")
	return nil
}

// GetBySlug retrieves the active room with the given slug.
func (r *GormRoomRepository) GetBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	l := log.Ctx(ctx)

	var model domain.RoomModel
	result := r.db.WithContext(ctx).First(&model, "slug = ? AND is_active = ?", slug, true)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomSlug, slug).Msg("failed to get room by slug")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByID retrieves a room by ID regardless of its active flag.
func (r *GormRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	l := log.Ctx(ctx)

	var model domain.RoomModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to get room by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListByType retrieves active rooms, optionally filtered by type, newest first.
func (r *GormRoomRepository) ListByType(ctx context.Context, roomType domain.RoomType) ([]domain.Room, error) {
	l := log.Ctx(ctx)

	query := r.db.WithContext(ctx).Model(&domain.RoomModel{}).Where("is_active = ?", true)
	if roomType != "" {
		query = query.Where("room_type = ?", string(roomType))
	}

	var models []domain.RoomModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list rooms from db")
		return nil, err
	}

	rooms := make([]domain.Room, len(models))
	for i, model := range models {
		rooms[i] = *model.ToDomain()
	}
	return rooms, nil
}

// AddParticipant records a user in the room's participant set. Adding an
// existing participant is a no-op.
func (r *GormRoomRepository) AddParticipant(ctx context.Context, roomID, userID string) error {
	l := log.Ctx(ctx)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.RoomModel
		if err := tx.First(&model, "id = ?", roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		if model.ParticipantIDs.Contains(userID) {
			return nil
		}

		ids := append(model.ParticipantIDs, userID)
		if err := tx.Model(&domain.RoomModel{}).
			Where("id = ?", roomID).
			Update("participant_ids", database.StringArray(ids)).Error; err != nil {
			l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to add participant to room")
			return err
		}
		return nil
	})
}

// Deactivate flips is_active off. History stays readable; the room accepts
// no new connections or messages.
func (r *GormRoomRepository) Deactivate(ctx context.Context, roomID string) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.RoomModel{}).
		Where("id = ? AND is_active = ?", roomID, true).
		Updates(map[string]interface{}{
			"is_active": false,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to deactivate room in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	l.Debug().Str(log.FieldRoomID, roomID).Msg("room deactivated in db")
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
