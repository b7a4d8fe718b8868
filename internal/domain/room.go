package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/database"
	"gorm.io/gorm"
)

// RoomType classifies a chat room.
type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
	RoomTypeCourse  RoomType = "course"
	RoomTypeGroup   RoomType = "group"
)

// ValidRoomType reports whether t is one of the known room types.
func ValidRoomType(t RoomType) bool {
	switch t {
	case RoomTypePublic, RoomTypePrivate, RoomTypeCourse, RoomTypeGroup:
		return true
	}
	return false
}

// Room is a named channel grouping participants and messages.
type Room struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Type           RoomType  `json:"room_type"`
	Description    string    `json:"description,omitempty"`
	CreatedByID    string    `json:"created_by_id"`
	CreatedByName  string    `json:"created_by_name"`
	CreatedByEmail string    `json:"created_by_email,omitempty"`
	ParticipantIDs []string  `json:"participant_ids,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateRoomRequest is the payload for creating a room over HTTP.
type CreateRoomRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=200"`
	Type        RoomType `json:"room_type"`
	Description string   `json:"description"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-stable slug from a room name.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// RoomModel is the GORM model for the rooms table.
type RoomModel struct {
	ID             string               `gorm:"type:varchar(36);primaryKey"`
	Name           string               `gorm:"type:varchar(200);not null"`
	Slug           string               `gorm:"type:varchar(220);uniqueIndex;not null"`
	RoomType       string               `gorm:"type:varchar(20);index;not null;default:'public'"`
	Description    string               `gorm:"type:text"`
	CreatedByID    string               `gorm:"type:varchar(36);index"`
	CreatedByName  string               `gorm:"type:varchar(150)"`
	CreatedByEmail string               `gorm:"type:varchar(254)"`
	ParticipantIDs database.StringArray `gorm:"type:text"`
	IsActive       bool                 `gorm:"index;not null;default:true"`
	CreatedAt      time.Time            `gorm:"autoCreateTime"`
	DeletedAt      gorm.DeletedAt       `gorm:"index"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "rooms"
}

// ToDomain converts RoomModel to a domain Room.
func (m *RoomModel) ToDomain() *Room {
	return &Room{
		ID:             m.ID,
		Name:           m.Name,
		Slug:           m.Slug,
		Type:           RoomType(m.RoomType),
		Description:    m.Description,
		CreatedByID:    m.CreatedByID,
		CreatedByName:  m.CreatedByName,
		CreatedByEmail: m.CreatedByEmail,
		ParticipantIDs: []string(m.ParticipantIDs),
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
	}
}

// RoomToModel converts a domain Room to its GORM model.
func RoomToModel(r *Room) *RoomModel {
	return &RoomModel{
		ID:             r.ID,
		Name:           r.Name,
		Slug:           r.Slug,
		RoomType:       string(r.Type),
		Description:    r.Description,
		CreatedByID:    r.CreatedByID,
		CreatedByName:  r.CreatedByName,
		CreatedByEmail: r.CreatedByEmail,
		ParticipantIDs: database.StringArray(r.ParticipantIDs),
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
	}
}
