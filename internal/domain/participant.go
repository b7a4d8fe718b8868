package domain

import "time"

// Participant is a user's membership record within a room. It carries the
// presence and unread state; at most one record exists per (room, user).
type Participant struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email,omitempty"`
	IsOnline    bool      `json:"is_online"`
	LastSeen    time.Time `json:"last_seen"`
	JoinedAt    time.Time `json:"joined_at"`
	UnreadCount int       `json:"unread_count"`
}

// ParticipantModel is the GORM model for the chat_participants table.
type ParticipantModel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	RoomID      string    `gorm:"type:varchar(36);uniqueIndex:idx_room_user;not null"`
	UserID      string    `gorm:"type:varchar(36);uniqueIndex:idx_room_user;not null"`
	UserName    string    `gorm:"type:varchar(150)"`
	UserEmail   string    `gorm:"type:varchar(254)"`
	IsOnline    bool      `gorm:"not null;default:false"`
	LastSeen    time.Time
	JoinedAt    time.Time `gorm:"autoCreateTime"`
	UnreadCount int       `gorm:"not null;default:0"`
}

// TableName specifies the table name for ParticipantModel.
func (ParticipantModel) TableName() string {
	return "chat_participants"
}

// ToDomain converts ParticipantModel to a domain Participant.
func (m *ParticipantModel) ToDomain() *Participant {
	return &Participant{
		ID:          m.ID,
		RoomID:      m.RoomID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		UserEmail:   m.UserEmail,
		IsOnline:    m.IsOnline,
		LastSeen:    m.LastSeen,
		JoinedAt:    m.JoinedAt,
		UnreadCount: m.UnreadCount,
	}
}

// ParticipantToModel converts a domain Participant to its GORM model.
func ParticipantToModel(p *Participant) *ParticipantModel {
	return &ParticipantModel{
		ID:          p.ID,
		RoomID:      p.RoomID,
		UserID:      p.UserID,
		UserName:    p.UserName,
		UserEmail:   p.UserEmail,
		IsOnline:    p.IsOnline,
		LastSeen:    p.LastSeen,
		JoinedAt:    p.JoinedAt,
		UnreadCount: p.UnreadCount,
	}
}
