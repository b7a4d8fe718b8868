package domain

import (
	"fmt"
	"time"
)

// MessageState is the lifecycle state of a message. Deleted is terminal:
// no transition out of it is ever valid.
type MessageState string

const (
	MessageStateActive  MessageState = "active"
	MessageStateEdited  MessageState = "edited"
	MessageStateDeleted MessageState = "deleted"
)

// Mutable reports whether the message may still be edited or deleted.
func (s MessageState) Mutable() bool {
	return s != MessageStateDeleted
}

// TombstoneText is the fixed placeholder substituted for content after a
// soft-delete.
func TombstoneText(displayName string) string {
	return fmt.Sprintf("%s deleted this message", displayName)
}

// Message is a unit of chat content with a create/edit/delete lifecycle.
type Message struct {
	ID            string       `json:"id"`
	RoomID        string       `json:"room_id"`
	SenderID      string       `json:"sender_id"`
	SenderName    string       `json:"sender_name"`
	SenderEmail   string       `json:"sender_email,omitempty"`
	Content       string       `json:"content"`
	Timestamp     time.Time    `json:"timestamp"`
	State         MessageState `json:"state"`
	EditedAt      *time.Time   `json:"edited_at,omitempty"`
	DeletedAt     *time.Time   `json:"deleted_at,omitempty"`
	DeletedByID   string       `json:"deleted_by_id,omitempty"`
	DeletedByName string       `json:"deleted_by_name,omitempty"`
	AttachmentRef string       `json:"attachment_ref,omitempty"`
}

// IsEdited reports whether the message has been edited at least once.
func (m *Message) IsEdited() bool {
	return m.State == MessageStateEdited
}

// IsDeleted reports whether the message has been soft-deleted.
func (m *Message) IsDeleted() bool {
	return m.State == MessageStateDeleted
}

// MessageModel is the GORM model for the chat_messages table.
type MessageModel struct {
	ID            string `gorm:"type:varchar(36);primaryKey"`
	RoomID        string `gorm:"type:varchar(36);index:idx_room_ts;not null"`
	SenderID      string `gorm:"type:varchar(36);index;not null"`
	SenderName    string `gorm:"type:varchar(150)"`
	SenderEmail   string `gorm:"type:varchar(254)"`
	Content       string `gorm:"type:text;not null"`
	Timestamp     time.Time `gorm:"index:idx_room_ts;autoCreateTime"`
	State         string    `gorm:"type:varchar(10);not null;default:'active'"`
	EditedAt      *time.Time
	DeletedAt     *time.Time
	DeletedByID   string `gorm:"type:varchar(36)"`
	DeletedByName string `gorm:"type:varchar(150)"`
	AttachmentRef string `gorm:"type:varchar(500)"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts MessageModel to a domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:            m.ID,
		RoomID:        m.RoomID,
		SenderID:      m.SenderID,
		SenderName:    m.SenderName,
		SenderEmail:   m.SenderEmail,
		Content:       m.Content,
		Timestamp:     m.Timestamp,
		State:         MessageState(m.State),
		EditedAt:      m.EditedAt,
		DeletedAt:     m.DeletedAt,
		DeletedByID:   m.DeletedByID,
		DeletedByName: m.DeletedByName,
		AttachmentRef: m.AttachmentRef,
	}
}

// MessageToModel converts a domain Message to its GORM model.
func MessageToModel(m *Message) *MessageModel {
	return &MessageModel{
		ID:            m.ID,
		RoomID:        m.RoomID,
		SenderID:      m.SenderID,
		SenderName:    m.SenderName,
		SenderEmail:   m.SenderEmail,
		Content:       m.Content,
		Timestamp:     m.Timestamp,
		State:         string(m.State),
		EditedAt:      m.EditedAt,
		DeletedAt:     m.DeletedAt,
		DeletedByID:   m.DeletedByID,
		DeletedByName: m.DeletedByName,
		AttachmentRef: m.AttachmentRef,
	}
}
