package domain

// WebSocket envelope types from the client.
const (
	EnvTypeMessage       = "message"
	EnvTypeTyping        = "typing"
	EnvTypeDeleteMessage = "delete_message"
	EnvTypeEditMessage   = "edit_message"
)

// WebSocket envelope types to the client.
const (
	EnvTypeUserStatus     = "user_status"
	EnvTypeMessageDeleted = "message_deleted"
	EnvTypeMessageEdited  = "message_edited"
	EnvTypeError          = "error"
)

// Presence statuses carried by user_status envelopes.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Error codes carried by error envelopes.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseEnvelope is decoded first to dispatch on the envelope type.
type BaseEnvelope struct {
	Type string `json:"type"`
}

// Client -> Server envelopes

type InboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type InboundTyping struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

type InboundDeleteMessage struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
}

type InboundEditMessage struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

// Server -> Client envelopes

type OutboundMessage struct {
	Type        string `json:"type"`
	MessageID   string `json:"message_id"`
	Content     string `json:"content"`
	SenderID    string `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	DisplayName string `json:"display_name"`
	Timestamp   string `json:"timestamp"`
}

type OutboundUserStatus struct {
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
}

type OutboundTyping struct {
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsTyping    bool   `json:"is_typing"`
}

type OutboundMessageDeleted struct {
	Type        string `json:"type"`
	MessageID   string `json:"message_id"`
	DeletedText string `json:"deleted_text"`
	UserID      string `json:"user_id"`
}

type OutboundMessageEdited struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	EditedAt  string `json:"edited_at"`
	UserID    string `json:"user_id"`
}

type ErrorEnvelope struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorEnvelope builds an error envelope for the requesting client only.
func NewErrorEnvelope(code, message string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Type:    EnvTypeError,
		Code:    code,
		Message: message,
	}
}
