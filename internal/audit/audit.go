package audit

import (
	"context"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

// Audit actions for the chat core.
const (
	ActionRoomCreate    = "room.create"
	ActionRoomClose     = "room.close"
	ActionMessageCreate = "message.create"
	ActionMessageEdit   = "message.edit"
	ActionMessageDelete = "message.delete"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
