package audit

import (
	"context"

	"github.com/Anselwang99/mateFinder/pkg/log"
)

// Audit actions.
const (
	ActionSignup         = "user.signup"
	ActionLogin          = "user.login"
	ActionLoginFailed    = "user.login_failed"
	ActionUpdateProfile  = "user.update_profile"
	ActionUpdateLocation = "user.update_location"
	ActionConnect        = "session.connect"
	ActionDisconnect     = "session.disconnect"
	ActionAuthRejected   = "session.auth_rejected"
	ActionCreateChat     = "chat.create"
	ActionSendMessage    = "chat.send_message"
	ActionSendMedia      = "chat.send_media"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
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
