package app

import (
	"fmt"
)

// FailureKind classifies why a single record could not be processed during a pass.
// Every kind is a soft failure: the record is left as is and retried on a later tick.
type FailureKind string

const (
	KindGuildUnavailable   FailureKind = "GUILD_UNAVAILABLE"
	KindConfigMissing      FailureKind = "CONFIG_MISSING"
	KindChannelUnavailable FailureKind = "CHANNEL_UNAVAILABLE"
	KindChannelForbidden   FailureKind = "CHANNEL_FORBIDDEN"
	KindSendFailed         FailureKind = "SEND_FAILED"
	KindMarkFailed         FailureKind = "MARK_FAILED"

	// Retention sweep kinds. These never block the record purge.
	KindRoleMissing      FailureKind = "ROLE_MISSING"
	KindRoleForbidden    FailureKind = "ROLE_FORBIDDEN"
	KindRoleDeleteFailed FailureKind = "ROLE_DELETE_FAILED"
)

// RecordError describes the failure of one mention record within a pass.
type RecordError struct {
	Kind      FailureKind
	MentionID int64
	GuildID   string
	RoleID    string
	Err       error
}

func (e *RecordError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: mention %d (guild %s, role %s)", e.Kind, e.MentionID, e.GuildID, e.RoleID)
	}
	return fmt.Sprintf("%s: mention %d (guild %s, role %s): %v", e.Kind, e.MentionID, e.GuildID, e.RoleID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
