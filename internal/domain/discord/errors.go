package discord

import (
	"errors"
	"fmt"
)

// Error kinds reported by Client implementations. Use errors.Is to match.
var (
	ErrNotFound  = errors.New("discord resource not found")
	ErrForbidden = errors.New("discord access forbidden")
)

// RoleMention formats the content that pings a role.
func RoleMention(roleID string) string {
	return fmt.Sprintf("<@&%s>", roleID)
}
