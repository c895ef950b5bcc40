package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateWidgetID returns a new widget instance id.
func GenerateWidgetID() string {
	return "wgt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateLockToken returns a token identifying one holder of a lock.
func GenerateLockToken() string {
	return uuid.NewString()
}

// ValidWidgetID reports whether id is usable as a widget id and store key.
func ValidWidgetID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
