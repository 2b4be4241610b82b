package domain

import "strings"

// Badge tones understood by the UI.
const (
	BadgeInfo      = "info"
	BadgePrimary   = "primary"
	BadgeWarning   = "warning"
	BadgeSuccess   = "success"
	BadgeDanger    = "danger"
	BadgeSecondary = "secondary"
)

var statusBadges = map[string]string{
	"new":            BadgeInfo,
	"open":           BadgeInfo,
	"contacted":      BadgePrimary,
	"in progress":    BadgePrimary,
	"interested":     BadgeWarning,
	"follow up":      BadgeWarning,
	"callback":       BadgeWarning,
	"converted":      BadgeSuccess,
	"closed won":     BadgeSuccess,
	"won":            BadgeSuccess,
	"not interested": BadgeDanger,
	"lost":           BadgeDanger,
	"closed lost":    BadgeDanger,
	"junk":           BadgeDanger,
}

func BadgeFor(status string) string {
	key := strings.ToLower(strings.TrimSpace(status))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	if b, ok := statusBadges[key]; ok {
		return b
	}
	return BadgeSecondary
}
