package logging

import (
	"os"
	"strings"
)

// Redact strips the user's home directory prefix from user-visible error
// text, so messages surfaced by adapters don't leak local usernames into
// shared terminals or web clients.
func Redact(msg string) string {
	if msg == "" {
		return msg
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return strings.ReplaceAll(msg, home, "~")
	}
	return msg
}
