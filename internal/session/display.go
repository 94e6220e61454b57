package session

import (
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
)

// DefaultStaleAfter is how old a record may be before it is considered stale.
const DefaultStaleAfter = 60 * time.Second

var toolDisplayNames = map[string]string{
	"Read":      "Reading file",
	"Write":     "Writing file",
	"Edit":      "Editing file",
	"Bash":      "Running command",
	"Glob":      "Searching files",
	"Grep":      "Searching content",
	"Task":      "Running task",
	"WebFetch":  "Fetching web page",
	"WebSearch": "Searching web",
}

// FormatToolName returns a friendly caption for a tool name.
func FormatToolName(toolName string) string {
	if name, ok := toolDisplayNames[toolName]; ok {
		return name
	}
	return toolName
}

// IsStale reports whether s has not been refreshed within maxAge of now.
func IsStale(s domain.Session, now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultStaleAfter
	}
	return now.Sub(s.Time()) > maxAge
}
