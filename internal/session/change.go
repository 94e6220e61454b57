package session

import "github.com/ashureev/clawdachi/internal/domain"

// IsChange reports whether next differs meaningfully from prev.
//
// Only status, tool name during tool use, and session id count. Message,
// cwd, tty and timestamp deltas are diagnostic and never trigger a change.
func IsChange(prev *domain.Session, next domain.Session) bool {
	if prev == nil {
		return true
	}
	if prev.Status != next.Status {
		return true
	}
	if next.Status == domain.StatusUsingTool && prev.ToolName != next.ToolName {
		return true
	}
	if prev.SessionID != next.SessionID {
		return true
	}
	return false
}
