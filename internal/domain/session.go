// Package domain holds the shared types that flow through the ingestion and
// animation pipeline.
package domain

import "time"

// Status is the agent activity reported by a producer.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusThinking  Status = "thinking"
	StatusUsingTool Status = "using-tool"
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Statuses lists every valid status in declaration order.
var Statuses = []Status{
	StatusIdle,
	StatusThinking,
	StatusUsingTool,
	StatusWaiting,
	StatusCompleted,
	StatusError,
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusThinking, StatusUsingTool, StatusWaiting, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Source identifies which producer delivered a session record.
type Source string

const (
	SourceFile   Source = "file"
	SourceRemote Source = "remote"
	SourceManual Source = "manual"
)

// Session is the canonical, normalized record of agent activity.
type Session struct {
	SessionID string `json:"session_id"`
	Status    Status `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Cwd       string `json:"cwd"`
	TTY       string `json:"tty"`
	ToolName  string `json:"tool_name,omitempty"`
	Message   string `json:"message,omitempty"`

	Source Source `json:"-"`
}

// Time returns the producer timestamp as a time.Time.
func (s Session) Time() time.Time {
	return time.Unix(s.Timestamp, 0)
}
