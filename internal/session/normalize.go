// Package session turns raw producer payloads into canonical session records
// and decides which of them are worth emitting downstream.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/tidwall/jsonc"
)

// RemotePlaceholder fills context fields the remote producer left out.
const RemotePlaceholder = "remote"

// NormalizeOptions describes producer-specific defaults.
type NormalizeOptions struct {
	Source domain.Source

	// Placeholder fills cwd and tty when absent.
	Placeholder string

	// DefaultSessionID fills session_id when absent. Empty leaves it absent.
	DefaultSessionID string

	// Now, when set, supplies the timestamp for payloads that omit it.
	// When nil a missing timestamp rejects the payload.
	Now func() time.Time

	// AllowComments accepts JSONC (comments and trailing commas).
	AllowComments bool
}

// FileOptions returns the options used for the watched status file.
func FileOptions() NormalizeOptions {
	return NormalizeOptions{
		Source:        domain.SourceFile,
		Placeholder:   string(domain.SourceFile),
		AllowComments: true,
	}
}

// RemoteOptions returns the options used for the network listener.
func RemoteOptions(now func() time.Time) NormalizeOptions {
	if now == nil {
		now = time.Now
	}
	return NormalizeOptions{
		Source:           domain.SourceRemote,
		Placeholder:      RemotePlaceholder,
		DefaultSessionID: RemotePlaceholder,
		Now:              now,
	}
}

// Normalize decodes data into a canonical session record.
//
// Invalid encodings yield *ParseError and missing required fields yield
// *ValidationError. An unrecognized status is coerced to idle rather than
// rejected.
func Normalize(data []byte, opts NormalizeOptions) (domain.Session, error) {
	source := string(opts.Source)
	if source == "" {
		source = "unknown"
	}

	if opts.AllowComments {
		data = jsonc.ToJSON(data)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return domain.Session{}, &ParseError{Source: source, Err: err}
	}
	if fields == nil {
		return domain.Session{}, &ParseError{Source: source, Err: errors.New("payload is not an object")}
	}
	if dec.More() {
		return domain.Session{}, &ParseError{Source: source, Err: errors.New("trailing data after object")}
	}

	rawStatus, ok := fields["status"]
	if !ok || rawStatus == nil {
		return domain.Session{}, &ValidationError{Field: "status", Reason: "is required"}
	}

	timestamp, ok := int64Field(fields, "timestamp")
	if !ok || timestamp == 0 {
		if opts.Now == nil {
			return domain.Session{}, &ValidationError{Field: "timestamp", Reason: "is required"}
		}
		timestamp = opts.Now().Unix()
	}

	s := domain.Session{
		SessionID: stringField(fields, "session_id"),
		Status:    coerceStatus(rawStatus),
		Timestamp: timestamp,
		Cwd:       stringField(fields, "cwd"),
		TTY:       stringField(fields, "tty"),
		ToolName:  stringField(fields, "tool_name"),
		Message:   stringField(fields, "message"),
		Source:    opts.Source,
	}

	// tool_name only means something while a tool is running.
	if s.Status != domain.StatusUsingTool {
		s.ToolName = ""
	}
	if s.SessionID == "" {
		s.SessionID = opts.DefaultSessionID
	}
	if s.Cwd == "" {
		s.Cwd = opts.Placeholder
	}
	if s.TTY == "" {
		s.TTY = opts.Placeholder
	}

	return s, nil
}

// coerceStatus maps anything outside the enum, including non-strings, to idle.
func coerceStatus(v any) domain.Status {
	str, ok := v.(string)
	if !ok {
		return domain.StatusIdle
	}
	status := domain.Status(strings.TrimSpace(str))
	if !status.Valid() {
		return domain.StatusIdle
	}
	return status
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func int64Field(fields map[string]any, key string) (int64, bool) {
	n, ok := fields[key].(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}
