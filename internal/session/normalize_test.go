package session

import (
	"errors"
	"testing"
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
)

func TestNormalize_RejectsMissingRequiredFields(t *testing.T) {
	t.Parallel()

	payloads := map[string]string{
		"no status":      `{"timestamp": 1700000000, "session_id": "s1"}`,
		"null status":    `{"status": null, "timestamp": 1700000000}`,
		"no timestamp":   `{"status": "thinking", "session_id": "s1"}`,
		"zero timestamp": `{"status": "thinking", "timestamp": 0}`,
		"string time":    `{"status": "thinking", "timestamp": "soon"}`,
		"empty object":   `{}`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize([]byte(payload), FileOptions())
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
		})
	}
}

func TestNormalize_CoercesUnknownStatusToIdle(t *testing.T) {
	t.Parallel()

	payloads := []string{
		`{"status": "dreaming", "timestamp": 1700000000}`,
		`{"status": "", "timestamp": 1700000000}`,
		`{"status": 42, "timestamp": 1700000000}`,
		`{"status": {"nested": true}, "timestamp": 1700000000}`,
		`{"status": "THINKING", "timestamp": 1700000000}`,
	}

	for _, payload := range payloads {
		got, err := Normalize([]byte(payload), FileOptions())
		if err != nil {
			t.Fatalf("Normalize(%s) returned error: %v", payload, err)
		}
		if got.Status != domain.StatusIdle {
			t.Errorf("Normalize(%s) status = %q, expected idle", payload, got.Status)
		}
	}
}

func TestNormalize_AcceptsEveryValidStatus(t *testing.T) {
	t.Parallel()

	for _, status := range domain.Statuses {
		payload := `{"status": "` + string(status) + `", "timestamp": 1700000000}`
		got, err := Normalize([]byte(payload), FileOptions())
		if err != nil {
			t.Fatalf("Normalize(%s) returned error: %v", status, err)
		}
		if got.Status != status {
			t.Errorf("Expected status %q, got %q", status, got.Status)
		}
	}
}

func TestNormalize_ParseErrors(t *testing.T) {
	t.Parallel()

	payloads := []string{
		``,
		`{"status": "idle",`,
		`[1, 2, 3]`,
		`null`,
		`"idle"`,
		`{"status": "idle", "timestamp": 1} {"status": "error"}`,
	}

	for _, payload := range payloads {
		_, err := Normalize([]byte(payload), RemoteOptions(nil))
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Normalize(%q) expected ParseError, got %v", payload, err)
		}
	}
}

func TestNormalize_FileDefaults(t *testing.T) {
	t.Parallel()

	got, err := Normalize([]byte(`{
		// written by the hook script
		"status": "using-tool",
		"tool_name": "Bash",
		"timestamp": 1700000000,
	}`), FileOptions())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if got.SessionID != "" {
		t.Errorf("Expected absent session_id to stay empty, got %q", got.SessionID)
	}
	if got.Cwd != "file" || got.TTY != "file" {
		t.Errorf("Expected file placeholders, got cwd=%q tty=%q", got.Cwd, got.TTY)
	}
	if got.Message != "" {
		t.Errorf("Expected absent message to stay empty, got %q", got.Message)
	}
	if got.ToolName != "Bash" {
		t.Errorf("Expected tool_name Bash, got %q", got.ToolName)
	}
	if got.Source != domain.SourceFile {
		t.Errorf("Expected source file, got %q", got.Source)
	}
}

func TestNormalize_RemoteDefaults(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000123, 0)
	got, err := Normalize([]byte(`{"status": "waiting"}`), RemoteOptions(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if got.Timestamp != now.Unix() {
		t.Errorf("Expected timestamp %d, got %d", now.Unix(), got.Timestamp)
	}
	if got.SessionID != "remote" || got.Cwd != "remote" || got.TTY != "remote" {
		t.Errorf("Expected remote placeholders, got %+v", got)
	}
}

func TestNormalize_RemoteIsStrictJSON(t *testing.T) {
	t.Parallel()

	_, err := Normalize([]byte(`{"status": "idle", /* c */ "timestamp": 1}`), RemoteOptions(nil))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ParseError for comments in remote payload, got %v", err)
	}
}

func TestNormalize_FractionalTimestamp(t *testing.T) {
	t.Parallel()

	got, err := Normalize([]byte(`{"status": "idle", "timestamp": 1700000000.75}`), FileOptions())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got.Timestamp != 1700000000 {
		t.Errorf("Expected truncated timestamp, got %d", got.Timestamp)
	}
}

func TestNormalize_DropsToolNameOutsideToolUse(t *testing.T) {
	t.Parallel()

	got, err := Normalize([]byte(`{"status": "thinking", "tool_name": "Bash", "timestamp": 1700000000}`), FileOptions())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got.ToolName != "" {
		t.Errorf("Expected tool_name cleared for thinking, got %q", got.ToolName)
	}

	got, err = Normalize([]byte(`{"status": "dreaming", "tool_name": "Read"}`), RemoteOptions(nil))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got.Status != domain.StatusIdle || got.ToolName != "" {
		t.Errorf("Expected coerced idle without tool, got status=%q tool=%q", got.Status, got.ToolName)
	}
}
