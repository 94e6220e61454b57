// Package hook is the producer side of the status contract: it publishes a
// session record either to the watched status file or to a remote listener.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
)

// WriteStatus replaces the status file at path with s. The write goes to a
// temp file in the same directory which is then renamed into place, so a
// watcher never reads a partial record.
func WriteStatus(path string, s domain.Session) (err error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename status file: %w", err)
	}
	tmpPath = ""
	return nil
}

// StatusError is returned when the listener rejects a record.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("listener returned %d: %s", e.Code, e.Message)
}

// PostStatus sends s to the listener at baseURL and reports whether it was
// treated as a change.
func PostStatus(ctx context.Context, client *http.Client, baseURL string, s domain.Session) (bool, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	body, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("encode status: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + "/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("post status: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return false, &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	var ok struct {
		Success bool `json:"success"`
		Changed bool `json:"changed"`
	}
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return ok.Changed, nil
}
