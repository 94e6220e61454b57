package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/ashureev/clawdachi/internal/hook"
)

func newStatusCmd(a *app) *cobra.Command {
	var toolName, message, sessionID, remote string

	cmd := &cobra.Command{
		Use:   "status <status>",
		Short: "Publish a status the way an agent hook would",
		Long: "Publish a status the way an agent hook would. Valid statuses: " +
			joinStatuses() + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := manualSession(args[0], toolName, message, sessionID, time.Now())
			if err != nil {
				return err
			}

			if remote != "" {
				changed, err := hook.PostStatus(cmd.Context(), nil, remote, s)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s (changed=%t)\n", s.Status, remote, changed)
				return nil
			}

			if err := hook.WriteStatus(a.cfg.StatusFile, s); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s to %s\n", s.Status, a.cfg.StatusFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&toolName, "tool", "", "tool name for using-tool")
	cmd.Flags().StringVar(&message, "message", "", "free-form message")
	cmd.Flags().StringVar(&sessionID, "session", "manual", "session id")
	cmd.Flags().StringVar(&remote, "remote", "", "listener base URL, e.g. http://host:9876")
	return cmd
}

// manualSession builds the record for "clawdachi status". Unlike producers,
// the command rejects unknown statuses instead of coercing them to idle.
func manualSession(status, toolName, message, sessionID string, now time.Time) (domain.Session, error) {
	st := domain.Status(strings.TrimSpace(status))
	if !st.Valid() {
		return domain.Session{}, fmt.Errorf("unknown status %q (valid: %s)", status, joinStatuses())
	}

	if st != domain.StatusUsingTool {
		toolName = ""
	}
	cwd, _ := os.Getwd()

	return domain.Session{
		SessionID: sessionID,
		Status:    st,
		Timestamp: now.Unix(),
		Cwd:       cwd,
		TTY:       os.Getenv("TTY"),
		ToolName:  toolName,
		Message:   message,
		Source:    domain.SourceManual,
	}, nil
}

func joinStatuses() string {
	names := make([]string, len(domain.Statuses))
	for i, s := range domain.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
