package infrastructure

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

// commandFunc runs an external command; replaced in tests
type commandFunc func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// NotificationService shows desktop notifications when jobs finish
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    commandFunc
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run:    runCommand,
	}
}

// Emit shows a notification for completed and failed jobs only
func (n *NotificationService) Emit(ctx context.Context, note domain.Notification) error {
	if note.Job == nil {
		return nil
	}

	switch note.Name {
	case domain.NotifyCompleted:
		return n.Send(ctx, "Download Completed", truncateString(note.Job.Title, 60))
	case domain.NotifyFailed:
		message := truncateString(note.Job.Title, 60)
		if note.Job.FailureReason != "" {
			message = fmt.Sprintf("%s: %s", message, note.Job.FailureReason)
		}
		return n.Send(ctx, "Download Failed", message)
	default:
		return nil
	}
}

// Send sends a notification
func (n *NotificationService) Send(ctx context.Context, title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`,
			escapeAppleScript(message), escapeAppleScript(title))
		err = n.run(ctx, "osascript", "-e", script)
	case "notify-send":
		err = n.run(ctx, "notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// escapeAppleScript escapes backslashes and double quotes for a string literal
func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// truncateString truncates a string to maxLen runes
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
