package infrastructure

import (
	"fmt"
	"os/exec"

	"github.com/yourusername/yle-dl-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService handles sending desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	switch n.config.Method {
	case "osascript":
		return n.sendOSAScript(title, message)
	case "notify-send":
		return n.sendNotifySend(title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}
}

// sendOSAScript sends notification using macOS osascript
func (n *NotificationService) sendOSAScript(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	if n.config.Sound {
		script += ` sound name "default"`
	}
	return n.deliver("osascript", title, message, "-e", script)
}

// sendNotifySend sends notification using Linux notify-send
func (n *NotificationService) sendNotifySend(title, message string) error {
	return n.deliver("notify-send", title, message, "--app-name=yle-dl", title, message)
}

func (n *NotificationService) deliver(method, title, message string, args ...string) error {
	if err := n.run(method, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyDownloadCompleted sends notification when a clip was saved
func (n *NotificationService) NotifyDownloadCompleted(title, file string) {
	n.Send("Download Completed", fmt.Sprintf("%s saved to %s", truncateString(title, 40), file))
}

// NotifyDownloadFailed sends notification when a clip could not be saved
func (n *NotificationService) NotifyDownloadFailed(title, url, reason string) {
	name := title
	if name == "" {
		name = url
	}
	n.Send("Download Failed", fmt.Sprintf("%s: %s", truncateString(name, 40), reason))
}

// truncateString truncates a string to the specified number of runes
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
