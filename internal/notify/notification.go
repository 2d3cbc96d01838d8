package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/probe"
)

const (
	DefaultStatusDuration   = 5 * time.Second
	DefaultProgressDuration = 2 * time.Second
)

// StatusText is the human label for a probe result.
func StatusText(info probe.StatusInfo) string {
	switch info.State {
	case probe.Running:
		if info.Heuristic {
			return "Active (check logs)"
		}
		return "Running"
	case probe.Stopped:
		return "Stopped"
	case probe.Failed:
		return "Failed"
	case probe.NotFound:
		return "Service Not Found"
	default:
		return "Unknown"
	}
}

// SeverityFor maps a state to the renderer icon.
func SeverityFor(state probe.State) domain.Severity {
	switch state {
	case probe.Running:
		return domain.SeverityInfo
	case probe.Stopped:
		return domain.SeverityWarning
	default:
		return domain.SeverityError
	}
}

// StatusMessage renders "<service>: <text>", adding the PID for a running unit.
func StatusMessage(service string, info probe.StatusInfo) string {
	msg := fmt.Sprintf("%s: %s", service, StatusText(info))
	if info.IsRunning() && info.HasPID() {
		msg += fmt.Sprintf(" (PID: %d)", *info.PID)
	}
	return msg
}

// FromStatus builds the notification shown after a status probe.
func FromStatus(title, service string, info probe.StatusInfo, d time.Duration) domain.Notification {
	if d <= 0 {
		d = DefaultStatusDuration
	}
	return domain.Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   StatusMessage(service, info),
		Severity:  SeverityFor(info.State),
		Duration:  d,
		Action:    domain.ActionStatus,
		State:     info.State.String(),
		CreatedAt: time.Now(),
	}
}

// Progress builds a short-lived notification such as "Starting OpenVPN...".
func Progress(title, message string, action domain.Action, sev domain.Severity, d time.Duration) domain.Notification {
	if d <= 0 {
		d = DefaultProgressDuration
	}
	return domain.Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Severity:  sev,
		Duration:  d,
		Action:    action,
		CreatedAt: time.Now(),
	}
}
