package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Severity selects the icon a renderer shows next to a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "error"
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("severity must be a string: %w", err)
	}
	switch name {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity: %q", name)
	}
	return nil
}

// Notification is one on-screen message handed to a renderer.
type Notification struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	Duration  time.Duration `json:"duration"`
	Action    Action        `json:"action,omitempty"`
	State     string        `json:"state,omitempty"` // set for status results only
	CreatedAt time.Time     `json:"created_at"`
}
