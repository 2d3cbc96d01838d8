package keymap

import "github.com/MrSnakeDoc/madvpn/internal/domain"

// File is the top-level structure of keymap.yaml
type File struct {
	Buttons []Binding `yaml:"buttons" validate:"required,min=1,dive"`
}

// Binding maps one remote-control button to an action
type Binding struct {
	Button string        `yaml:"button" json:"button" validate:"required,max=32"`
	Code   int           `yaml:"code,omitempty" json:"code,omitempty" validate:"gte=0"` // host action id, 0 = name only
	Action domain.Action `yaml:"action" json:"action" validate:"required,oneof=info status start stop"`
	Label  string        `yaml:"label,omitempty" json:"label,omitempty"`
}

// Remote color button action ids.
const (
	CodeRed    = 0xF043
	CodeGreen  = 0xF044
	CodeYellow = 0xF045
)

// Default is used when no keymap file is configured.
func Default() []Binding {
	return []Binding{
		{Button: "red", Code: CodeRed, Action: domain.ActionStatus, Label: "Check VPN status"},
		{Button: "green", Code: CodeGreen, Action: domain.ActionStart, Label: "Start VPN"},
		{Button: "yellow", Code: CodeYellow, Action: domain.ActionStop, Label: "Stop VPN"},
	}
}

func defaultLabel(a domain.Action) string {
	switch a {
	case domain.ActionStatus:
		return "Check VPN status"
	case domain.ActionStart:
		return "Start VPN"
	case domain.ActionStop:
		return "Stop VPN"
	default:
		return "Show help"
	}
}
