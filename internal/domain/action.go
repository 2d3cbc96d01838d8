package domain

import (
	"fmt"
	"strings"
)

// Action is one of the remote-control triggers.
type Action string

const (
	ActionInfo   Action = "info"
	ActionStatus Action = "status"
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
)

// Actions lists every trigger in display order.
var Actions = []Action{ActionInfo, ActionStatus, ActionStart, ActionStop}

// ParseAction normalizes name and checks it is a known action.
func ParseAction(name string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(name)))
	if a.Valid() {
		return a, nil
	}
	return "", fmt.Errorf("unknown action: %q", name)
}

// Normalize lower-cases and trims the action name.
func (a Action) Normalize() Action {
	return Action(strings.ToLower(strings.TrimSpace(string(a))))
}

func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

func (a Action) String() string { return string(a) }
