package probe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// State is the classified state of the service unit.
type State int

const (
	Unknown State = iota
	Running
	Stopped
	Failed
	NotFound
)

var stateNames = map[State]string{
	Unknown:  "unknown",
	Running:  "running",
	Stopped:  "stopped",
	Failed:   "failed",
	NotFound: "not_found",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return stateNames[Unknown]
}

// ParseState is the inverse of String. Unrecognised names map to Unknown.
func ParseState(name string) State {
	name = strings.ToLower(strings.TrimSpace(name))
	for st, n := range stateNames {
		if n == name {
			return st
		}
	}
	return Unknown
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("state must be a string: %w", err)
	}
	*s = ParseState(name)
	return nil
}

// StatusInfo is the result of one status probe. It is built once per parse
// and never mutated afterwards.
type StatusInfo struct {
	State     State  `json:"state"`
	PID       *int   `json:"pid,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"`
	Heuristic bool   `json:"heuristic,omitempty"` // classified by the loaded+active fallback
	Raw       string `json:"raw"`
}

// HasPID reports whether a main PID was extracted.
func (s StatusInfo) HasPID() bool { return s.PID != nil }

// IsRunning reports whether the unit is considered up.
func (s StatusInfo) IsRunning() bool { return s.State == Running }

// UnknownStatus wraps text that must not be classified, such as runner sentinels.
func UnknownStatus(raw string) StatusInfo {
	return StatusInfo{State: Unknown, Raw: raw}
}
