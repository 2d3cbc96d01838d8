package probe

import (
	"regexp"
	"strconv"
	"strings"
)

var mainPIDRe = regexp.MustCompile(`Main PID: (\d+)`)

// rule is one entry of the classification table. match receives the raw
// text and its lower-cased copy.
type rule struct {
	name      string
	state     State
	heuristic bool
	match     func(text, lower string) bool
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// rules is evaluated top to bottom, first match wins. Most specific markers
// come first; the loaded+active pair is a loose fallback.
var rules = []rule{
	{
		name:  "active-running",
		state: Running,
		match: func(text, _ string) bool {
			return containsAny(text, "Active: active (running)", "active (running)")
		},
	},
	{
		name:  "inactive",
		state: Stopped,
		match: func(text, _ string) bool {
			return containsAny(text, "Active: inactive", "inactive (dead)")
		},
	},
	{
		name:  "failed",
		state: Failed,
		match: func(text, _ string) bool {
			return containsAny(text, "Active: failed", "failed")
		},
	},
	{
		name:  "not-found",
		state: NotFound,
		match: func(text, _ string) bool {
			return containsAny(text, "could not be found", "not found", "not-found")
		},
	},
	{
		name:      "loaded-active",
		state:     Running,
		heuristic: true,
		match: func(_, lower string) bool {
			return strings.Contains(lower, "loaded") && strings.Contains(lower, "active")
		},
	},
}

// Parser classifies service-manager status output. It holds no state and
// is safe for concurrent use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse classifies text into a StatusInfo. It never panics; text matching no
// rule yields Unknown.
func (p *Parser) Parse(text string) StatusInfo {
	info := StatusInfo{State: Unknown, Raw: text}

	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.match(text, lower) {
			info.State = r.state
			info.Heuristic = r.heuristic
			break
		}
	}

	info.PID = extractPID(text)
	info.Enabled = extractEnabled(text)

	return info
}

// MatchedRule returns the name of the rule that classifies text, or "" when
// none does.
func (p *Parser) MatchedRule(text string) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.match(text, lower) {
			return r.name
		}
	}
	return ""
}

func extractPID(text string) *int {
	m := mainPIDRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	pid, err := strconv.Atoi(m[1])
	if err != nil {
		// digit run too long for int
		return nil
	}
	return &pid
}

// extractEnabled reports the unit file state once a "Loaded:" line is
// present: "enabled" anywhere in the text wins over "disabled".
func extractEnabled(text string) *bool {
	if !strings.Contains(text, "Loaded:") {
		return nil
	}

	var v bool
	switch {
	case strings.Contains(text, "enabled"):
		v = true
	case strings.Contains(text, "disabled"):
		v = false
	default:
		return nil
	}
	return &v
}
