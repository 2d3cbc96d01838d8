package probe

import (
	"fmt"
	"strings"
)

const (
	DefaultManager = "systemctl"
	DefaultUnit    = "openvpn.service"

	DefaultStatusTemplate = "{manager} status {unit}"
	DefaultStartTemplate  = "{manager} start {unit}"
	DefaultStopTemplate   = "{manager} stop {unit}"

	// shellPrefix marks a template that must run through /bin/sh -c.
	shellPrefix = "sh:"
	shellPath   = "/bin/sh"
)

// Command is one process invocation.
type Command struct {
	Name string
	Args []string
}

// Shell wraps a command line so it runs through /bin/sh -c.
func Shell(line string) Command {
	return Command{Name: shellPath, Args: []string{"-c", line}}
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// IsZero reports whether the command has nothing to run.
func (c Command) IsZero() bool { return c.Name == "" }

// CommandSet holds the status/start/stop invocations for a single unit.
type CommandSet struct {
	Status Command
	Start  Command
	Stop   Command
}

// Templates configures a CommandSet. Empty fields fall back to the defaults.
type Templates struct {
	Manager string
	Unit    string
	Status  string
	Start   string
	Stop    string
}

// NewCommandSet expands the {manager} and {unit} placeholders of each template
// and splits the result into an argument vector.
func NewCommandSet(t Templates) (CommandSet, error) {
	manager := firstNonEmpty(t.Manager, DefaultManager)
	unit := firstNonEmpty(t.Unit, DefaultUnit)
	r := strings.NewReplacer("{manager}", manager, "{unit}", unit)

	build := func(kind, tmpl, def string) (Command, error) {
		cmd := expand(r, firstNonEmpty(tmpl, def))
		if cmd.IsZero() {
			return Command{}, fmt.Errorf("%s command template is empty", kind)
		}
		return cmd, nil
	}

	var (
		set CommandSet
		err error
	)
	if set.Status, err = build("status", t.Status, DefaultStatusTemplate); err != nil {
		return CommandSet{}, err
	}
	if set.Start, err = build("start", t.Start, DefaultStartTemplate); err != nil {
		return CommandSet{}, err
	}
	if set.Stop, err = build("stop", t.Stop, DefaultStopTemplate); err != nil {
		return CommandSet{}, err
	}
	return set, nil
}

// DefaultCommandSet is the systemctl set for openvpn.service.
func DefaultCommandSet() CommandSet {
	set, _ := NewCommandSet(Templates{})
	return set
}

func expand(r *strings.Replacer, tmpl string) Command {
	tmpl = strings.TrimSpace(tmpl)
	if rest, ok := strings.CutPrefix(tmpl, shellPrefix); ok {
		line := strings.TrimSpace(r.Replace(rest))
		if line == "" {
			return Command{}
		}
		return Shell(line)
	}

	fields := strings.Fields(r.Replace(tmpl))
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Name: fields[0], Args: fields[1:]}
}

func firstNonEmpty(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
