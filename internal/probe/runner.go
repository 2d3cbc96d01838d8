package probe

import (
	"context"
	"strings"
	"time"

	gocmd "github.com/go-cmd/cmd"

	"github.com/MrSnakeDoc/madvpn/internal/logger"
)

const (
	// TimedOut is returned in place of any output when a command exceeds the timeout.
	TimedOut = "Command timed out"
	// ErrorPrefix starts the text returned when a command could not run at all.
	ErrorPrefix = "Error: "

	DefaultTimeout = 10 * time.Second
)

// Runner executes a command and returns its output as text. Implementations
// never return errors: failures come back as sentinel text.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// Result is the text a command produced. Sentinel is set when Output is
// TimedOut or an ErrorPrefix message written by the runner itself, so a
// command printing "Error: ..." is still treated as output.
type Result struct {
	Output   string
	Sentinel bool
}

func (r Result) String() string { return r.Output }

// Output wraps text produced by the command.
func Output(text string) Result {
	return Result{Output: text}
}

// Failure builds the "Error: ..." sentinel for msg.
func Failure(msg string) Result {
	return Result{Output: ErrorPrefix + msg, Sentinel: true}
}

// Timeout is the sentinel returned when a command exceeds its bound.
func Timeout() Result {
	return Result{Output: TimedOut, Sentinel: true}
}

// ProcessRunner runs commands as child processes in their own process group,
// so a timeout kills the whole tree.
type ProcessRunner struct {
	timeout time.Duration
	logger  logger.Logger
}

// NewRunner creates a ProcessRunner. A non-positive timeout uses DefaultTimeout.
func NewRunner(timeout time.Duration, log logger.Logger) *ProcessRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ProcessRunner{
		timeout: timeout,
		logger:  log,
	}
}

// Timeout returns the per-command bound.
func (r *ProcessRunner) Timeout() time.Duration { return r.timeout }

// Run executes cmd and returns stdout followed by stderr.
func (r *ProcessRunner) Run(ctx context.Context, cmd Command) Result {
	if cmd.IsZero() {
		r.logger.Error("refusing to run empty command")
		return Failure("empty command")
	}

	r.logger.Debug("executing command", logger.String("command", cmd.String()))

	if err := ctx.Err(); err != nil {
		r.logger.Error("command not started", logger.String("command", cmd.String()), logger.Error(err))
		return Failure(err.Error())
	}

	proc := gocmd.NewCmdOptions(gocmd.Options{Buffered: true}, cmd.Name, cmd.Args...)
	statusCh := proc.Start()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case st := <-statusCh:
		if st.Error != nil {
			r.logger.Error("command error",
				logger.String("command", cmd.String()),
				logger.Error(st.Error))
			return Failure(st.Error.Error())
		}
		r.logger.Debug("command finished",
			logger.String("command", cmd.String()),
			logger.Int("exit", st.Exit),
			logger.Duration("runtime", time.Duration(st.Runtime*float64(time.Second))))
		return Output(joinLines(st.Stdout) + joinLines(st.Stderr))

	case <-timer.C:
		r.kill(proc, cmd)
		r.logger.Error("command timeout",
			logger.String("command", cmd.String()),
			logger.Duration("timeout", r.timeout))
		return Timeout()

	case <-ctx.Done():
		r.kill(proc, cmd)
		r.logger.Error("command cancelled",
			logger.String("command", cmd.String()),
			logger.Error(ctx.Err()))
		return Failure(ctx.Err().Error())
	}
}

func (r *ProcessRunner) kill(proc *gocmd.Cmd, cmd Command) {
	if err := proc.Stop(); err != nil {
		r.logger.Warn("failed to stop command",
			logger.String("command", cmd.String()),
			logger.Error(err))
	}
}

// joinLines rebuilds a stream from buffered lines and drops NUL bytes and
// invalid UTF-8.
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	s := strings.ReplaceAll(b.String(), "\x00", "")
	return strings.ToValidUTF8(s, "")
}
