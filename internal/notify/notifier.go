package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
)

// Notifier renders a notification to the user. Implementations must not
// block for long: callers run on the action path.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	log := l.logger.Error
	switch n.Severity {
	case domain.SeverityInfo:
		log = l.logger.Info
	case domain.SeverityWarning:
		log = l.logger.Warn
	}

	log("notification: "+n.Message,
		logger.String("title", n.Title),
		logger.String("id", n.ID),
		logger.String("action", n.Action.String()),
		logger.Duration("duration", n.Duration))
	return nil
}

// WriterNotifier prints one line per notification, used by the CLI.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (wn *WriterNotifier) Notify(_ context.Context, n domain.Notification) error {
	wn.mu.Lock()
	defer wn.mu.Unlock()

	// multi-line messages (the info text) are indented under the header
	msg := strings.ReplaceAll(n.Message, "\n", "\n    ")
	if _, err := fmt.Fprintf(wn.w, "[%s] %s\n", strings.ToUpper(n.Severity.String()), msg); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// Multi fans a notification out to every notifier. All are attempted;
// errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, nt := range m {
		if nt == nil {
			continue
		}
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *Recorder) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications.
func (r *Recorder) Sent() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Messages returns the recorded messages in order.
func (r *Recorder) Messages() []string {
	sent := r.Sent()
	out := make([]string, 0, len(sent))
	for _, n := range sent {
		out = append(out, n.Message)
	}
	return out
}
