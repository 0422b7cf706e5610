// Package notify delivers short user-facing messages after task actions.
package notify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// PermissionState mirrors the host's notification permission
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionDefault PermissionState = "default"
)

// ParsePermissionState maps a configured value to a state, defaulting to PermissionDefault
func ParsePermissionState(s string) PermissionState {
	switch PermissionState(strings.ToLower(strings.TrimSpace(s))) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	default:
		return PermissionDefault
	}
}

// Permission reports and requests the right to show notifications
type Permission interface {
	State() PermissionState
	// Request asks the user once; it is only called in the default state
	Request(ctx context.Context) (PermissionState, error)
}

// Display shows a notification text
type Display interface {
	Show(ctx context.Context, text string) error
}

// Notifier shows messages when permission allows. Failures never reach the caller.
type Notifier struct {
	permission Permission
	display    Display
	logger     *zap.Logger
}

// New creates a notifier
func New(permission Permission, display Display, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{permission: permission, display: display, logger: logger}
}

// Notify shows text, asking for permission first if it was never decided
func (n *Notifier) Notify(ctx context.Context, text string) {
	if n == nil || n.display == nil {
		return
	}

	state := PermissionGranted
	if n.permission != nil {
		state = n.permission.State()
		if state == PermissionDefault {
			requested, err := n.permission.Request(ctx)
			if err != nil {
				n.logger.Warn("notification_permission_request_failed", zap.Error(err))
				return
			}
			state = requested
		}
	}

	if state != PermissionGranted {
		n.logger.Debug("notification_suppressed",
			zap.String("permission", string(state)),
			zap.String("text", text))
		return
	}

	if err := n.display.Show(ctx, text); err != nil {
		n.logger.Warn("notification_display_failed", zap.Error(err))
	}
}

// StaticPermission is a fixed permission state
type StaticPermission PermissionState

// State implements Permission
func (p StaticPermission) State() PermissionState {
	return PermissionState(p)
}

// Request implements Permission; a static permission cannot change
func (p StaticPermission) Request(context.Context) (PermissionState, error) {
	if PermissionState(p) == PermissionDefault {
		return PermissionDenied, nil
	}
	return PermissionState(p), nil
}

// PromptPermission asks on a terminal the first time a notification is shown
type PromptPermission struct {
	mu    sync.Mutex
	in    *bufio.Reader
	out   io.Writer
	state PermissionState
}

// NewPromptPermission creates a prompting permission starting in initial
func NewPromptPermission(in io.Reader, out io.Writer, initial PermissionState) *PromptPermission {
	return &PromptPermission{in: bufio.NewReader(in), out: out, state: initial}
}

// State implements Permission
func (p *PromptPermission) State() PermissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Request implements Permission. Anything but y/yes denies.
func (p *PromptPermission) Request(ctx context.Context) (PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PermissionDefault {
		return p.state, nil
	}
	if err := ctx.Err(); err != nil {
		return p.state, err
	}

	if _, err := fmt.Fprint(p.out, "Show notifications? [y/N] "); err != nil {
		return p.state, err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		p.state = PermissionDenied
		return p.state, nil
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		p.state = PermissionGranted
	default:
		p.state = PermissionDenied
	}
	return p.state, nil
}

// WriterDisplay prints each notification on its own line
type WriterDisplay struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriterDisplay creates a display writing to out
func NewWriterDisplay(out io.Writer) *WriterDisplay {
	return &WriterDisplay{out: out}
}

// Show implements Display
func (d *WriterDisplay) Show(_ context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := fmt.Fprintln(d.out, text)
	return err
}

// LogDisplay records notifications in the structured log
type LogDisplay struct {
	logger *zap.Logger
}

// NewLogDisplay creates a display that logs at info level
func NewLogDisplay(logger *zap.Logger) LogDisplay {
	return LogDisplay{logger: logger}
}

// Show implements Display
func (d LogDisplay) Show(_ context.Context, text string) error {
	d.logger.Info("notification", zap.String("text", text))
	return nil
}
