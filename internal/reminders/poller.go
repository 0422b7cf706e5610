// Package reminders announces tasks whose start or end date has just passed.
package reminders

import (
	"context"
	"time"

	"github.com/benvon/smart-todo-sync/internal/logger"
	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/benvon/smart-todo-sync/internal/store"
	"go.uber.org/zap"
)

// DefaultInterval is how often the poller looks at the store
const DefaultInterval = time.Minute

// SnapshotSource supplies read-only views of the task store
type SnapshotSource interface {
	Snapshot() store.Snapshot
}

// Notifier shows a reminder text
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Kind tells whether a reminder is for a start or an end date
type Kind string

const (
	KindStarting Kind = "starting"
	KindDue      Kind = "due"
)

// Reminder is one notification produced by a tick
type Reminder struct {
	TaskID int64
	Kind   Kind
	Text   string
	At     time.Time
}

// DueReminders lists reminders for open tasks whose start or end date is in (from, to]
func DueReminders(tasks []models.Task, from, to time.Time) []Reminder {
	var out []Reminder
	for _, task := range tasks {
		if task.IsDone() {
			continue
		}
		if inWindow(task.StartDate, from, to) {
			out = append(out, Reminder{TaskID: task.ID, Kind: KindStarting, Text: "Starting " + task.Title, At: task.StartDate.Time})
		}
		if inWindow(task.EndDate, from, to) {
			out = append(out, Reminder{TaskID: task.ID, Kind: KindDue, Text: "Due " + task.Title, At: task.EndDate.Time})
		}
	}
	return out
}

func inWindow(ts models.Timestamp, from, to time.Time) bool {
	return ts.IsSet() && ts.After(from) && !ts.After(to)
}

// Poller periodically checks a snapshot source and notifies. It never writes the store.
type Poller struct {
	source   SnapshotSource
	notifier Notifier
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	last time.Time
}

// NewPoller creates a poller. A non-positive interval uses DefaultInterval.
func NewPoller(source SnapshotSource, notifier Notifier, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:   source,
		notifier: notifier,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the poll loop until ctx is cancelled. The first window begins at Start.
func (p *Poller) Start(ctx context.Context) error {
	p.last = p.now()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick checks the window since the previous tick and returns what was announced
func (p *Poller) Tick(ctx context.Context) []Reminder {
	now := p.now()
	from := p.last
	p.last = now
	if from.IsZero() {
		return nil
	}

	due := DueReminders(p.source.Snapshot().Tasks, from, now)
	for _, r := range due {
		p.logger.Debug("reminder_due",
			zap.Int64("task_id", r.TaskID),
			zap.String("kind", string(r.Kind)),
			zap.String("text", logger.SanitizeTitle(r.Text)))
		if p.notifier != nil {
			p.notifier.Notify(ctx, r.Text)
		}
	}
	return due
}
