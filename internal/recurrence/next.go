package recurrence

import (
	"fmt"
	"time"

	"github.com/benvon/smart-todo-sync/internal/apperrors"
	"github.com/benvon/smart-todo-sync/internal/models"
)

// NextOccurrence returns when spec next falls due after anchor.
//
// Cron rules yield the first matching minute strictly after anchor, evaluated
// in anchor's location. Offset rules yield anchor plus the offset with the
// time of day preserved; a zero offset returns anchor unchanged.
func NextOccurrence(spec Spec, anchor time.Time) (time.Time, error) {
	if anchor.IsZero() {
		return time.Time{}, apperrors.ErrMissingAnchor
	}

	switch s := spec.(type) {
	case CronRecurrence:
		return nextCron(s, anchor)
	case *CronRecurrence:
		return nextCron(*s, anchor)
	case OffsetRecurrence:
		return nextOffset(s, anchor)
	case *OffsetRecurrence:
		return nextOffset(*s, anchor)
	default:
		return time.Time{}, fmt.Errorf("%w: %T", apperrors.ErrUnknownRepeatType, spec)
	}
}

func nextCron(c CronRecurrence, anchor time.Time) (time.Time, error) {
	schedule := c.schedule
	if schedule == nil {
		parsed, err := ParseCron(c.Expression)
		if err != nil {
			return time.Time{}, err
		}
		schedule = parsed.schedule
	}

	next := schedule.Next(anchor)
	// cron gives up after five years and returns the zero time, e.g. for "0 0 30 2 *"
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q never matches", apperrors.ErrInvalidCronExpression, c.Expression)
	}
	return next, nil
}

func nextOffset(o OffsetRecurrence, anchor time.Time) (time.Time, error) {
	switch o.Unit {
	case UnitDays:
		return anchor.AddDate(0, 0, int(o.Magnitude)), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedRepeatUnit, o.Unit)
	}
}

// Anchor returns the date a task's recurrence is measured from: the end date
// for cron rules and the completion date for offset rules.
func Anchor(task models.Task) time.Time {
	switch task.RepeatType {
	case models.RepeatTypeEndDate:
		return task.EndDate.Time
	case models.RepeatTypeCompletionDate:
		return task.CompletionDate.Time
	default:
		return time.Time{}
	}
}

// ForTask decodes the task's repeat rule and evaluates it from the task's anchor.
// It returns ok=false for tasks that do not repeat.
func ForTask(task models.Task) (next time.Time, ok bool, err error) {
	if !task.Repeats() {
		return time.Time{}, false, nil
	}

	spec, err := Decode(task.Repeat, task.RepeatType)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("task %d: %w", task.ID, err)
	}

	next, err = NextOccurrence(spec, Anchor(task))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("task %d: %w", task.ID, err)
	}
	return next, true, nil
}
