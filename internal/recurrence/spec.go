// Package recurrence computes when a repeating task falls due again.
//
// A task's repeat string is decoded once into a Spec, either a CronRecurrence
// (repeatType "endDate") or an OffsetRecurrence (repeatType "completionDate"),
// and evaluated with NextOccurrence. Nothing here reads the clock.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benvon/smart-todo-sync/internal/apperrors"
	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/robfig/cron/v3"
)

// Unit is the letter of an offset code
type Unit string

const (
	// UnitDays is the only defined offset unit
	UnitDays Unit = "D"
)

// cronParser accepts exactly five fields: minute hour day-of-month month day-of-week
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Spec is a decoded repeat rule. The only implementations are
// CronRecurrence and OffsetRecurrence.
type Spec interface {
	// RepeatType returns the wire discriminator for the rule
	RepeatType() models.RepeatType
	// String returns the wire encoding of the rule
	String() string

	isSpec()
}

// CronRecurrence repeats on a cron schedule evaluated from the task's end date
type CronRecurrence struct {
	Expression string

	schedule cron.Schedule
}

func (CronRecurrence) RepeatType() models.RepeatType { return models.RepeatTypeEndDate }
func (c CronRecurrence) String() string               { return c.Expression }
func (CronRecurrence) isSpec()                        {}

// OffsetRecurrence repeats a fixed amount of time after completion
type OffsetRecurrence struct {
	Unit      Unit
	Magnitude uint64
}

func (OffsetRecurrence) RepeatType() models.RepeatType { return models.RepeatTypeCompletionDate }
func (o OffsetRecurrence) String() string               { return string(o.Unit) + strconv.FormatUint(o.Magnitude, 10) }
func (OffsetRecurrence) isSpec()                        {}

// Decode turns a task's repeat/repeatType pair into a Spec.
// The repeat string must be non-empty.
func Decode(repeat string, repeatType models.RepeatType) (Spec, error) {
	switch repeatType {
	case models.RepeatTypeEndDate:
		return ParseCron(repeat)
	case models.RepeatTypeCompletionDate:
		return ParseOffset(repeat)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownRepeatType, repeatType)
	}
}

// ParseCron validates a 5-field cron expression. Day-of-week 7 is Sunday,
// as in standard crontab.
func ParseCron(expression string) (CronRecurrence, error) {
	schedule, err := cronParser.Parse(normalizeWeekdays(expression))
	if err != nil {
		return CronRecurrence{}, fmt.Errorf("%w: %q: %v", apperrors.ErrInvalidCronExpression, expression, err)
	}
	return CronRecurrence{Expression: expression, schedule: schedule}, nil
}

// ParseOffset validates an offset code: one unit letter followed by an unsigned count
func ParseOffset(code string) (OffsetRecurrence, error) {
	if len(code) < 2 {
		return OffsetRecurrence{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidOffset, code)
	}

	unit := Unit(code[:1])
	if unit != UnitDays {
		return OffsetRecurrence{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedRepeatUnit, unit)
	}

	magnitude, err := strconv.ParseUint(code[1:], 10, 32)
	if err != nil {
		return OffsetRecurrence{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidOffset, code)
	}

	return OffsetRecurrence{Unit: unit, Magnitude: magnitude}, nil
}

// normalizeWeekdays rewrites day-of-week 7 to 0, the only Sunday the cron
// parser knows. Ranges ending in 7 are expanded to explicit lists.
func normalizeWeekdays(expression string) string {
	fields := strings.Fields(expression)
	if len(fields) != 5 {
		return expression
	}

	items := strings.Split(fields[4], ",")
	for i, item := range items {
		items[i] = normalizeWeekdayItem(item)
	}
	fields[4] = strings.Join(items, ",")
	return strings.Join(fields, " ")
}

func normalizeWeekdayItem(item string) string {
	span, stepText, hasStep := strings.Cut(item, "/")
	if span == "7" {
		return "0"
	}

	lowText, highText, isRange := strings.Cut(span, "-")
	if !isRange || highText != "7" {
		return item
	}
	low, err := strconv.Atoi(lowText)
	if err != nil || low < 0 || low > 7 {
		return item
	}
	step := 1
	if hasStep {
		if step, err = strconv.Atoi(stepText); err != nil || step < 1 {
			return item
		}
	}

	var days []string
	for day := low; day <= 7; day += step {
		days = append(days, strconv.Itoa(day%7))
	}
	return strings.Join(days, ",")
}
