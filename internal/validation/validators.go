package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/smart-todo-sync/internal/apperrors"
	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("repeat_type", validateRepeatType); err != nil {
		panic(fmt.Sprintf("failed to register repeat_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	Validate.RegisterStructValidation(validateDraftRepeat, models.Draft{})
}

// validateRepeatType validates that a string is a valid RepeatType enum value
func validateRepeatType(fl validator.FieldLevel) bool {
	switch models.RepeatType(fl.Field().String()) {
	case models.RepeatTypeCompletionDate, models.RepeatTypeEndDate:
		return true
	default:
		return false
	}
}

// validatePriority validates that an int is a valid Priority value
func validatePriority(fl validator.FieldLevel) bool {
	switch models.Priority(fl.Field().Int()) {
	case models.PriorityNone, models.PriorityHigh, models.PriorityHighest:
		return true
	default:
		return false
	}
}

// validateDraftRepeat requires a repeat type and an end date whenever a repeat rule is set
func validateDraftRepeat(sl validator.StructLevel) {
	draft := sl.Current().Interface().(models.Draft)
	if draft.Repeat == "" {
		return
	}
	if draft.RepeatType == "" {
		sl.ReportError(draft.RepeatType, "RepeatType", "repeatType", "required_with_repeat", "")
	}
	if !draft.EndDate.IsSet() {
		sl.ReportError(draft.EndDate, "EndDate", "endDate", "required_with_repeat", "")
	}
}

// ValidateDraft checks a task draft before it is sent to the remote API
func ValidateDraft(draft models.Draft) error {
	return wrap(apperrors.ErrInvalidTask, Validate.Struct(draft))
}

// ValidateUpdate checks a task update before it is sent to the remote API
func ValidateUpdate(update models.Update) error {
	return wrap(apperrors.ErrInvalidTask, Validate.Struct(update))
}

// ValidateTagDraft checks a tag draft before it is sent to the remote API
func ValidateTagDraft(draft models.TagDraft) error {
	return wrap(apperrors.ErrInvalidTag, Validate.Struct(draft))
}

// ValidateTagUpdate checks a tag update before it is sent to the remote API
func ValidateTagUpdate(update models.TagUpdate) error {
	return wrap(apperrors.ErrInvalidTag, Validate.Struct(update))
}

// wrap flattens validator field errors into a single message under sentinel
func wrap(sentinel error, err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", sentinel, strings.Join(msgs, "; "))
}

// SanitizeText cleans user-typed task and tag text: CRLF and lone CR become
// LF, control characters other than newline and tab are dropped, and
// surrounding whitespace is trimmed.
func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\r':
			return '\n'
		case r == '\n', r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}
