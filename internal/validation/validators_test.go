package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/benvon/smart-todo-sync/internal/apperrors"
	"github.com/benvon/smart-todo-sync/internal/models"
)

func TestValidateDraft(t *testing.T) {
	t.Parallel()

	end := models.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name    string
		draft   models.Draft
		wantErr bool
	}{
		{
			name:  "minimal",
			draft: models.Draft{Title: "X"},
		},
		{
			name:    "missing title",
			draft:   models.Draft{},
			wantErr: true,
		},
		{
			name:    "priority out of range",
			draft:   models.Draft{Title: "X", Priority: 3},
			wantErr: true,
		},
		{
			name:  "completion repeat with end date",
			draft: models.Draft{Title: "X", Repeat: "D7", RepeatType: models.RepeatTypeCompletionDate, EndDate: end},
		},
		{
			name:    "repeat without end date",
			draft:   models.Draft{Title: "X", Repeat: "D7", RepeatType: models.RepeatTypeCompletionDate},
			wantErr: true,
		},
		{
			name:    "repeat without repeat type",
			draft:   models.Draft{Title: "X", Repeat: "D7", EndDate: end},
			wantErr: true,
		},
		{
			name:    "unknown repeat type",
			draft:   models.Draft{Title: "X", Repeat: "D7", RepeatType: "weekly", EndDate: end},
			wantErr: true,
		},
		{
			// repeat strings are checked by the recurrence package, not here
			name:  "opaque repeat string",
			draft: models.Draft{Title: "X", Repeat: "not a rule", RepeatType: models.RepeatTypeEndDate, EndDate: end},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateDraft(tt.draft)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidTask) {
					t.Errorf("Expected ErrInvalidTask, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	t.Parallel()

	if err := ValidateUpdate(models.Update{ID: 1, Draft: models.Draft{Title: "X"}}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := ValidateUpdate(models.Update{Draft: models.Draft{Title: "X"}}); !errors.Is(err, apperrors.ErrInvalidTask) {
		t.Errorf("Expected ErrInvalidTask for missing id, got %v", err)
	}
	err := ValidateUpdate(models.Update{ID: 1, Draft: models.Draft{Title: "X", Repeat: "D1", RepeatType: models.RepeatTypeCompletionDate}})
	if !errors.Is(err, apperrors.ErrInvalidTask) {
		t.Errorf("Expected embedded draft rules to apply, got %v", err)
	}
}

func TestValidateTag(t *testing.T) {
	t.Parallel()

	if err := ValidateTagDraft(models.TagDraft{Name: "home"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := ValidateTagDraft(models.TagDraft{}); !errors.Is(err, apperrors.ErrInvalidTag) {
		t.Errorf("Expected ErrInvalidTag, got %v", err)
	}
	if err := ValidateTagUpdate(models.TagUpdate{TagDraft: models.TagDraft{Name: "home"}}); !errors.Is(err, apperrors.ErrInvalidTag) {
		t.Errorf("Expected ErrInvalidTag for missing id, got %v", err)
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b", "ab"},
		{"line1\nline2\tend", "line1\nline2\tend"},
		{"windows\r\nline", "windows\nline"},
		{"old\rmac", "old\nmac"},
		{"bell\a and escape\x1b[0m", "bell and escape[0m"},
		{"\x00\x00", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
