package models

// Priority orders tasks for display
type Priority int

const (
	PriorityNone    Priority = 0
	PriorityHigh    Priority = 1
	PriorityHighest Priority = 2
)

func (p Priority) String() string {
	switch p {
	case PriorityHighest:
		return "highest"
	case PriorityHigh:
		return "high"
	default:
		return "none"
	}
}

// RepeatType selects how a task's repeat string is interpreted
type RepeatType string

const (
	// RepeatTypeCompletionDate means repeat is an offset code such as "D7"
	RepeatTypeCompletionDate RepeatType = "completionDate"
	// RepeatTypeEndDate means repeat is a 5-field cron expression anchored on endDate
	RepeatTypeEndDate RepeatType = "endDate"
)

// Task represents a task as returned by the remote API
type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	StartDate      Timestamp  `json:"startDate,omitzero"`
	EndDate        Timestamp  `json:"endDate,omitzero"`
	Priority       Priority   `json:"priority"`
	Tags           []Tag      `json:"tags"`
	CompletionDate Timestamp  `json:"completionDate,omitzero"`
	Repeat         string     `json:"repeat,omitempty"`
	RepeatType     RepeatType `json:"repeatType,omitempty"`
	CreatedAt      Timestamp  `json:"createdAt,omitzero"`
	UpdatedAt      Timestamp  `json:"updatedAt,omitzero"`
}

// IsNew reports whether the task has not been saved yet
func (t Task) IsNew() bool {
	return t.ID == 0
}

// IsDone reports whether the task has a completion date
func (t Task) IsDone() bool {
	return t.CompletionDate.IsSet()
}

// Repeats reports whether the task resurfaces after completion or its end date
func (t Task) Repeats() bool {
	return t.Repeat != ""
}

// Clone returns a copy that shares no slices with t
func (t Task) Clone() Task {
	c := t
	if t.Tags != nil {
		c.Tags = make([]Tag, len(t.Tags))
		copy(c.Tags, t.Tags)
	}
	return c
}

// Draft holds the fields submitted when creating a task
type Draft struct {
	Title       string     `json:"title" validate:"required,max=500"`
	Description string     `json:"description" validate:"max=10000"`
	StartDate   Timestamp  `json:"startDate,omitzero"`
	EndDate     Timestamp  `json:"endDate,omitzero"`
	Repeat      string     `json:"repeat"`
	RepeatType  RepeatType `json:"repeatType,omitempty" validate:"omitempty,repeat_type"`
	Priority    Priority   `json:"priority" validate:"priority"`
	TagIDs      []int64    `json:"tagIds"`
}

// Task builds the local representation of a created draft
func (d Draft) Task(id int64, tags []Tag) Task {
	return Task{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		StartDate:   d.StartDate,
		EndDate:     d.EndDate,
		Priority:    d.Priority,
		Tags:        tags,
		Repeat:      d.Repeat,
		RepeatType:  d.RepeatType,
	}
}

// Update holds the fields submitted when editing a task
type Update struct {
	ID int64 `json:"id" validate:"gt=0"`
	Draft
}
