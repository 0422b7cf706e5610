package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is an optional ISO-8601 instant. The zero value means unset and
// encodes as the empty string, which is how the remote API clears a date.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// IsSet reports whether the timestamp holds a value
func (ts Timestamp) IsSet() bool {
	return !ts.IsZero()
}

// MarshalJSON encodes the timestamp as RFC 3339, or "" when unset
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 strings, "" and null
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*ts = Timestamp{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*ts = Timestamp{}
		return nil
	}

	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	ts.Time = parsed
	return nil
}
