package sqlbase

import (
	"fmt"
	"time"
)

var timeLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

// Timestamp scans a nullable timestamp stored natively or as text.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ts = Timestamp{}

		return nil
	case time.Time:
		ts.Time, ts.Valid = v.UTC(), true

		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp value %T", src)
	}
}

func (ts *Timestamp) parse(text string) error {
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, text)
		if err == nil {
			ts.Time, ts.Valid = parsed.UTC(), true

			return nil
		}
	}

	return fmt.Errorf("invalid timestamp %q", text)
}

func (ts Timestamp) Ptr() *time.Time {
	if !ts.Valid {
		return nil
	}

	t := ts.Time

	return &t
}
