package course

import (
	"fmt"
	"strings"
	"time"
)

// DateOnly is a calendar date that marshals as "YYYY-MM-DD".
type DateOnly struct {
	time.Time
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}

	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)

	if s == "" || s == "null" {
		*d = DateOnly{}
		return nil
	}

	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)

	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}

	d.Time = t

	return nil
}
