package daterange

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate  = errors.New("date is not a valid YYYY-MM-DD value")
	ErrInvalidRange = errors.New("end date cannot be before start date")
)

// ParseInclusiveRange turns two calendar-date strings into an inclusive
// timestamp interval: the start of the first day through the last
// nanosecond of the second day, both in local time.

func ParseInclusiveRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(time.DateOnly, startDate, time.Local)

	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, startDate)
	}

	end, err := time.ParseInLocation(time.DateOnly, endDate, time.Local)

	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, endDate)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q .. %q", ErrInvalidRange, startDate, endDate)
	}

	// the end date is inclusive of its entire calendar day
	endOfDay := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999999999, time.Local)

	return start, endOfDay, nil
}
