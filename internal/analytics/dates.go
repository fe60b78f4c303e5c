package analytics

import (
	"errors"
	"fmt"
	"time"

	"streakly/internal/models"
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidWindow = errors.New("window end precedes window start")
)

// DateError reports a date string that could not be parsed.
type DateError struct {
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%v: %q (expected YYYY-MM-DD)", ErrInvalidDate, e.Value)
}

func (e *DateError) Unwrap() error { return ErrInvalidDate }

// day is a calendar date reduced to a day number, so that differences
// between two days are plain integer subtraction.
type day int64

const secondsPerDay = 24 * 60 * 60

func dayOf(t time.Time) day {
	y, m, d := t.Date()
	return day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

func parseDay(s string) (day, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return 0, &DateError{Value: s}
	}
	return dayOf(t), nil
}

func (d day) time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// Window returns the inclusive range of `days` calendar days ending on end.
func Window(end time.Time, days int) (time.Time, time.Time) {
	last := dayOf(end)
	return (last - day(days-1)).time(), last.time()
}
