package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is a half-open stay interval [CheckIn, CheckOut). The checkout day is not occupied.
type DateRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	r := DateRange{CheckIn: StartOfDay(checkIn), CheckOut: StartOfDay(checkOut)}
	if !r.CheckIn.Before(r.CheckOut) {
		return DateRange{}, fmt.Errorf("%w: check-out %s must be after check-in %s", ErrInvalidRange, r.CheckOut.Format(DateLayout), r.CheckIn.Format(DateLayout))
	}
	return r, nil
}

func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: check-in %q", ErrInvalidRange, checkIn)
	}
	out, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: check-out %q", ErrInvalidRange, checkOut)
	}
	return NewDateRange(in, out)
}

// StartOfDay keeps the calendar date of t and drops the clock, normalised to UTC.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Nights is the number of whole days between check-in and check-out.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn) / (24 * time.Hour))
}

// Overlaps reports whether [a,b) and [c,d) intersect: a < d && c < b.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

// ContainsNight reports whether the night starting on day falls inside the range.
func (r DateRange) ContainsNight(day time.Time) bool {
	d := StartOfDay(day)
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

func (r DateRange) IsZero() bool {
	return r.CheckIn.IsZero() && r.CheckOut.IsZero()
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.CheckIn.Format(DateLayout), r.CheckOut.Format(DateLayout))
}
