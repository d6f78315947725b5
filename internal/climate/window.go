package climate

import (
	"fmt"
	"time"
)

// DaysPerYear is the length of the normalized calendar. February 29 folds
// onto February 28, so every year maps onto days 1..365.
const DaysPerYear = 365

// MaxRadius is the largest radius that keeps a window unambiguous on the
// circular calendar.
const MaxRadius = 182

// DayOfYear returns the normalized day-of-year of t in [1, 365]. In leap
// years February 29 shares day 59 with February 28, and March 1 onward is
// shifted back by one so it matches non-leap years.
func DayOfYear(t time.Time) int {
	doy := t.YearDay()
	if !isLeap(t.Year()) {
		return doy
	}
	if doy >= 60 {
		return doy - 1
	}
	return doy
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// CircularDistance is the number of days between a and b on the 365-day
// circle, so late December is close to early January.
func CircularDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	d %= DaysPerYear
	if DaysPerYear-d < d {
		return DaysPerYear - d
	}
	return d
}

// Window is a day-of-year target plus a radius in days.
type Window struct {
	TargetDay  int `json:"target_day_of_year"`
	RadiusDays int `json:"radius_days"`
}

// NewWindow builds the window centered on the normalized day-of-year of target.
func NewWindow(target time.Time, radiusDays int) (Window, error) {
	w := Window{TargetDay: DayOfYear(target), RadiusDays: radiusDays}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate checks the window bounds.
func (w Window) Validate() error {
	if w.TargetDay < 1 || w.TargetDay > DaysPerYear {
		return Invalid("target day-of-year %d outside 1..%d", w.TargetDay, DaysPerYear)
	}
	if w.RadiusDays < 0 || w.RadiusDays > MaxRadius {
		return Invalid("window radius %d outside 0..%d", w.RadiusDays, MaxRadius)
	}
	return nil
}

// Contains reports whether day-of-year doy falls inside the window.
func (w Window) Contains(doy int) bool {
	return CircularDistance(doy, w.TargetDay) <= w.RadiusDays
}

// Days returns the number of distinct normalized days the window spans.
func (w Window) Days() int {
	return 2*w.RadiusDays + 1
}

func (w Window) String() string {
	return fmt.Sprintf("DOY %d ±%dd", w.TargetDay, w.RadiusDays)
}
