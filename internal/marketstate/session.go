package marketstate

import (
	"time"

	"github.com/argoquant/dexterio/internal/types"
)

// newYorkLocation is loaded once; daylight saving is honored automatically
// by time.Time.In(newYorkLocation), per spec.md §4.2.
var newYorkLocation = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// The tzdata database ships with the Go toolchain's stdlib
		// fallback; if it is genuinely unavailable there is nothing the
		// caller can do, so fail fast rather than silently using UTC and
		// mis-deriving every session boundary.
		panic("marketstate: failed to load America/New_York: " + err.Error())
	}

	return loc
}

// sessionBoundary is a closed [start, end] minute-of-day-in-ET window; a
// bar landing exactly on end belongs to this (the earlier) session, per
// spec.md §8's boundary-behavior property.
type sessionBoundary struct {
	session types.Session
	start   int
	end     int
}

// sessionTable is ordered; asia wraps past midnight and is checked first so
// its wrap-around doesn't shadow the other sessions.
var sessionTable = []sessionBoundary{
	{types.SessionLondon, 3 * 60, 8 * 60},
	{types.SessionNYAM, 9*60 + 30, 11 * 60},
	{types.SessionNYLunch, 11 * 60, 14 * 60},
	{types.SessionNYPM, 14 * 60, 16 * 60},
}

// SessionAt derives the ET trading session active at ts (any timezone;
// converted to America/New_York), per spec.md §4.2.
func SessionAt(ts time.Time) types.Session {
	et := ts.In(newYorkLocation)
	minuteOfDay := et.Hour()*60 + et.Minute()

	// asia: 18:00-02:00 wraps midnight; 02:00 itself still belongs to asia
	// (the earlier session), matching the closed-interval convention below.
	if minuteOfDay >= 18*60 || minuteOfDay <= 2*60 {
		return types.SessionAsia
	}

	for _, b := range sessionTable {
		if minuteOfDay >= b.start && minuteOfDay <= b.end {
			return b.session
		}
	}

	return types.SessionOff
}

// MinuteOfDayET returns ts's minute-of-day in Eastern time, used by the
// playbook evaluator's time_windows gate.
func MinuteOfDayET(ts time.Time) int {
	et := ts.In(newYorkLocation)

	return et.Hour()*60 + et.Minute()
}

// CalendarDayET returns the truncated ET calendar day for ts, used for the
// daily reset boundary and date-slicing invariants.
func CalendarDayET(ts time.Time) time.Time {
	et := ts.In(newYorkLocation)

	return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, newYorkLocation)
}
