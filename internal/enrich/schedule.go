package enrich

import "time"

// Singapore has kept UTC+8 without DST since 1982, so the fixed zone is
// exact when the tz database is unavailable.
var singapore = loadSingapore()

func loadSingapore() *time.Location {
	loc, err := time.LoadLocation("Asia/Singapore")
	if err != nil {
		return time.FixedZone("SGT", 8*60*60)
	}
	return loc
}

// Schedule holds the reference times used for every route query in a job.
type Schedule struct {
	// WalkDeparture is the next Saturday 11:00 Singapore time.
	WalkDeparture time.Time
	// WorkArrival is the next Monday 09:00 Singapore time.
	WorkArrival time.Time
}

// NewSchedule computes the reference times relative to now.
func NewSchedule(now time.Time) Schedule {
	return Schedule{
		WalkDeparture: NextWeekday(now, time.Saturday, 11, singapore),
		WorkArrival:   NextWeekday(now, time.Monday, 9, singapore),
	}
}

// NextWeekday returns the next instant strictly after now that falls on
// weekday at hour:00 in loc. Today qualifies only if that hour is still
// ahead; a weekday shift that kept today would hand Distance Matrix a time
// in the past, which it rejects for transit.
func NextWeekday(now time.Time, weekday time.Weekday, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	days := (int(weekday) - int(local.Weekday()) + 7) % 7
	next := time.Date(local.Year(), local.Month(), local.Day()+days, hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
