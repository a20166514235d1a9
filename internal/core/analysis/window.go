package analysis

import "time"

// WindowKind selects which aggregation query variant a run executes and
// whether reconciliation applies.
type WindowKind int

const (
	// WindowBootstrap covers all history; every group materializes as new
	// records without consulting prior state.
	WindowBootstrap WindowKind = iota

	// WindowDailyRefresh covers a single prior calendar day and reconciles
	// against records already stored for that day.
	WindowDailyRefresh
)

// Window is the mode and date scope of one aggregation run.
type Window struct {
	Kind       WindowKind
	TargetDate time.Time // day boundary; zero for bootstrap
}

// Bootstrap returns the all-history window.
func Bootstrap() Window {
	return Window{Kind: WindowBootstrap}
}

// DailyRefresh returns the single-day window for target, normalized to the
// day boundary in loc.
func DailyRefresh(target time.Time, loc *time.Location) Window {
	return Window{Kind: WindowDailyRefresh, TargetDate: DayOf(target, loc)}
}

// DayOf truncates t to midnight in loc. Day boundaries are always computed
// against an explicit location rather than a fixed hour offset, so the same
// wall-clock day maps to the same boundary regardless of the raw query's
// timestamp convention.
func DayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Yesterday returns the day boundary of the calendar day before now in loc.
// Daily refresh defaults to this window.
func Yesterday(now time.Time, loc *time.Location) time.Time {
	return DayOf(now, loc).AddDate(0, 0, -1)
}
