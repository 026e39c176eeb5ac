package bracket

import (
	"sort"
	"time"
)

type systemHandler func(ValMeta) (time.Time, bool)

var systemHandlers = map[string]systemHandler{
	"PYE": func(m ValMeta) (time.Time, bool) {
		return m.PlanYearEnd, !m.PlanYearEnd.IsZero()
	},
	"PYE+3": func(m ValMeta) (time.Time, bool) {
		if m.PlanYearEnd.IsZero() {
			return time.Time{}, false
		}
		return addMonths(m.PlanYearEnd, 3), true
	},
	"PriorYearPYE": func(m ValMeta) (time.Time, bool) {
		if m.PlanYearBegin.IsZero() {
			return time.Time{}, false
		}
		return m.PlanYearBegin.AddDate(0, 0, -1), true
	},
	"PYB": func(m ValMeta) (time.Time, bool) {
		return m.PlanYearBegin, !m.PlanYearBegin.IsZero()
	},
}

// SystemTags lists the tag names with a built-in handler.
func SystemTags() []string {
	out := make([]string, 0, len(systemHandlers))
	for name := range systemHandlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// addMonths moves t forward by n calendar months, clamping the day to the end
// of the target month (Nov 30 + 3 months is the last day of February).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
