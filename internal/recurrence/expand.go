package recurrence

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"calmgr/internal/event"
	appLog "calmgr/internal/log"
)

const defaultMaxOccurrences = 5000

// Options tunes expansion.
type Options struct {
	// MaxOccurrences caps an until-bounded expansion, so a series ending far
	// in the future is truncated instead of materializing without limit.
	// Count-bounded series are never truncated. If zero,
	// defaultMaxOccurrences is used.
	MaxOccurrences int
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Expand materializes the occurrences of t using the default options.
func Expand(t event.Template, seriesID string) []event.Event {
	return ExpandWith(t, seriesID, Options{})
}

// ExpandWith walks forward one day at a time from the template start and
// emits an occurrence on every day whose weekday is in the template's set,
// at the template's wall-clock time of day and with its duration.
//
// A positive Count stops after Count occurrences. Otherwise a non-zero Until
// stops before the first occurrence starting after it. With an empty weekday
// set, or with neither rule usable, the result is empty.
func ExpandWith(t event.Template, seriesID string, opts Options) []event.Event {
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}
	if t.Weekdays.Empty() {
		return nil
	}

	ropt := rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: t.Base.Start,
	}
	for _, d := range t.Weekdays.Days() {
		ropt.Byweekday = append(ropt.Byweekday, rruleWeekdays[d])
	}
	switch {
	case t.Count > 0:
		ropt.Count = t.Count
	case !t.Until.IsZero():
		if t.Until.Before(t.Base.Start) {
			return nil
		}
		ropt.Until = t.Until
	default:
		return nil
	}

	r, err := rrule.NewRRule(ropt)
	if err != nil {
		appLog.Error("expand: failed to build rule", err, "subject", t.Base.Subject, "weekdays", t.Weekdays.String())
		return nil
	}

	dur := t.Base.Duration()
	capped := t.Count <= 0
	out := make([]event.Event, 0)
	next := r.Iterator()
	for start, ok := next(); ok; start, ok = next() {
		if capped && len(out) == opts.MaxOccurrences {
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"subject", t.Base.Subject,
				"cap", opts.MaxOccurrences,
			)
			break
		}
		occ := t.Base
		occ.Start = start
		occ.End = start.Add(dur)
		occ.SeriesID = seriesID
		out = append(out, occ)
	}
	return out
}
