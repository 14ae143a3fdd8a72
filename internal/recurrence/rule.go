package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"calmgr/internal/event"
)

// ErrUnsupportedRule is returned for RRULEs that are not a plain weekday set
// bounded by a count or an end date.
var ErrUnsupportedRule = errors.New("recurrence: unsupported rule")

var fromRRuleWeekday = map[int]time.Weekday{
	0: time.Monday,
	1: time.Tuesday,
	2: time.Wednesday,
	3: time.Thursday,
	4: time.Friday,
	5: time.Saturday,
	6: time.Sunday,
}

// FromRRule maps an RFC 5545 RRULE value (without the "RRULE:" prefix) onto
// a Template for base. Only FREQ=DAILY or FREQ=WEEKLY with interval 1,
// optional plain BYDAY, and COUNT or UNTIL are accepted.
func FromRRule(base event.Event, rule string) (event.Template, error) {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return event.Template{}, fmt.Errorf("recurrence: parse %q: %w", rule, err)
	}
	if opt.Interval > 1 {
		return event.Template{}, fmt.Errorf("%w: interval %d", ErrUnsupportedRule, opt.Interval)
	}
	if len(opt.Bysetpos)+len(opt.Bymonth)+len(opt.Bymonthday)+len(opt.Byyearday)+len(opt.Byweekno)+
		len(opt.Byhour)+len(opt.Byminute)+len(opt.Bysecond)+len(opt.Byeaster) > 0 {
		return event.Template{}, fmt.Errorf("%w: %s", ErrUnsupportedRule, rule)
	}

	var days event.WeekdaySet
	for _, wd := range opt.Byweekday {
		if wd.N() != 0 {
			return event.Template{}, fmt.Errorf("%w: positional weekday %s", ErrUnsupportedRule, wd)
		}
		days = days.With(fromRRuleWeekday[wd.Day()])
	}
	if days.Empty() {
		switch opt.Freq {
		case rrule.WEEKLY:
			days = event.Weekdays(base.Start.Weekday())
		case rrule.DAILY:
			days = event.Weekdays(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday)
		}
	}
	if opt.Freq != rrule.WEEKLY && opt.Freq != rrule.DAILY {
		return event.Template{}, fmt.Errorf("%w: frequency %v", ErrUnsupportedRule, opt.Freq)
	}
	if opt.Count <= 0 && opt.Until.IsZero() {
		return event.Template{}, fmt.Errorf("%w: unbounded series", ErrUnsupportedRule)
	}

	until := opt.Until
	if !until.IsZero() {
		until = until.In(base.Start.Location())
	}
	return event.NewTemplate(base, days, opt.Count, until)
}
