package event

import (
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays, one bit per time.Weekday.
type WeekdaySet uint8

// weekdayCodes are the single-letter codes in Monday-first order:
// M T W R(thursday) F S U(sunday).
var weekdayCodes = []struct {
	code byte
	day  time.Weekday
}{
	{'M', time.Monday},
	{'T', time.Tuesday},
	{'W', time.Wednesday},
	{'R', time.Thursday},
	{'F', time.Friday},
	{'S', time.Saturday},
	{'U', time.Sunday},
}

// Weekdays builds a set from the given days.
func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// ParseWeekdays parses letter codes such as "MWF" or "TR". Letters are case
// insensitive; repeats are ignored.
func ParseWeekdays(codes string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, r := range strings.ToUpper(strings.TrimSpace(codes)) {
		found := false
		for _, wc := range weekdayCodes {
			if rune(wc.code) == r {
				s = s.With(wc.day)
				found = true
				break
			}
		}
		if !found {
			return 0, invalid("weekdays", "unknown weekday code %q in %q", r, codes)
		}
	}
	return s, nil
}

func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Days returns the members in Monday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for _, wc := range weekdayCodes {
		if s.Has(wc.day) {
			days = append(days, wc.day)
		}
	}
	return days
}

func (s WeekdaySet) String() string {
	var b strings.Builder
	for _, wc := range weekdayCodes {
		if s.Has(wc.day) {
			b.WriteByte(wc.code)
		}
	}
	return b.String()
}
