package calendar

import (
	"errors"
	"fmt"
	"time"

	"calmgr/internal/event"
	appLog "calmgr/internal/log"
)

// CopySingleEvent copies the event named name starting at start from the
// calendar in use to target. targetStart is read as a wall-clock time in the
// target calendar's zone; the duration is kept.
func (m *Manager) CopySingleEvent(name string, start time.Time, target string, targetStart time.Time) error {
	src, dst, err := m.copyEnds(target)
	if err != nil {
		return err
	}

	var found []event.Event
	for _, e := range src.events {
		if e.Subject == name && e.Start.Equal(start) {
			found = append(found, e)
		}
	}
	switch {
	case len(found) == 0:
		return fmt.Errorf("%w: %q at %s", ErrNotFound, name, start.Format(time.RFC3339))
	case len(found) > 1:
		return fmt.Errorf("%w: %q at %s", ErrAmbiguousEvent, name, start.Format(time.RFC3339))
	}

	e := found[0]
	at := wallClockIn(targetStart, dst.Location())
	cp := e
	cp.SeriesID = ""
	cp.Start = at
	cp.End = at.Add(e.Duration())
	if err := dst.AddEvent(cp, true); err != nil {
		return err
	}
	appLog.Info("event copied", "subject", name, "from", src.Name(), "to", dst.Name(), "start", cp.Start.Format(time.RFC3339))
	return nil
}

// CopyEventsOnDate copies every event of the calendar in use overlapping
// date to target, moved by the number of days between date and targetDate.
// It returns how many events were copied.
func (m *Manager) CopyEventsOnDate(date time.Time, target string, targetDate time.Time) (int, error) {
	src, dst, err := m.copyEnds(target)
	if err != nil {
		return 0, err
	}
	return copyShifted(src, dst, src.EventsOnDate(date), daysBetween(date, targetDate))
}

// CopyEventsBetween copies every event of the calendar in use overlapping
// the days from start to end (both inclusive, read in the source zone) to
// target. The first day lands on targetDate.
func (m *Manager) CopyEventsBetween(start, end time.Time, target string, targetDate time.Time) (int, error) {
	src, dst, err := m.copyEnds(target)
	if err != nil {
		return 0, err
	}
	from := wallClockIn(dayStart(start), src.Location())
	to := wallClockIn(dayStart(end), src.Location()).AddDate(0, 0, 1)
	if !to.After(from) {
		return 0, &event.ValidationError{Field: "end", Reason: "copy range ends before it starts"}
	}
	events := src.filter(func(e event.Event) bool {
		return e.Start.Before(to) && e.End.After(from)
	})
	return copyShifted(src, dst, events, daysBetween(start, targetDate))
}

// copyShifted adds each event to dst with auto-decline. Rejections of some
// events do not undo the others; the call only fails when nothing could be
// copied.
func copyShifted(src, dst *Calendar, events []event.Event, days int) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("%w: nothing to copy from %q", ErrNotFound, src.Name())
	}
	copied := 0
	var errs []error
	for _, e := range events {
		cp := e.ShiftDays(days).In(dst.Location())
		cp.SeriesID = ""
		if err := dst.AddEvent(cp, true); err != nil {
			appLog.Debug("copy rejected", "subject", e.Subject, "to", dst.Name(), "err", err)
			errs = append(errs, err)
			continue
		}
		copied++
	}
	appLog.Info("events copied", "from", src.Name(), "to", dst.Name(), "copied", copied, "rejected", len(errs))
	if copied == 0 {
		return 0, errors.Join(errs...)
	}
	return copied, nil
}

func (m *Manager) copyEnds(target string) (*Calendar, *Calendar, error) {
	src, err := m.ActiveCalendar()
	if err != nil {
		return nil, nil, err
	}
	dst, err := m.Calendar(target)
	if err != nil {
		return nil, nil, err
	}
	return src, dst, nil
}

// wallClockIn keeps t's date and time of day but places them in loc.
func wallClockIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a's date to b's date.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
