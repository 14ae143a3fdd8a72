package calendar

import (
	"fmt"
	"time"

	"calmgr/internal/event"
	appLog "calmgr/internal/log"
)

// EditSingleEvent edits the one event whose subject, start and end match
// exactly.
func (c *Calendar) EditSingleEvent(p event.Property, name string, start, end time.Time, value string) error {
	if _, err := event.ParseProperty(string(p)); err != nil {
		return err
	}
	matches := 0
	for _, e := range c.events {
		if e.Matches(name, start, end) {
			matches++
		}
	}
	switch {
	case matches == 0:
		return fmt.Errorf("%w: %q at %s", ErrNotFound, name, start.Format(time.RFC3339))
	case matches > 1:
		// Unreachable while AddEvent rejects exact duplicates; kept as a guard.
		return fmt.Errorf("%w: %q at %s", ErrAmbiguousEvent, name, start.Format(time.RFC3339))
	}
	return c.applyEdit(p, value, func(e event.Event) bool {
		return e.Matches(name, start, end)
	})
}

// EditEventsFrom edits every event named name starting at or after from.
func (c *Calendar) EditEventsFrom(p event.Property, name string, from time.Time, value string) error {
	if _, err := event.ParseProperty(string(p)); err != nil {
		return err
	}
	return c.applyEdit(p, value, func(e event.Event) bool {
		return e.Subject == name && !e.Start.Before(from)
	})
}

// EditEventsAll edits every event named name.
func (c *Calendar) EditEventsAll(p event.Property, name string, value string) error {
	if _, err := event.ParseProperty(string(p)); err != nil {
		return err
	}
	return c.applyEdit(p, value, func(e event.Event) bool {
		return e.Subject == name
	})
}

// applyEdit is the shared core of the scoped edits: every selected event is
// rewritten, and the store is only touched once all rewrites are valid and
// none of them duplicates another event.
func (c *Calendar) applyEdit(p event.Property, value string, selected func(event.Event) bool) error {
	updated := make(map[int]event.Event)
	for i, e := range c.events {
		if !selected(e) {
			continue
		}
		ne, err := e.WithUpdatedProperty(p, value)
		if err != nil {
			return err
		}
		updated[i] = ne.In(c.loc)
	}
	if len(updated) == 0 {
		return ErrNotFound
	}

	for i, ne := range updated {
		for j, other := range c.events {
			if i == j {
				continue
			}
			if u, ok := updated[j]; ok {
				other = u
			}
			if ne.SameKey(other) {
				return fmt.Errorf("%w: %s", ErrDuplicateEvent, ne)
			}
		}
	}

	for i, ne := range updated {
		c.events[i] = ne
	}
	appLog.Debug("events edited", "calendar", c.name, "property", string(p), "count", len(updated))
	return nil
}

// EditRecurringEvent edits the series that an event named name belongs to.
//
// weekdays, count and until rebuild the series from its template under the
// same series ID, replacing every previous occurrence (per-occurrence edits
// are lost). subject, description, location and status are written to every
// occurrence in place.
func (c *Calendar) EditRecurringEvent(name string, p event.Property, value string) error {
	p, err := event.ParseSeriesProperty(string(p))
	if err != nil {
		return err
	}
	switch p {
	case event.PropWeekdays, event.PropCount, event.PropUntil,
		event.PropSubject, event.PropDescription, event.PropLocation, event.PropStatus:
	default:
		return &UnsupportedPropertyError{Scope: "series", Name: string(p)}
	}

	id := c.seriesOf(name)
	if id == "" {
		return fmt.Errorf("%w: %q", ErrRecurringEventNotFound, name)
	}
	s := c.series[id]
	tpl, err := s.template.WithUpdatedProperty(p, value)
	if err != nil {
		return err
	}

	if p.Regenerates() {
		if err := c.regenerate(id, tpl, s.autoDecline); err != nil {
			return err
		}
	} else if err := c.applyEdit(p, value, func(e event.Event) bool { return e.SeriesID == id }); err != nil {
		return err
	}

	s.template = tpl
	c.series[id] = s
	return nil
}

func (c *Calendar) seriesOf(name string) string {
	for _, e := range c.events {
		if e.Subject != name || e.SeriesID == "" {
			continue
		}
		if _, ok := c.series[e.SeriesID]; ok {
			return e.SeriesID
		}
	}
	return ""
}

func (c *Calendar) regenerate(id string, tpl event.Template, autoDecline bool) error {
	occ := c.materialize(tpl, id)
	if len(occ) == 0 {
		return ErrNoOccurrences
	}
	rest := make([]event.Event, 0, len(c.events))
	for _, e := range c.events {
		if e.SeriesID != id {
			rest = append(rest, e)
		}
	}
	for _, o := range occ {
		if err := admit(o, rest, autoDecline); err != nil {
			return err
		}
	}
	c.events = append(rest, occ...)
	appLog.Debug("series regenerated", "calendar", c.name, "series", id, "occurrences", len(occ))
	return nil
}
