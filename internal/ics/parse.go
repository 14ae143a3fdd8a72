package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calmgr/internal/event"
	appLog "calmgr/internal/log"
	"calmgr/internal/recurrence"
)

// PropertySeries carries the series ID of an exported occurrence.
const PropertySeries = ical.ComponentProperty("X-CALMGR-SERIES")

// Item is one VEVENT mapped onto the calendar model. Exactly one of Event
// or Template is meaningful: Template is non-nil for recurring VEVENTs.
// Err is set when the VEVENT could not be mapped; Load skips such items.
type Item struct {
	UID      string
	Event    event.Event
	Template *event.Template
	Err      error
}

func (it Item) Recurring() bool {
	return it.Template != nil
}

// Parse reads an ICS payload. Floating times and all-day dates are read in
// loc; times with a TZID or a UTC suffix keep their own zone.
//
// RRULEs are mapped with recurrence.FromRRule. VEVENTs overriding a single
// instance (RECURRENCE-ID) are reported as skipped items.
func Parse(body []byte, loc *time.Location) ([]Item, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	items := make([]Item, 0)
	for _, ve := range cal.Events() {
		it := parseVEvent(ve, loc)
		if it.Err != nil {
			appLog.Warn("ics vevent skipped", "uid", it.UID, "reason", it.Err.Error())
		}
		items = append(items, it)
	}
	appLog.Debug("ics parse completed", "items", len(items))
	return items, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) Item {
	var it Item
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		it.UID = p.Value
	}
	if ve.GetProperty(ical.ComponentPropertyRecurrenceId) != nil {
		it.Err = errors.New("instance overrides are not supported")
		return it
	}

	start, allDay, err := propTime(ve, ical.ComponentPropertyDtStart, loc)
	if err != nil {
		it.Err = err
		return it
	}
	var end time.Time
	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		end, _, err = propTime(ve, ical.ComponentPropertyDtEnd, loc)
		if err != nil {
			it.Err = err
			return it
		}
	} else if allDay {
		end = start.AddDate(0, 0, 1)
	} else {
		it.Err = errors.New("missing DTEND")
		return it
	}

	opts := []event.Option{event.WithAllDay(allDay)}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		opts = append(opts, event.WithDescription(p.Value))
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		opts = append(opts, event.WithLocation(p.Value))
	}
	if p := ve.GetProperty(ical.ComponentPropertyClass); p != nil {
		switch ical.Classification(strings.ToUpper(strings.TrimSpace(p.Value))) {
		case ical.ClassificationPrivate, ical.ClassificationConfidential:
			opts = append(opts, event.WithVisibility(event.Private))
		}
	}
	summary := ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}

	base, err := event.New(summary, start, end, opts...)
	if err != nil {
		it.Err = err
		return it
	}
	it.Event = base

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		if len(ve.GetProperties(ical.ComponentPropertyExdate)) > 0 {
			it.Err = errors.New("EXDATE is not supported")
			return it
		}
		tpl, err := recurrence.FromRRule(base, p.Value)
		if err != nil {
			it.Err = err
			return it
		}
		it.Template = &tpl
	}
	return it
}

// propTime reads a DTSTART/DTEND property. The second result reports a
// VALUE=DATE (or bare date) property.
func propTime(ve *ical.VEvent, prop ical.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	p := ve.GetProperty(prop)
	if p == nil {
		return time.Time{}, false, fmt.Errorf("missing %s", prop)
	}
	val := strings.TrimSpace(p.Value)
	tzid := firstParam(p, "TZID")

	if isDate(p) {
		zone := loc
		if tzid != "" {
			if z, err := time.LoadLocation(tzid); err == nil {
				zone = z
			}
		}
		t, err := time.ParseInLocation("20060102", val, zone)
		if err != nil {
			return time.Time{}, true, fmt.Errorf("%s: %w", prop, err)
		}
		return t, true, nil
	}

	if tzid == "" && !strings.HasSuffix(val, "Z") {
		t, err := time.ParseInLocation("20060102T150405", val, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%s: %w", prop, err)
		}
		return t, false, nil
	}

	var t time.Time
	var err error
	if prop == ical.ComponentPropertyDtEnd {
		t, err = ve.GetEndAt()
	} else {
		t, err = ve.GetStartAt()
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w", prop, err)
	}
	return t, false, nil
}

func isDate(p *ical.IANAProperty) bool {
	if strings.EqualFold(firstParam(p, "VALUE"), "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func firstParam(p *ical.IANAProperty, name string) string {
	if p.ICalParameters == nil {
		return ""
	}
	if vs, ok := p.ICalParameters[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}
