package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"calmgr/internal/calendar"
	"calmgr/internal/event"
)

const productID = "-//calmgr//Calendar Manager//EN"

// Export serializes every event of cal as a PUBLISH calendar. Occurrences
// of a series are written one VEVENT each and carry the series ID in
// X-CALMGR-SERIES.
func Export(cal *calendar.Calendar) string {
	out := ical.NewCalendar()
	out.SetProductId(productID)
	out.SetMethod(ical.MethodPublish)
	out.SetXWRCalName(cal.Name())
	out.SetXWRTimezone(cal.Location().String())

	stamp := time.Now()
	for _, e := range cal.Events() {
		ve := out.AddEvent(eventUID(cal.Name(), e))
		ve.SetDtStampTime(stamp)
		if e.AllDay {
			ve.SetAllDayStartAt(e.Start)
			ve.SetAllDayEndAt(e.End)
		} else {
			ve.SetStartAt(e.Start)
			ve.SetEndAt(e.End)
		}
		ve.SetSummary(e.Subject)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Visibility == event.Private {
			ve.SetClass(ical.ClassificationPrivate)
		} else {
			ve.SetClass(ical.ClassificationPublic)
		}
		if e.SeriesID != "" {
			ve.SetProperty(PropertySeries, e.SeriesID)
		}
	}
	return out.Serialize()
}

// eventUID is stable across exports as long as the event keeps its subject
// and times.
func eventUID(calName string, e event.Event) string {
	key := calName + "\x00" + e.Subject + "\x00" +
		e.Start.UTC().Format(time.RFC3339) + "\x00" + e.End.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + "@calmgr"
}
