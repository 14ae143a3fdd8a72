package ics

import (
	"calmgr/internal/calendar"
	appLog "calmgr/internal/log"
)

// LoadResult counts what happened to each parsed item.
type LoadResult struct {
	Added    int
	Rejected int
	Skipped  int
}

// Load adds items to cal. Items the calendar refuses are counted as
// rejected and logged; items that failed to parse are counted as skipped.
// Programmer errors from the calendar are returned.
func Load(cal *calendar.Calendar, items []Item, autoDecline bool) (LoadResult, error) {
	var res LoadResult
	for _, it := range items {
		if it.Err != nil {
			res.Skipped++
			continue
		}
		var err error
		if it.Recurring() {
			_, err = cal.AddRecurringEvent(*it.Template, autoDecline)
		} else {
			err = cal.AddEvent(it.Event, autoDecline)
		}
		switch {
		case err == nil:
			res.Added++
		case calendar.IsRecoverable(err):
			res.Rejected++
			appLog.Info("ics item rejected", "calendar", cal.Name(), "uid", it.UID, "subject", it.Event.Subject, "reason", err.Error())
		default:
			return res, err
		}
	}
	appLog.Info("ics load completed", "calendar", cal.Name(), "added", res.Added, "rejected", res.Rejected, "skipped", res.Skipped)
	return res, nil
}
