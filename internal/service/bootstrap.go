package service

import (
	"context"
	"fmt"

	"calmgr/internal/calendar"
	"calmgr/internal/config"
	"calmgr/internal/ics"
	appLog "calmgr/internal/log"
)

// Reader loads an ICS payload from a file path or URL.
type Reader interface {
	Read(ctx context.Context, location string) ([]byte, error)
}

// FromConfig creates the configured calendars, imports their ICS sources
// and selects the active calendar. A source that cannot be read or parsed
// is logged and skipped; the other sources still load.
func FromConfig(ctx context.Context, cfg *config.Config, r Reader) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	m := calendar.NewManager(calendar.WithMaxOccurrences(cfg.MaxOccurrences))

	for _, cc := range cfg.Calendars {
		loc, err := cfg.Location(cc)
		if err != nil {
			return nil, err
		}
		if err := m.AddCalendar(cc.Name, loc); err != nil {
			return nil, err
		}
		cal, _ := m.Calendar(cc.Name)
		for _, src := range cc.Import {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			body, err := r.Read(ctx, src)
			if err != nil {
				appLog.Error("ics source unreadable", err, "calendar", cc.Name)
				continue
			}
			items, err := ics.Parse(body, loc)
			if err != nil {
				appLog.Error("ics source unparseable", err, "calendar", cc.Name)
				continue
			}
			if _, err := ics.Load(cal, items, cfg.AutoDecline); err != nil {
				return nil, fmt.Errorf("load into %q: %w", cc.Name, err)
			}
		}
	}

	if cfg.Active != "" {
		if err := m.UseCalendar(cfg.Active); err != nil {
			return nil, err
		}
	}
	return New(m), nil
}
