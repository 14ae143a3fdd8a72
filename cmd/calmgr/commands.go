package main

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/urfave/cli"

	"calmgr/internal/calendar"
	"calmgr/internal/event"
	"calmgr/internal/ics"
	appLog "calmgr/internal/log"
	"calmgr/internal/publish"
	"calmgr/internal/web"
)

var serveCmd = cli.Command{
	Name:  "serve",
	Usage: "Serve the HTTP API and publish ICS files on schedule",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Usage: "HTTP listen address (overrides config if set)",
		},
	},
	Action: serve,
}

var agendaCmd = cli.Command{
	Name:  "agenda",
	Usage: "Print the events of a calendar day by day",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "calendar",
			Usage: "Calendar to print (defaults to the active one)",
		},
		&cli.StringSliceFlag{
			Name:  "file",
			Usage: "Extra ICS file or URL to load into the calendar",
		},
		&cli.StringFlag{
			Name:  "from",
			Usage: "First day to print (YYYY-MM-DD, defaults to today)",
		},
		&cli.IntFlag{
			Name:  "days",
			Usage: "Number of days to print",
			Value: 7,
		},
		&cli.BoolFlag{
			Name:  "conflicts",
			Usage: "Only print overlapping pairs of events",
		},
	},
	Action: agenda,
}

var exportCmd = cli.Command{
	Name:  "export",
	Usage: "Write one .ics file per configured calendar and exit",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Output directory (overrides export.dir)",
		},
	},
	Action: export,
}

func serve(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, svc, err := bootstrap(ctx, c)
	if err != nil {
		return err
	}
	if l := c.String("listen"); l != "" {
		cfg.Listen = l
	}

	var wg sync.WaitGroup
	if cfg.Export.Dir != "" {
		p := publish.New(svc, cfg.Export.Dir, cfg.Export.Schedule)
		if _, err := p.Publish(); err != nil {
			appLog.Error("initial publish failed", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Start(ctx); err != nil {
				appLog.Error("publisher failed", err)
			}
		}()
	}

	err = web.StartServer(ctx, cfg, svc)
	cancel()
	wg.Wait()
	appLog.Info("calmgr exiting")
	return err
}

func agenda(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, svc, err := bootstrap(ctx, c)
	if err != nil {
		return err
	}
	days := c.Int("days")
	if days <= 0 {
		return errors.New("--days must be positive")
	}
	fetcher := ics.NewFetcher(cfg.CacheDir)
	extra := make(map[string][]byte)
	for _, src := range c.StringSlice("file") {
		body, err := fetcher.Read(ctx, src)
		if err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}
		extra[src] = body
	}

	return svc.Update(func(m *calendar.Manager) error {
		cal, err := pickCalendar(m, c.String("calendar"))
		if err != nil {
			return err
		}
		loc := cal.Location()
		for src, body := range extra {
			items, err := ics.Parse(body, loc)
			if err != nil {
				return fmt.Errorf("parse %s: %w", src, err)
			}
			if _, err := ics.Load(cal, items, cfg.AutoDecline); err != nil {
				return err
			}
		}

		from := time.Now().In(loc)
		if s := c.String("from"); s != "" {
			if from, err = time.ParseInLocation("2006-01-02", s, loc); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
		}
		from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
		if c.Bool("conflicts") {
			return printConflicts(c.App.Writer, cal, from, from.AddDate(0, 0, days))
		}
		printAgenda(c.App.Writer, cal, from, days)
		return nil
	})
}

func export(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, svc, err := bootstrap(ctx, c)
	if err != nil {
		return err
	}
	dir := cfg.Export.Dir
	if d := c.String("dir"); d != "" {
		dir = d
	}
	files, err := publish.New(svc, dir, cfg.Export.Schedule).Publish()
	for _, f := range files {
		fmt.Fprintln(c.App.Writer, f)
	}
	return err
}

func pickCalendar(m *calendar.Manager, name string) (*calendar.Calendar, error) {
	if name == "" {
		return m.ActiveCalendar()
	}
	return m.Calendar(name)
}

func printAgenda(w io.Writer, cal *calendar.Calendar, from time.Time, days int) {
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i)
		events := cal.EventsOnDate(day)
		if len(events) == 0 {
			continue
		}
		fmt.Fprintln(w, day.Format("Mon 2006-01-02"))
		for _, e := range events {
			fmt.Fprintf(w, "  %s\n", formatLine(e, cal.Location()))
		}
	}
}

func printConflicts(w io.Writer, cal *calendar.Calendar, from, to time.Time) error {
	events := cal.EventsBetween(from, to)
	found := 0
	for i, e := range events {
		for _, other := range event.Conflicts(e, events[i+1:]) {
			fmt.Fprintf(w, "%s\n  overlaps %s\n", formatLine(e, cal.Location()), formatLine(other, cal.Location()))
			found++
		}
	}
	if found == 0 {
		fmt.Fprintln(w, "no conflicts")
	}
	return nil
}

func formatLine(e event.Event, loc *time.Location) string {
	e = e.In(loc)
	span := e.Start.Format("15:04") + "-" + e.End.Format("15:04")
	if e.AllDay {
		span = "all day    "
	}
	line := span + "  " + e.Subject
	if e.Location != "" {
		line += " @ " + e.Location
	}
	if e.Visibility == event.Private {
		line += " [private]"
	}
	return line
}
