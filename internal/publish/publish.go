package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"

	"calmgr/internal/calendar"
	"calmgr/internal/ics"
	appLog "calmgr/internal/log"
	"calmgr/internal/service"
)

// Publisher writes one <calendar>.ics file per calendar into a directory.
type Publisher struct {
	svc      *service.Service
	dir      string
	schedule string
}

func New(svc *service.Service, dir, schedule string) *Publisher {
	return &Publisher{svc: svc, dir: dir, schedule: schedule}
}

// Publish exports every calendar once and returns the files written.
func (p *Publisher) Publish() ([]string, error) {
	if p.dir == "" {
		return nil, errors.New("publish: no export directory configured")
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, err
	}

	feeds := make(map[string]string)
	p.svc.View(func(m *calendar.Manager) {
		for _, name := range m.Names() {
			c, err := m.Calendar(name)
			if err != nil {
				continue
			}
			feeds[name] = ics.Export(c)
		}
	})

	written := make([]string, 0, len(feeds))
	var errs []error
	for name, body := range feeds {
		path := filepath.Join(p.dir, FileName(name))
		if err := writeAtomic(path, []byte(body)); err != nil {
			errs = append(errs, fmt.Errorf("publish %q: %w", name, err))
			continue
		}
		written = append(written, path)
	}
	appLog.Info("calendars published", "dir", p.dir, "files", len(written), "failed", len(errs))
	return written, errors.Join(errs...)
}

// Start publishes on the configured cron schedule until ctx is done, then
// waits for a running export to finish.
func (p *Publisher) Start(ctx context.Context) error {
	c := cron.New(cron.WithLogger(cronLogger{}))
	if _, err := c.AddFunc(p.schedule, func() {
		if _, err := p.Publish(); err != nil {
			appLog.Error("scheduled publish failed", err)
		}
	}); err != nil {
		return fmt.Errorf("publish: schedule %q: %w", p.schedule, err)
	}
	c.Start()
	appLog.Info("publisher started", "schedule", p.schedule, "dir", p.dir)

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("publisher stopped")
	return nil
}

// FileName maps a calendar name onto a file name inside the export dir.
func FileName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_")
	name = strings.TrimSpace(r.Replace(name))
	if name == "" || name == "." || name == ".." {
		name = "calendar"
	}
	return name + ".ics"
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".calmgr-publish-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
