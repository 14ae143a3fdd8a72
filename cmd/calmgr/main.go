package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/urfave/cli"

	"calmgr/internal/config"
	"calmgr/internal/ics"
	appLog "calmgr/internal/log"
	"calmgr/internal/service"
)

const (
	appName    = "calmgr"
	appVersion = "0.1.0"
)

func main() {
	app := cli.App{
		Name:    appName,
		Usage:   "Manage calendars, recurring events and ICS feeds",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:   "config",
				Usage:  "Path to config file",
				Value:  "/etc/calmgr/config.yaml",
				EnvVar: "CALMGR_CONFIG",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Output debug messages",
			},
		},
		Commands: []cli.Command{
			serveCmd,
			agendaCmd,
			exportCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the global --config file and applies the log level.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.GlobalString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	level := appLog.ParseLevel(cfg.LogLevel)
	if c.GlobalBool("debug") {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	appLog.Debug("config loaded", "path", path, "calendars", len(cfg.Calendars), "active", cfg.Active)
	return cfg, nil
}

// bootstrap loads the config and builds the service from it.
func bootstrap(ctx context.Context, c *cli.Context) (*config.Config, *service.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	svc, err := service.FromConfig(ctx, cfg, ics.NewFetcher(cfg.CacheDir))
	if err != nil {
		return nil, nil, err
	}
	return cfg, svc, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
