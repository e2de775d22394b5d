package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"activitygraph/internal/cache"
	"activitygraph/internal/capture"
	"activitygraph/internal/config"
	"activitygraph/internal/gitlog"
	"activitygraph/internal/graph"
	appLog "activitygraph/internal/log"
	"activitygraph/internal/model"
	"activitygraph/internal/render"
	"activitygraph/internal/web"
)

var (
	flagListen        string
	flagCacheLifetime int
	flagCacheFile     string
	flagRefreshCron   string
	flagCapture       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a server that serves the generated activity graph html",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyGenerationFlags(cmd, cfg)
		applyExternalFlags(cmd, cfg)
		if cmd.Flags().Changed("listen") {
			cfg.Listen = flagListen
		}
		if cmd.Flags().Changed("cache-lifetime") {
			cfg.CacheLifetimeSeconds = flagCacheLifetime
		}
		if cmd.Flags().Changed("cache-file") {
			cfg.CacheFile = flagCacheFile
		}
		if cmd.Flags().Changed("refresh") {
			cfg.RefreshCron = flagRefreshCron
		}
		if cmd.Flags().Changed("capture") {
			cfg.Capture.Enabled = flagCapture
		}
		cfg.Normalize()

		return runServer(cmd.Context(), cfg)
	},
}

func init() {
	addGenerationFlags(serveCmd)
	addExternalFlags(serveCmd)
	serveCmd.Flags().StringVar(&flagListen, "listen", "127.0.0.1:8080",
		"the address that the server is hosted on")
	serveCmd.Flags().IntVar(&flagCacheLifetime, "cache-lifetime", 1,
		"the minimum amount of seconds between regenerating the html and css")
	serveCmd.Flags().StringVar(&flagCacheFile, "cache-file", "",
		"a file that will be used as backup storage for the cache, to keep serving the previous version after a restart")
	serveCmd.Flags().StringVar(&flagRefreshCron, "refresh", "",
		"cron-style schedule that pre-warms the cache in the background (e.g. \"@every 15m\")")
	serveCmd.Flags().BoolVar(&flagCapture, "capture", false,
		"capture a PNG of the rendered page after scheduled refreshes, served at /preview.png")
	rootCmd.AddCommand(serveCmd)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	scanner := &gitlog.Scanner{Author: cfg.Author, Pull: cfg.Pull}

	listEvents := func(ctx context.Context) ([]model.Event, error) {
		repos := gitlog.FindRepositories(cfg.Inputs, cfg.Depth)
		events, _ := scanner.CommitTimes(ctx, repos)
		return events, nil
	}

	// The refresh pipeline behind the coordinator: scan, gather, render.
	// External fragments are re-read on every refresh so they can be
	// edited without restarting the server.
	pipeline := func(ctx context.Context) (string, string, error) {
		events, err := listEvents(ctx)
		if err != nil {
			return "", "", err
		}
		years := graph.Gather(events)
		ext := render.LoadExternal(cfg.External)
		return render.HTML(ext, "/activity-graph.css", years), render.CSS(ext), nil
	}

	coord := cache.New(pipeline, cfg.CacheLifetime(), cfg.CacheFile)
	srv := web.NewServer(cfg, coord, listEvents)

	// A bind failure is a startup abort, not a runtime condition.
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("could not bind %s: %w", cfg.Listen, err)
	}

	httpServer := &http.Server{Handler: srv.Handler()}

	if cfg.RefreshCron != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.RefreshCron, func() {
			coord.Refresh()
			capturePreview(ctx, cfg)
		}); err != nil {
			ln.Close()
			return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
		}
		c.Start()
		defer c.Stop()
		appLog.Info("scheduled cache refresh", "schedule", cfg.RefreshCron)
	} else if cfg.Capture.Enabled {
		// No schedule: capture once after the first refresh settles.
		go func() {
			coord.Refresh()
			capturePreview(ctx, cfg)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	appLog.Info("server started", "listen", "http://"+cfg.Listen)

	select {
	case <-ctx.Done():
		appLog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// capturePreview renders the served page to the configured PNG path.
// Failures are logged; a broken Chromium install never takes the server
// down.
func capturePreview(ctx context.Context, cfg *config.Config) {
	if !cfg.Capture.Enabled {
		return
	}
	err := capture.PagePNG(ctx, capture.Options{
		URL:        "http://" + cfg.Listen + "/",
		OutputPath: cfg.Capture.OutputPath,
		Width:      cfg.Capture.Width,
		Height:     cfg.Capture.Height,
	})
	if err != nil {
		appLog.Error("preview capture failed", err)
		return
	}
	appLog.Info("captured preview", "path", cfg.Capture.OutputPath)
}
