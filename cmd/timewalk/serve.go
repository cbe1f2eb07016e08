package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsnow/timewalk/pkg/httpapi"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/jrsnow/timewalk/pkg/versions"
	"github.com/spf13/cobra"
)

var (
	serveListen      string
	serveCORSOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the localhost-only HTTP query API",
	Long: `Serve starts a read-only HTTP server exposing version lookup and
directory browsing as JSON/NDJSON. It carries no authentication -- it
shares the same trust boundary as running "timewalk list" directly, so
bind it only where that's acceptable.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "127.0.0.1:8787", "address to listen on")
	serveCmd.Flags().StringSliceVar(&serveCORSOrigins, "cors-origin", nil,
		"allowed CORS origin (repeatable; when none is given, every origin is allowed)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	inv, cfg, err := buildInventory(ctx)
	if err != nil {
		return err
	}

	uniqueness, err := paths.ParseUniqueness(cfg.Uniqueness)
	if err != nil {
		return err
	}

	versions.ConfigureAutomountRateLimit(time.Duration(cfg.AutomountMinIntervalMillis) * time.Millisecond)

	srv := httpapi.NewServer(log, httpapi.Config{
		Listen:      serveListen,
		CORSOrigins: serveCORSOrigins,
	}, inv, uniqueness)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting http api: %w", err)
	}

	<-ctx.Done()

	return srv.Stop()
}
