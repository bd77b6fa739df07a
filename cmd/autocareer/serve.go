package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/autocareer/internal/scheduler"
	"github.com/amishk599/autocareer/internal/server"
)

var serveRunOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scan scheduler",
	Long:  "Serves the JSON API and, when scan.schedule is set, runs scans on that schedule. Blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveRunOnStart, "scan-on-start", false, "run a full scan immediately when the schedule starts")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.seedProfile(ctx); err != nil {
		return err
	}
	coord, err := a.coordinator(ctx, a.store, a.store)
	if err != nil {
		return err
	}
	t, err := a.tailor(ctx)
	if err != nil {
		return err
	}

	srv := server.New(coord, a.store, t, server.Options{}, logger)

	var sched *scheduler.Scheduler
	if spec := a.cfg.Scan.Schedule; spec != "" {
		sched, err = scheduler.NewScheduler(spec, coord, serveRunOnStart, logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, a.cfg.Server.Addr) })
	if sched != nil {
		g.Go(func() error { return sched.Run(gctx) })
	}
	err = g.Wait()

	// Let in-flight work finish writing before the store closes.
	coord.Abort()
	if werr := coord.Wait(context.Background()); werr != nil {
		logger.Warn("waiting for scan", "error", werr)
	}
	t.Wait()

	if err != nil {
		return err
	}
	logger.Info("goodbye")
	return nil
}
