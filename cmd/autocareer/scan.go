package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/autocareer/internal/model"
	"github.com/amishk599/autocareer/internal/scan"
	"github.com/amishk599/autocareer/internal/store"
	"github.com/amishk599/autocareer/internal/tui"
)

var (
	scanSourceIDs []int64
	scanWatch     bool
	scanDryRun    bool
	scanPick      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan sources once and print the report",
	Long: "Runs one scan over every source, or the ones given with --source, and prints the report. " +
		"With --dry-run nothing is written to the database and every listing is treated as new.",
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Int64SliceVar(&scanSourceIDs, "source", nil, "source ID to scan (repeatable; default: all sources)")
	scanCmd.Flags().BoolVar(&scanWatch, "watch", false, "show live progress")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "score listings without saving them")
	scanCmd.Flags().BoolVar(&scanPick, "pick", false, "choose sources interactively")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	if scanWatch {
		logger = silentLogger()
	}

	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		jobs    model.JobStore    = a.store
		sources model.SourceStore = a.store
	)
	if scanDryRun {
		fmt.Println("dry run: nothing will be saved")
		jobs = store.NewNopStore()
		sources = dryRunSources{a.store}
	} else if err := a.seedProfile(ctx); err != nil {
		return err
	}

	ids := scanSourceIDs
	if scanPick {
		all, err := a.store.ListSources(ctx)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("No sources configured. Add one with `autocareer sources add`.")
			return nil
		}
		picked, ok, err := tui.RunSourcePicker(all)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		ids = picked
	}

	coord, err := a.coordinator(ctx, jobs, sources)
	if err != nil {
		return err
	}
	scanID, err := coord.StartScan(ctx, ids)
	if err != nil {
		return err
	}

	if scanWatch {
		detached, err := tui.RunScanWatch(coord, scanID)
		if err != nil {
			coord.Abort()
		}
		if detached {
			fmt.Println("Stopping scan...")
			coord.Abort()
		}
		if werr := coord.Wait(context.Background()); werr != nil && err == nil {
			err = werr
		}
		if err != nil {
			return err
		}
	} else if err := coord.Wait(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Println("Interrupted, stopping scan...")
		coord.Abort()
		if err := coord.Wait(context.Background()); err != nil {
			return err
		}
	}

	report, ok := coord.LastReport()
	if !ok {
		return fmt.Errorf("scan %s finished without a report", scanID)
	}
	printReport(report)
	return nil
}

func printReport(r *scan.Report) {
	fmt.Printf("\n%-30s %7s %7s %7s  %s\n", "Source", "Found", "Added", "Skipped", "Error")
	fmt.Println(strings.Repeat("─", 70))
	for _, res := range r.Results {
		fmt.Printf("%-30s %7d %7d %7d  %s\n", truncate(res.SourceName, 30), res.Found, res.Added, res.Skipped, res.Error)
	}

	found, added, skipped, failed := r.Totals()
	fmt.Printf("\nTotal: %d found, %d added, %d skipped, %d sources failed", found, added, skipped, failed)
	if r.Aborted {
		fmt.Print(" (aborted)")
	}
	fmt.Printf(" in %s\n", r.FinishedAt.Sub(r.StartedAt).Round(100 * time.Millisecond))

	newJobs := r.AddedJobs()
	if len(newJobs) == 0 {
		return
	}
	fmt.Println("\nNew matches:")
	for _, j := range newJobs {
		fmt.Printf("  %3s  %s at %s\n      %s\n", scoreText(j.Score), j.Title, j.Company, j.URL)
	}
}

func scoreText(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *score)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
