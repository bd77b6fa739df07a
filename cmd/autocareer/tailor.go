package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor <job-id>",
	Short: "Produce a tailored resume for a job",
	Long: "Fetches the job posting, rewrites the master resume for it and compiles the result to PDF. " +
		"The job moves to applied on success and to failed otherwise.",
	Args: cobra.ExactArgs(1),
	RunE: runTailor,
}

func init() {
	rootCmd.AddCommand(tailorCmd)
}

func runTailor(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	logger := setupLogger(debug)
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	t, err := a.tailor(ctx)
	if err != nil {
		return err
	}
	job, err := t.Run(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Resume for %s at %s written to %s\n", job.Title, job.Company, job.DocumentPath)
	return nil
}
