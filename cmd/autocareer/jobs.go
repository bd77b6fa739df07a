package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/autocareer/internal/model"
	"github.com/amishk599/autocareer/internal/scan"
	"github.com/amishk599/autocareer/internal/tui"
)

var (
	jobsStatus  string
	jobsBrowse  bool
	jobsCompany string
	jobsTitle   string
	jobsTailor  bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and enter jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsSetStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Move a job to another status",
	Long:  "Valid statuses: " + statusNames() + ".",
	Args:  cobra.ExactArgs(2),
	RunE:  runJobsSetStatus,
}

var jobsAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Enter a job by hand",
	Long:  "Saves a job posting found outside the configured sources. With --tailor a resume is produced for it right away.",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsAdd,
}

func init() {
	jobsAddCmd.Flags().StringVar(&jobsCompany, "company", "", "company name")
	jobsAddCmd.Flags().StringVar(&jobsTitle, "title", "", "job title")
	jobsAddCmd.Flags().BoolVar(&jobsTailor, "tailor", false, "tailor a resume for the job after saving it")
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "only list jobs with this status")
	jobsListCmd.Flags().BoolVar(&jobsBrowse, "browse", false, "browse the list interactively")
	jobsCmd.AddCommand(jobsListCmd, jobsAddCmd, jobsSetStatusCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	var status model.JobStatus
	if jobsStatus != "" {
		s, err := model.ParseStatus(jobsStatus)
		if err != nil {
			return err
		}
		status = s
	}

	logger := setupLogger(debug)
	if jobsBrowse {
		logger = silentLogger()
	}
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.close()

	jobs, err := a.store.ListJobs(cmd.Context(), status)
	if err != nil {
		return err
	}
	if jobsBrowse {
		return tui.RunJobBrowser(jobs, a.store)
	}

	fmt.Printf("%-5s %-5s %-12s %-20s %s\n", "ID", "Score", "Status", "Company", "Title")
	fmt.Println(strings.Repeat("─", 80))
	for _, j := range jobs {
		fmt.Printf("%-5d %-5s %-12s %-20s %s\n", j.ID, scoreText(j.Score), j.Status, truncate(j.Company, 20), j.Title)
	}
	fmt.Printf("\nTotal: %d jobs\n", len(jobs))
	return nil
}

func runJobsSetStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	status, err := model.ParseStatus(args[1])
	if err != nil {
		return err
	}

	a, err := openApp(setupLogger(debug))
	if err != nil {
		return err
	}
	defer a.close()

	job, err := a.store.UpdateJobStatus(cmd.Context(), id, status, "")
	if err != nil {
		return err
	}
	fmt.Printf("Job %d is now %s\n", job.ID, job.Status)
	return nil
}

func runJobsAdd(cmd *cobra.Command, args []string) error {
	url, err := scan.ResolveURL(args[0], args[0])
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	logger := setupLogger(debug)
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job, err := a.store.Insert(ctx, model.Job{
		URL:     url,
		Company: strings.TrimSpace(jobsCompany),
		Title:   strings.TrimSpace(jobsTitle),
		Status:  model.StatusSuggested,
	})
	if errors.Is(err, model.ErrDuplicate) {
		return fmt.Errorf("%s is already saved", url)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Added job %d: %s\n", job.ID, job.URL)
	if !jobsTailor {
		return nil
	}

	t, err := a.tailor(ctx)
	if err != nil {
		return err
	}
	job, err = t.Run(ctx, job.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Resume for %s at %s written to %s\n", job.Title, job.Company, job.DocumentPath)
	return nil
}

func statusNames() string {
	var names []string
	for _, s := range model.Statuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
