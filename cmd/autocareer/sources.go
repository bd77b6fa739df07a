package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/amishk599/autocareer/internal/model"
)

var sourceFilter string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage job sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	Args:  cobra.NoArgs,
	RunE:  runSourcesList,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a source",
	Args:  cobra.ExactArgs(2),
	RunE:  runSourcesAdd,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesRemove,
}

func init() {
	sourcesAddCmd.Flags().StringVar(&sourceFilter, "filter", "", "criteria applied only to this source")
	sourcesCmd.AddCommand(sourcesListCmd, sourcesAddCmd, sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	a, err := openApp(setupLogger(debug))
	if err != nil {
		return err
	}
	defer a.close()

	sources, err := a.store.ListSources(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%-5s %-25s %-45s %s\n", "ID", "Name", "URL", "Last scanned")
	fmt.Println(strings.Repeat("─", 95))
	for _, s := range sources {
		scanned := "never"
		if s.LastScannedAt != nil {
			scanned = s.LastScannedAt.Local().Format(time.DateTime)
		}
		fmt.Printf("%-5d %-25s %-45s %s\n", s.ID, truncate(s.Name, 25), truncate(s.URL, 45), scanned)
	}
	fmt.Printf("\nTotal: %d sources\n", len(sources))
	return nil
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	name, url := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if err := validator.New().Var(url, "required,http_url"); err != nil {
		return fmt.Errorf("invalid url %q: must be an absolute http(s) URL", url)
	}

	a, err := openApp(setupLogger(debug))
	if err != nil {
		return err
	}
	defer a.close()

	src, err := a.store.CreateSource(cmd.Context(), model.Source{Name: name, URL: url, FilterText: sourceFilter})
	if err != nil {
		return err
	}
	fmt.Printf("Added source %d: %s\n", src.ID, src.Name)
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(setupLogger(debug))
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.DeleteSource(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Removed source %d\n", id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

