package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/autocareer/internal/model"
)

// settingCommand builds the show/set pair for one text setting.
func settingCommand(use, key, what string) *cobra.Command {
	parent := &cobra.Command{
		Use:   use,
		Short: "Show or replace the " + what,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the " + what,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(setupLogger(debug))
			if err != nil {
				return err
			}
			defer a.close()

			if key == model.SettingProfile {
				if err := a.seedProfile(cmd.Context()); err != nil {
					return err
				}
			}
			value, err := a.store.GetSetting(cmd.Context(), key)
			if err != nil {
				return err
			}
			if strings.TrimSpace(value) == "" {
				fmt.Printf("(no %s set)\n", what)
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}

	var file string
	set := &cobra.Command{
		Use:   "set [text]",
		Short: "Replace the " + what,
		Long:  "Replaces the " + what + " with the given text, or with the contents of --file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			switch {
			case file != "" && len(args) > 0:
				return fmt.Errorf("give either text or --file, not both")
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				value = string(data)
			case len(args) == 1:
				value = args[0]
			default:
				return fmt.Errorf("nothing to set: give text or --file")
			}

			a, err := openApp(setupLogger(debug))
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.SetSetting(cmd.Context(), key, value); err != nil {
				return err
			}
			fmt.Printf("Updated %s\n", what)
			return nil
		},
	}
	set.Flags().StringVarP(&file, "file", "f", "", "read the new value from a file")

	parent.AddCommand(show, set)
	return parent
}

func init() {
	rootCmd.AddCommand(
		settingCommand("filter", model.SettingGlobalFilter, "global filter"),
		settingCommand("profile", model.SettingProfile, "candidate profile"),
	)
}
