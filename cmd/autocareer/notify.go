package main

import (
	"github.com/spf13/cobra"

	"github.com/amishk599/autocareer/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a test notification using the configured notifier.",
	Args:  cobra.NoArgs,
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := notifier.SendTestMessage(a.notifier()); err != nil {
		return err
	}
	logger.Info("test notification sent successfully")
	return nil
}
