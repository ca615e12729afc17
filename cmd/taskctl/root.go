package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "Operator tooling for the taskflow API",
	Long: `taskctl runs schema migrations, triggers the scheduled maintenance jobs
and generates the key material the push pipeline needs.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(newCronCommand("reset-daily", "Reset completed daily tasks whose owners passed local midnight", "/api/cron/reset-daily-tasks-by-timezone"))
	rootCmd.AddCommand(newCronCommand("reset-credits", "Refill monthly AI credits for paid plans", "/api/cron/reset-monthly-credits"))
	rootCmd.AddCommand(vapidKeysCmd)
}
