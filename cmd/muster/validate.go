package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goodtune/muster/internal/config"
	"github.com/goodtune/muster/internal/window"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the Muster configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		return err
	}

	// Weekday names are only parsed when the policy is built, so check
	// them here too.
	if _, err := window.ParseWeekdays(cfg.Window.Weekdays); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		return err
	}

	color.Green("Configuration is valid: %s", configPath)
	fmt.Printf("  room:         %s\n", cfg.Platform.Room)
	fmt.Printf("  log channel:  %s\n", cfg.Platform.LogChannelID)
	fmt.Printf("  timezone:     %s\n", cfg.Timezone)
	fmt.Printf("  window:       %s-%s on %v\n", cfg.Window.Start, cfg.Window.End, cfg.Window.Weekdays)
	fmt.Printf("  scheduled end: %v\n", cfg.Window.ScheduledEnd)
	return nil
}
