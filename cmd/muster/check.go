package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goodtune/muster/internal/clock"
	"github.com/goodtune/muster/internal/config"
	"github.com/goodtune/muster/internal/report"
	"github.com/goodtune/muster/internal/window"
)

var (
	checkDay  string
	checkTime string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check tracking behavior interactively",
	Long:  `Check what the tracking window policy would decide for a given day and time.`,
}

var checkWindowCmd = &cobra.Command{
	Use:   "window",
	Short: "Check the effective tracking window",
	Long:  `Show whether a tracking window bounds presence at the given day and time, and its concrete start and end.`,
	Example: `  muster -c config.yaml check window
  muster check window --day thursday --time 14:30`,
	RunE: runCheckWindow,
}

func init() {
	checkWindowCmd.Flags().StringVar(&checkDay, "day", "", "Weekday to check (defaults to today)")
	checkWindowCmd.Flags().StringVar(&checkTime, "time", "", "Time of day to check, HH:MM (defaults to now)")

	checkCmd.AddCommand(checkWindowCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheckWindow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	clk, err := clock.NewReal(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	weekdays, err := window.ParseWeekdays(cfg.Window.Weekdays)
	if err != nil {
		return fmt.Errorf("failed to parse window weekdays: %w", err)
	}
	policy, err := window.NewPolicy(window.Config{
		Weekdays: weekdays,
		Start:    cfg.Window.Start,
		End:      cfg.Window.End,
	})
	if err != nil {
		return fmt.Errorf("failed to build window policy: %w", err)
	}

	at, err := resolveCheckInstant(clk)
	if err != nil {
		return err
	}

	fmt.Printf("Checking tracking window at %s (%s)\n\n",
		report.FormatTimestamp(at), at.Weekday())

	win, bounded := policy.For(at)
	if !bounded {
		color.Yellow("NO WINDOW")
		fmt.Println("Presence on this day is counted in full, without clipping.")
		return nil
	}

	color.Green("WINDOW IN EFFECT")
	fmt.Printf("Start: %s\n", report.FormatTimestamp(win.Start))
	fmt.Printf("End:   %s\n", report.FormatTimestamp(win.End))

	if at.Before(win.Start) {
		color.Cyan("The checked time is before the window opens.")
	} else if !at.Before(win.End) {
		color.Cyan("The checked time is after the window closes.")
	} else {
		color.Cyan("The checked time is inside the window (%s remaining).",
			report.FormatDuration(win.End.Sub(at)))
	}

	return nil
}

// resolveCheckInstant builds the timestamp to probe from the --day and
// --time flags, defaulting to the current instant.
func resolveCheckInstant(clk *clock.RealClock) (time.Time, error) {
	at := clk.Now()

	if checkDay != "" {
		days, err := window.ParseWeekdays([]string{checkDay})
		if err != nil {
			return time.Time{}, err
		}
		for at.Weekday() != days[0] {
			at = at.AddDate(0, 0, 1)
		}
	}

	if checkTime != "" {
		tod, err := time.Parse("15:04", checkTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --time %q: %w", checkTime, err)
		}
		at = time.Date(at.Year(), at.Month(), at.Day(), tod.Hour(), tod.Minute(), 0, 0, at.Location())
	}

	return at, nil
}
