package ui

import (
	"fmt"
	"time"

	"igengage/pkg/automation"
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// Quiet suppresses all console output when set
var Quiet bool

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if Quiet {
		return
	}
	if len(args) > 0 {
		fmt.Println(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if Quiet {
		return
	}
	fmt.Println(Green(msg))
}

// PrintInfo prints a labeled value in cyan
func PrintInfo(label string, value string) {
	if Quiet {
		return
	}
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if Quiet {
		return
	}
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}

// PrintSummary renders a completed run summary
func PrintSummary(summary *automation.Summary) {
	if Quiet || summary == nil {
		return
	}
	fmt.Println()
	fmt.Println(Magenta("Run complete"))
	PrintInfo("Duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second).String())
	PrintInfo("Actions", fmt.Sprintf("%d total, %d successful", summary.Total, summary.Successful))
	PrintInfo("Success rate", fmt.Sprintf("%.1f%%", summary.SuccessRate()))
	if summary.SkippedAccounts > 0 {
		PrintWarning(fmt.Sprintf("Skipped %d unavailable account(s)", summary.SkippedAccounts))
	}
	for kind, count := range summary.PerKind {
		fmt.Printf("  %s %s: %d/%d\n", Dim("-"), kind, count.Successful, count.Total)
	}
}
