package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/diagnostics"
	"scribe/internal/domain"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check transcription prerequisites",
		Long: "Runs the startup diagnostics: ffmpeg on PATH, API key configured, " +
			"output directory writable, data directory writable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	report := diagnostics.NewChecker().Run(settings, config.DataDir())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Scribe Doctor")
	fmt.Fprintln(out, "=============")

	passed, failed := 0, 0
	for _, item := range report.Items {
		status := "PASS"
		detail := item.Message
		if item.Status == domain.DiagnosticStatusFail {
			status = "FAIL"
			failed++
			if item.Hint != "" {
				detail += " " + item.Hint
			}
		} else {
			passed++
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", status, item.Name, detail)
	}

	fmt.Fprintf(out, "\n%d passed, %d failed\n", passed, failed)

	if report.HasFailures {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}
