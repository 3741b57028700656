package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/docgen"
	"scribe/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded transcription runs",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := openHistoryStore()
			if err != nil {
				return err
			}

			summaries, err := history.ListHistory(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No history yet.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILE\tCREATED\tSPEAKERS\tWORDS\tDOCUMENT")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					s.ID, truncate(s.Filename, 40), s.CreatedAt.Local().Format("2006-01-02 15:04"),
					s.SpeakerCount, s.WordCount, s.DocumentPath)
			}
			w.Flush()
			return nil
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	var showText bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run",
		Long:  "Displays the stored details of one run. With --text the full transcript text is printed as well.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0], showText)
		},
	}

	cmd.Flags().BoolVar(&showText, "text", false, "print the full transcript text")
	return cmd
}

func runHistoryShow(cmd *cobra.Command, id string, showText bool) error {
	history, err := openHistoryStore()
	if err != nil {
		return err
	}

	record, err := history.GetHistory(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("history entry %s not found", id)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", record.ID)
	fmt.Fprintf(out, "File:      %s\n", record.Filename)
	fmt.Fprintf(out, "Created:   %s\n", record.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Speakers:  %d\n", record.SpeakerCount)
	fmt.Fprintf(out, "Words:     %d\n", record.WordCount)
	fmt.Fprintf(out, "Duration:  %s\n", (time.Duration(record.DurationSeconds) * time.Second).String())
	fmt.Fprintf(out, "Document:  %s\n", record.DocumentPath)
	if record.AudioPath != "" {
		fmt.Fprintf(out, "Audio:     %s\n", record.AudioPath)
	}
	if record.Preview != "" {
		fmt.Fprintf(out, "\nPreview:\n%s\n", record.Preview)
	}

	if showText {
		transcript, err := history.Transcript(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nTranscript:\n%s\n", docgen.PlainText(transcript, nil))
	}
	return nil
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded run and its stored audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := openHistoryStore()
			if err != nil {
				return err
			}

			if _, err := history.GetHistory(cmd.Context(), args[0]); errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("history entry %s not found", args[0])
			} else if err != nil {
				return err
			}

			if err := history.DeleteHistory(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted history entry %s\n", args[0])
			return nil
		},
	}
}

// openHistoryStore opens the local database with a quiet logger.
func openHistoryStore() (*store.Store, error) {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	history, err := store.Open(config.DatabasePath(), config.AudioDir(), log)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return history, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
