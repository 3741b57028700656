package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"scribe/internal/domain"
)

func TestRunFlagsOptionsMapping(t *testing.T) {
	flags := runFlags{
		speakers:   3,
		boostWords: []string{"kubernetes", "sre"},
		summary:    true,
		topics:     true,
		sentiment:  true,
		keyPhrases: true,
		convType:   " interview ",
	}

	opts := flags.options()
	if opts.MaxSpeakers == nil || *opts.MaxSpeakers != 3 {
		t.Errorf("max speakers = %v", opts.MaxSpeakers)
	}
	if len(opts.BoostWords) != 2 {
		t.Errorf("boost words = %v", opts.BoostWords)
	}
	if !opts.IncludeSummary || !opts.DetectTopics || !opts.AnalyzeSentiment || !opts.ExtractKeyPhrases {
		t.Errorf("boolean options not carried: %+v", opts)
	}
	if opts.ConversationType != "interview" {
		t.Errorf("conversation type = %q", opts.ConversationType)
	}
}

func TestRunFlagsZeroSpeakersMeansVendorEstimate(t *testing.T) {
	opts := runFlags{}.options()
	if opts.MaxSpeakers != nil {
		t.Errorf("expected nil max speakers, got %v", *opts.MaxSpeakers)
	}
}

func TestCollectJobsFromArgs(t *testing.T) {
	jobs, outputDir, err := collectJobs([]string{"/media/board meeting.mp4", "  ", "standup.mov"}, runFlags{summary: true})
	if err != nil {
		t.Fatalf("collect jobs: %v", err)
	}
	if outputDir != "" {
		t.Errorf("args carry no output dir, got %q", outputDir)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Filename != "board meeting.mp4" || jobs[1].Filename != "standup.mov" {
		t.Errorf("filenames = %q, %q", jobs[0].Filename, jobs[1].Filename)
	}
	if jobs[0].ID == "" || jobs[0].ID == jobs[1].ID {
		t.Error("jobs need distinct non-empty ids")
	}
	for _, job := range jobs {
		if job.Status != domain.JobStatusQueued {
			t.Errorf("job %s status = %s", job.Filename, job.Status)
		}
		if !job.Options.IncludeSummary {
			t.Errorf("job %s should carry the flag options", job.Filename)
		}
	}
}

func TestCollectJobsFromManifestResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "batch.yaml")
	manifest := "output_dir: /srv/minutes\nfiles:\n  - path: recordings/standup.mp4\n  - path: /data/all-hands.mov\n"
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	jobs, outputDir, err := collectJobs(nil, runFlags{manifestPath: manifestPath})
	if err != nil {
		t.Fatalf("collect jobs: %v", err)
	}
	if outputDir != "/srv/minutes" {
		t.Errorf("output dir = %q", outputDir)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if want := filepath.Join(dir, "recordings", "standup.mp4"); jobs[0].SourcePath != want {
		t.Errorf("relative path resolved to %q, want %q", jobs[0].SourcePath, want)
	}
	if jobs[1].SourcePath != "/data/all-hands.mov" {
		t.Errorf("absolute path changed to %q", jobs[1].SourcePath)
	}
}

func TestPrintRunSummaryFailsWhenAnyJobErrored(t *testing.T) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := printRunSummary(cmd, []domain.Job{
		{Filename: "a.mp4", Status: domain.JobStatusComplete, OutputPath: "/out/a.md"},
		{Filename: "b.mp4", Status: domain.JobStatusError, Error: "audio conversion failed"},
	})
	if err == nil {
		t.Fatal("expected a failure error")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "/out/a.md") {
		t.Errorf("summary missing document path: %s", out)
	}
	if !strings.Contains(out, "audio conversion failed") {
		t.Errorf("summary missing job error: %s", out)
	}
}

func TestPrintRunSummaryAllComplete(t *testing.T) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	err := printRunSummary(cmd, []domain.Job{
		{Filename: "a.mp4", Status: domain.JobStatusComplete, OutputPath: "/out/a.md"},
	})
	if err != nil {
		t.Fatalf("summary returned error: %v", err)
	}
}
