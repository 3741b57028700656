package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/convert"
	"scribe/internal/docgen"
	"scribe/internal/domain"
	"scribe/internal/notify"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/store"
	"scribe/internal/transcribe"
)

// runFlags holds the transcription options shared by every file in a batch
// started from the command line.
type runFlags struct {
	manifestPath string
	outputDir    string
	speakers     int
	boostWords   []string
	summary      bool
	topics       bool
	sentiment    bool
	keyPhrases   bool
	convType     string
	pollInterval time.Duration
	pollTimeout  time.Duration
	verbose      bool
}

// options maps the flag values onto per-job transcription options.
func (f runFlags) options() domain.TranscriptionOptions {
	opts := domain.TranscriptionOptions{
		BoostWords:        append([]string(nil), f.boostWords...),
		IncludeSummary:    f.summary,
		DetectTopics:      f.topics,
		AnalyzeSentiment:  f.sentiment,
		ExtractKeyPhrases: f.keyPhrases,
		ConversationType:  strings.TrimSpace(f.convType),
	}
	if f.speakers > 0 {
		opts.MaxSpeakers = &f.speakers
	}
	return opts
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Transcribe media files and write minutes documents",
		Long: "Converts each media file to audio, transcribes it through the hosted " +
			"speech-to-text service, and writes a Markdown minutes document. Files come " +
			"from the arguments or from a YAML manifest, never both.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.manifestPath, "manifest", "m", "", "YAML manifest describing the batch")
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "directory for generated documents (default from settings)")
	cmd.Flags().IntVar(&flags.speakers, "speakers", 0, "expected speaker count (0 lets the vendor estimate)")
	cmd.Flags().StringSliceVar(&flags.boostWords, "boost", nil, "vocabulary terms to boost (repeatable)")
	cmd.Flags().BoolVar(&flags.summary, "summary", false, "request a transcript summary")
	cmd.Flags().BoolVar(&flags.topics, "topics", false, "request topic detection")
	cmd.Flags().BoolVar(&flags.sentiment, "sentiment", false, "request sentiment analysis")
	cmd.Flags().BoolVar(&flags.keyPhrases, "key-phrases", false, "request key phrase highlights")
	cmd.Flags().StringVar(&flags.convType, "type", "", "conversation type for speaker roles (interview, podcast, meeting, panel, customer-call, support)")
	cmd.Flags().DurationVar(&flags.pollInterval, "poll-interval", 0, "time between transcript polls (default 3s)")
	cmd.Flags().DurationVar(&flags.pollTimeout, "poll-timeout", 0, "maximum time to wait for a transcript (default 30m)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "log poll and progress detail")
	return cmd
}

func runRun(cmd *cobra.Command, args []string, flags runFlags) error {
	if flags.manifestPath != "" && len(args) > 0 {
		return errors.New("pass either file arguments or --manifest, not both")
	}
	if flags.manifestPath == "" && len(args) == 0 {
		return errors.New("no input files; pass media paths or --manifest")
	}
	if !knownConversationType(flags.convType) {
		return fmt.Errorf("unknown conversation type %q; valid types: interview, podcast, meeting, panel, customer-call, support", flags.convType)
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	if flags.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	jobs, manifestOutputDir, err := collectJobs(args, flags)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if _, err := os.Stat(job.SourcePath); err != nil {
			return fmt.Errorf("input file %s: %w", job.SourcePath, err)
		}
	}

	outputDir := firstNonEmpty(flags.outputDir, manifestOutputDir, settings.OutputDir)

	pollCfg := transcribe.DefaultPollConfig()
	if flags.pollInterval > 0 {
		pollCfg.Interval = flags.pollInterval
	}
	if flags.pollTimeout > 0 {
		pollCfg.Timeout = flags.pollTimeout
	}

	repo := queue.NewRepository()
	client := transcribe.NewClient(func() string { return settings.APIKey }, log)
	notifier := notify.NewNotifier(func() string { return settings.SlackWebhookURL }, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	observer := &cliObserver{log: log, notifier: notifier, ctx: ctx, last: map[string]domain.JobStatus{}}

	executorCfg := pipeline.Config{
		Repo:      repo,
		Converter: convert.NewConverter(log),
		Vendor:    client,
		Waiter:    transcribe.NewPoller(client, pollCfg, log),
		Generator: docgen.NewGenerator(),
		Observer:  observer,
		OutputDir: func() string { return outputDir },
		Log:       log,
	}
	if history, err := store.Open(config.DatabasePath(), config.AudioDir(), log); err != nil {
		log.WithError(err).Warn("history database unavailable; runs will not be recorded")
	} else {
		executorCfg.Recorder = history
	}

	runner := queue.NewRunner(repo, pipeline.NewExecutor(executorCfg), func() error {
		if strings.TrimSpace(settings.APIKey) == "" {
			return transcribe.ErrMissingAPIKey
		}
		return nil
	}, log)

	repo.Append(jobs...)
	if err := runner.Drain(ctx); err != nil {
		if errors.Is(err, transcribe.ErrMissingAPIKey) {
			return fmt.Errorf("%w; set ASSEMBLYAI_API_KEY or configure the key in the app settings", err)
		}
		return err
	}

	return printRunSummary(cmd, repo.List())
}

// collectJobs builds the job list from either the argument paths or the
// manifest. Manifest-relative paths resolve against the manifest's directory.
func collectJobs(args []string, flags runFlags) ([]domain.Job, string, error) {
	if flags.manifestPath == "" {
		opts := flags.options()
		jobs := make([]domain.Job, 0, len(args))
		for _, path := range args {
			if strings.TrimSpace(path) == "" {
				continue
			}
			jobs = append(jobs, newJob(path, opts))
		}
		return jobs, "", nil
	}

	manifest, err := loadManifest(flags.manifestPath)
	if err != nil {
		return nil, "", err
	}
	base := filepath.Dir(flags.manifestPath)
	jobs := make([]domain.Job, 0, len(manifest.Files))
	for _, entry := range manifest.Files {
		path := entry.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		jobs = append(jobs, newJob(path, manifest.Options(entry)))
	}
	return jobs, manifest.OutputDir, nil
}

func newJob(path string, opts domain.TranscriptionOptions) domain.Job {
	return domain.Job{
		ID:         uuid.NewString(),
		Filename:   filepath.Base(path),
		SourcePath: path,
		Status:     domain.JobStatusQueued,
		Options:    opts,
	}
}

// printRunSummary renders the batch outcome table and fails the command when
// any job ended in error.
func printRunSummary(cmd *cobra.Command, jobs []domain.Job) error {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATUS\tRESULT")
	failed := 0
	for _, job := range jobs {
		result := job.OutputPath
		if job.Status == domain.JobStatusError {
			result = job.Error
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", job.Filename, job.Status, result)
	}
	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d job(s) failed", failed, len(jobs))
	}
	return nil
}

// loadSettings reads the JSON settings file and applies environment
// overrides. A .env file in the working directory or the user's home is
// loaded first so headless runs can carry credentials without exporting them.
func loadSettings() (domain.Settings, error) {
	for _, path := range envFileCandidates() {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}
	settings, err := config.NewJSONStore(config.SettingsPath()).Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return config.ApplyEnv(settings), nil
}

func envFileCandidates() []string {
	candidates := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".scribe.env"))
	}
	return candidates
}

func knownConversationType(conversationType string) bool {
	return strings.TrimSpace(conversationType) == "" || transcribe.RolesFor(conversationType) != nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// cliObserver prints pipeline notifications as log lines and forwards
// terminal transitions to the notifier. Drain runs every job on the calling
// goroutine, so no locking is needed.
type cliObserver struct {
	log      *logrus.Logger
	notifier *notify.Notifier
	ctx      context.Context
	last     map[string]domain.JobStatus
}

func (o *cliObserver) JobUpdated(job domain.Job) {
	prev, seen := o.last[job.ID]
	o.last[job.ID] = job.Status

	switch {
	case job.Status == domain.JobStatusComplete:
		o.log.WithFields(logrus.Fields{"file": job.Filename, "document": job.OutputPath}).Info("transcription complete")
		o.notifier.JobCompleted(o.ctx, job)
	case job.Status == domain.JobStatusError:
		o.log.WithFields(logrus.Fields{"file": job.Filename, "error": job.Error}).Error("transcription failed")
		o.notifier.JobFailed(o.ctx, job)
	case !seen || prev != job.Status:
		o.log.WithFields(logrus.Fields{"file": job.Filename, "status": job.Status, "progress": job.Progress}).Info("job status")
	default:
		o.log.WithFields(logrus.Fields{"file": job.Filename, "progress": job.Progress}).Debug("job progress")
	}
}

func (o *cliObserver) VendorStatus(jobID, status string) {
	o.log.WithFields(logrus.Fields{"job_id": jobID, "vendor_status": status}).Debug("transcript poll")
}

func (o *cliObserver) Warning(jobID, message string) {
	o.log.WithField("job_id", jobID).Warn(message)
}
