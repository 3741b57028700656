package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"scribe/internal/config"
	"scribe/internal/convert"
	"scribe/internal/diagnostics"
	"scribe/internal/docgen"
	"scribe/internal/domain"
	"scribe/internal/janitor"
	"scribe/internal/notify"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/store"
	"scribe/internal/transcribe"
	"scribe/internal/vocab"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var mediaDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Media files",
		Pattern:     "*.mp4;*.mov;*.mkv;*.avi;*.mp3;*.wav;*.m4a;*.flac;*.aac;*.ogg;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

var documentDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Documents",
		Pattern:     "*.txt;*.md;*.docx;*.pptx",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires settings, the job queue, the pipeline, the local database, and UI
// runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Repo        *queue.Repository
	Runner      *queue.Runner
	History     *store.Store
	Client      *transcribe.Client
	Extractor   *vocab.Extractor
	Notifier    *notify.Notifier
	Janitor     *janitor.Janitor
	Diagnostics domain.DiagnosticReport

	assets  fs.FS
	checker *diagnostics.Checker
	log     *logrus.Logger
	events  *queue.EventBus

	baseCtx context.Context
	stop    context.CancelFunc

	mu         sync.Mutex
	runtimeCtx context.Context
	lastStatus map[string]domain.JobStatus
}

// New builds the application with persisted settings, the local database, and
// startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	log := logrus.StandardLogger()

	settingsStore := config.NewJSONStore(config.SettingsPath())
	settings, err := settingsStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = config.ApplyEnv(settings)

	checker := diagnostics.NewChecker()
	report := checker.Run(settings, config.DataDir())

	baseCtx, stop := context.WithCancel(context.Background())

	app := &App{
		Settings:    settings,
		Store:       settingsStore,
		Repo:        queue.NewRepository(),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		log:         log,
		events:      queue.NewEventBus(1000),
		baseCtx:     baseCtx,
		stop:        stop,
		lastStatus:  map[string]domain.JobStatus{},
	}

	history, err := store.Open(config.DatabasePath(), config.AudioDir(), log)
	if err != nil {
		log.WithError(err).Warn("local database unavailable; history and vocabularies are disabled")
	} else {
		app.History = history
	}

	app.Client = transcribe.NewClient(app.apiKey, log)
	app.Extractor = vocab.NewExtractor(app.openAIKey, log)
	app.Notifier = notify.NewNotifier(app.slackWebhookURL, log)

	executorCfg := pipeline.Config{
		Repo:      app.Repo,
		Converter: convert.NewConverter(log),
		Vendor:    app.Client,
		Waiter:    transcribe.NewPoller(app.Client, transcribe.DefaultPollConfig(), log),
		Generator: docgen.NewGenerator(),
		Observer:  app,
		OutputDir: app.outputDir,
		Log:       log,
	}
	if app.History != nil {
		executorCfg.Recorder = app.History
	}
	app.Runner = queue.NewRunner(app.Repo, pipeline.NewExecutor(executorCfg), app.preflight, log)

	jan, err := janitor.New("", 0, log)
	if err != nil {
		return nil, fmt.Errorf("configure scratch janitor: %w", err)
	}
	app.Janitor = jan

	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Scribe",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events and starts the
// scratch janitor.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()
	a.Janitor.Start(a.baseCtx)
}

// Shutdown stops background work and detaches the runtime context.
func (a *App) Shutdown(ctx context.Context) {
	a.stop()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = nil
}

// apiKey returns the current transcription credential.
func (a *App) apiKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Settings.APIKey
}

// openAIKey returns the current vocabulary extraction credential.
func (a *App) openAIKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Settings.OpenAIKey
}

// slackWebhookURL returns the current notification webhook, if any.
func (a *App) slackWebhookURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Settings.SlackWebhookURL
}

// outputDir returns the current transcript export directory.
func (a *App) outputDir() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Settings.OutputDir
}

// preflight blocks queue drains until a transcription credential exists.
func (a *App) preflight() error {
	if strings.TrimSpace(a.apiKey()) == "" {
		return transcribe.ErrMissingAPIKey
	}
	return nil
}

// EnqueueFiles adds one queued job per media file and wakes the runner. The
// jobs are returned even when the runner refuses to start (for example with
// no API key configured) so the queue renders alongside the error.
func (a *App) EnqueueFiles(paths []string, options domain.TranscriptionOptions) ([]domain.Job, error) {
	jobs := make([]domain.Job, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		jobs = append(jobs, domain.Job{
			ID:         uuid.NewString(),
			Filename:   filepath.Base(trimmed),
			SourcePath: trimmed,
			Status:     domain.JobStatusQueued,
			Options:    options,
		})
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	a.Repo.Append(jobs...)
	for _, job := range jobs {
		a.publishEvent(queue.Event{
			JobID:   job.ID,
			Type:    queue.EventTypeStatus,
			Status:  domain.JobStatusQueued,
			Message: "Queued " + job.Filename,
		})
	}

	if err := a.Runner.Start(a.baseCtx); err != nil {
		return jobs, err
	}
	return jobs, nil
}

// ListJobs returns a snapshot of the queue in insertion order.
func (a *App) ListJobs() []domain.Job {
	return a.Repo.List()
}

// RemoveJob deletes a job from the queue. A job mid-run keeps running to its
// terminal state; its later updates land nowhere.
func (a *App) RemoveJob(id string) bool {
	removed := a.Repo.Remove(id)
	if removed {
		a.mu.Lock()
		delete(a.lastStatus, id)
		a.mu.Unlock()
	}
	return removed
}

// RetryJob re-queues a finished job for another full run, optionally with new
// options, and wakes the runner.
func (a *App) RetryJob(id string, options *domain.TranscriptionOptions) error {
	if err := a.Repo.Requeue(id, options); err != nil {
		return err
	}
	return a.Runner.Start(a.baseCtx)
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []queue.Event {
	return a.events.Since(sinceSeq)
}

// JobUpdated publishes a job snapshot to the event stream and fires the
// completion notifier on terminal transitions.
func (a *App) JobUpdated(job domain.Job) {
	a.mu.Lock()
	last, seen := a.lastStatus[job.ID]
	a.lastStatus[job.ID] = job.Status
	a.mu.Unlock()

	event := queue.Event{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
	}
	switch {
	case job.Status == domain.JobStatusComplete:
		event.Type = queue.EventTypeResult
		event.Message = "Transcript document written"
		event.OutputPath = job.OutputPath
		event.HistoryID = job.HistoryID
	case job.Status == domain.JobStatusError:
		event.Type = queue.EventTypeError
		event.Message = job.Error
	case !seen || last != job.Status:
		event.Type = queue.EventTypeStatus
	default:
		event.Type = queue.EventTypeProgress
	}
	a.publishEvent(event)

	switch job.Status {
	case domain.JobStatusComplete:
		a.Notifier.JobCompleted(a.baseCtx, job)
	case domain.JobStatusError:
		a.Notifier.JobFailed(a.baseCtx, job)
	}
}

// VendorStatus forwards raw vendor poll states to the event stream.
func (a *App) VendorStatus(jobID, status string) {
	a.publishEvent(queue.Event{
		JobID:        jobID,
		Type:         queue.EventTypePoll,
		VendorStatus: status,
	})
}

// Warning forwards soft failures, like a history save that did not stick, to
// the event stream.
func (a *App) Warning(jobID, message string) {
	a.publishEvent(queue.Event{
		JobID:   jobID,
		Type:    queue.EventTypeWarning,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event queue.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// GetSettings loads persisted settings with environment overrides applied.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = config.ApplyEnv(settings)

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
// Environment overrides keep winning over the saved file for the running
// process.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	effective := config.ApplyEnv(normalized)
	a.mu.Lock()
	a.Settings = effective
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(effective, config.DataDir())
	}
	a.mu.Unlock()

	return effective, nil
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.GetSettings()
	if err != nil {
		return domain.DiagnosticReport{}, err
	}

	a.mu.Lock()
	a.Diagnostics = a.checker.Run(settings, config.DataDir())
	report := a.Diagnostics
	a.mu.Unlock()

	return report, nil
}

// database returns the local store or an error when the database could not be
// opened at startup.
func (a *App) database() (*store.Store, error) {
	if a.History == nil {
		return nil, fmt.Errorf("local database is unavailable")
	}
	return a.History, nil
}

// ListHistory returns archived runs, newest first.
func (a *App) ListHistory() ([]store.HistorySummary, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.ListHistory(a.baseCtx)
}

// GetHistory returns one archived run with its full transcript.
func (a *App) GetHistory(id string) (*store.HistoryRecord, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.GetHistory(a.baseCtx, id)
}

// DeleteHistory removes an archived run and its stored audio copy.
func (a *App) DeleteHistory(id string) error {
	db, err := a.database()
	if err != nil {
		return err
	}
	return db.DeleteHistory(a.baseCtx, id)
}

// ExportTranscriptText renders an archived transcript as plain text.
func (a *App) ExportTranscriptText(historyID string) (string, error) {
	db, err := a.database()
	if err != nil {
		return "", err
	}
	transcript, err := db.Transcript(a.baseCtx, historyID)
	if err != nil {
		return "", err
	}
	return docgen.PlainText(transcript, nil), nil
}

// IdentifySpeakers asks the vendor's LLM endpoint to map diarized speaker
// labels to names for an archived run.
func (a *App) IdentifySpeakers(historyID string) (map[string]string, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	transcript, err := db.Transcript(a.baseCtx, historyID)
	if err != nil {
		return nil, err
	}
	labels := transcript.SpeakerLabels()
	if len(labels) == 0 {
		return map[string]string{}, nil
	}
	return a.Client.IdentifySpeakers(a.baseCtx, docgen.PlainText(transcript, nil), labels)
}

// GetVocabularies returns all vocabulary categories and entries.
func (a *App) GetVocabularies() (*store.VocabularyData, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.LoadVocabularies(a.baseCtx)
}

// CreateVocabulary adds a user vocabulary to a category.
func (a *App) CreateVocabulary(name, categoryID string, terms []string) (*store.Vocabulary, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.CreateVocabulary(a.baseCtx, name, categoryID, terms)
}

// UpdateVocabulary edits a user vocabulary.
func (a *App) UpdateVocabulary(id string, update store.VocabularyUpdate) (*store.Vocabulary, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.UpdateVocabulary(a.baseCtx, id, update)
}

// DeleteVocabulary removes a user vocabulary.
func (a *App) DeleteVocabulary(id string) error {
	db, err := a.database()
	if err != nil {
		return err
	}
	return db.DeleteVocabulary(a.baseCtx, id)
}

// DuplicateVocabulary clones any vocabulary, system ones included, into the
// user category.
func (a *App) DuplicateVocabulary(id, newName string) (*store.Vocabulary, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.DuplicateVocabulary(a.baseCtx, id, newName)
}

// CreateVocabularyCategory adds a user category.
func (a *App) CreateVocabularyCategory(name string) (*store.VocabularyCategory, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.CreateVocabularyCategory(a.baseCtx, name)
}

// ExportVocabularies serializes user vocabularies and categories to JSON.
func (a *App) ExportVocabularies() (string, error) {
	db, err := a.database()
	if err != nil {
		return "", err
	}
	return db.ExportVocabularies(a.baseCtx)
}

// ImportVocabularies merges a previously exported payload and returns how
// many vocabularies were added.
func (a *App) ImportVocabularies(payload string) (int, error) {
	db, err := a.database()
	if err != nil {
		return 0, err
	}
	return db.ImportVocabularies(a.baseCtx, payload)
}

// SavePreset creates or updates a boost-word preset.
func (a *App) SavePreset(preset store.Preset) (*store.Preset, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.SavePreset(a.baseCtx, preset)
}

// ListPresets returns boost-word presets sorted by name.
func (a *App) ListPresets() ([]store.Preset, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return db.ListPresets(a.baseCtx)
}

// DeletePreset removes a boost-word preset.
func (a *App) DeletePreset(id string) error {
	db, err := a.database()
	if err != nil {
		return err
	}
	return db.DeletePreset(a.baseCtx, id)
}

// ExtractVocabulary mines candidate boost terms from a document file via the
// OpenAI chat API.
func (a *App) ExtractVocabulary(path string) (*vocab.Extraction, error) {
	text, err := vocab.ExtractText(path)
	if err != nil {
		return nil, err
	}
	return a.Extractor.ExtractTerms(a.baseCtx, text)
}

// PickMediaFiles opens a native file dialog for media selection.
func (a *App) PickMediaFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select media files",
		Filters: mediaDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

// PickDocumentFile opens a native file dialog for vocabulary source documents.
func (a *App) PickDocumentFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select document",
		Filters: documentDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickOutputDirectory opens a native directory picker for transcript exports.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in the
// platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		target = a.outputDir()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// runtimeContext returns the current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.APIKey = strings.TrimSpace(settings.APIKey)
	settings.OpenAIKey = strings.TrimSpace(settings.OpenAIKey)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.SlackWebhookURL = strings.TrimSpace(settings.SlackWebhookURL)
	return settings
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
