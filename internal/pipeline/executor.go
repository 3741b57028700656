package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"scribe/internal/convert"
	"scribe/internal/domain"
	"scribe/internal/queue"
	"scribe/internal/store"
	"scribe/internal/transcribe"
)

// Progress checkpoints published as a job moves through the pipeline. The
// vendor gives no finer-grained signal, so each stage maps to a fixed value.
const (
	progressConverting      = 10
	progressConverted       = 25
	progressUploading       = 30
	progressUploaded        = 45
	progressSubmitted       = 50
	progressProcessing      = 65
	progressTranscriptReady = 80
	progressGenerating      = 85
	progressComplete        = 100
)

// Converter produces upload-ready audio from source media.
type Converter interface {
	Convert(ctx context.Context, sourcePath string) (convert.Result, error)
}

// Transcriber is the vendor surface that accepts audio and starts transcript
// jobs.
type Transcriber interface {
	Upload(ctx context.Context, audioPath string) (string, error)
	Submit(ctx context.Context, audioURL string, opts domain.TranscriptionOptions) (string, error)
}

// Waiter blocks until a submitted transcript reaches a terminal vendor state.
type Waiter interface {
	Wait(ctx context.Context, transcriptID string, onStatus transcribe.StatusFunc) (*transcribe.Transcript, error)
}

// Generator renders a completed transcript into document bytes.
type Generator interface {
	Generate(transcript *transcribe.Transcript, job domain.Job) ([]byte, error)
}

// Recorder persists finished runs. Failures are soft; the job still completes.
type Recorder interface {
	SaveRun(ctx context.Context, in store.RunInput) (string, error)
}

// Observer receives job lifecycle notifications for a front end. All methods
// are called from the runner's drain goroutine.
type Observer interface {
	JobUpdated(job domain.Job)
	VendorStatus(jobID, status string)
	Warning(jobID, message string)
}

// Config collects the executor's collaborators.
type Config struct {
	Repo      *queue.Repository
	Converter Converter
	Vendor    Transcriber
	Waiter    Waiter
	Generator Generator
	Recorder  Recorder
	Observer  Observer
	OutputDir func() string
	Log       *logrus.Logger
}

// Executor drives one job through convert, upload, submit, poll, generate,
// and persist, recording every transition on the repository.
type Executor struct {
	repo      *queue.Repository
	converter Converter
	vendor    Transcriber
	waiter    Waiter
	generator Generator
	recorder  Recorder
	observer  Observer
	outputDir func() string
	log       *logrus.Logger

	removeAll func(path string) error
	mkdirAll  func(path string, perm os.FileMode) error
	writeFile func(path string, data []byte, perm os.FileMode) error
}

// NewExecutor constructs an executor with OS file dependencies.
func NewExecutor(cfg Config) *Executor {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Executor{
		repo:      cfg.Repo,
		converter: cfg.Converter,
		vendor:    cfg.Vendor,
		waiter:    cfg.Waiter,
		generator: cfg.Generator,
		recorder:  cfg.Recorder,
		observer:  cfg.Observer,
		outputDir: cfg.OutputDir,
		log:       log,
		removeAll: os.RemoveAll,
		mkdirAll:  os.MkdirAll,
		writeFile: os.WriteFile,
	}
}

// NewExecutorForTests constructs an executor with injectable file functions.
func NewExecutorForTests(
	cfg Config,
	removeAll func(path string) error,
	mkdirAll func(path string, perm os.FileMode) error,
	writeFile func(path string, data []byte, perm os.FileMode) error,
) *Executor {
	e := NewExecutor(cfg)
	e.removeAll = removeAll
	e.mkdirAll = mkdirAll
	e.writeFile = writeFile
	return e
}

// Execute runs the full pipeline for one job. Failures land on the job record
// as a terminal error status; Execute itself never returns one. The scratch
// directory created by conversion is released exactly once, on success and on
// every failure path after conversion.
func (e *Executor) Execute(ctx context.Context, job domain.Job) {
	log := e.log.WithField("job_id", job.ID)

	e.setStage(job.ID, domain.JobStatusConverting, progressConverting)
	conv, err := e.converter.Convert(ctx, job.SourcePath)
	if err != nil {
		e.fail(job.ID, &ConversionError{Source: job.SourcePath, Err: err})
		return
	}
	defer func() {
		if rmErr := e.removeAll(conv.ScratchDir); rmErr != nil {
			log.WithField("dir", conv.ScratchDir).WithError(rmErr).Warn("scratch cleanup failed")
		}
	}()
	e.setProgress(job.ID, progressConverted)

	e.setStage(job.ID, domain.JobStatusUploading, progressUploading)
	audioURL, err := e.vendor.Upload(ctx, conv.AudioPath)
	if err != nil {
		e.fail(job.ID, &UploadError{Err: err})
		return
	}
	e.setProgress(job.ID, progressUploaded)

	transcriptID, err := e.vendor.Submit(ctx, audioURL, job.Options)
	if err != nil {
		e.fail(job.ID, &SubmissionError{Err: err})
		return
	}
	log.WithField("transcript_id", transcriptID).Info("transcript submitted")
	e.repo.Patch(job.ID, queue.Patch{
		Status:       lo.ToPtr(domain.JobStatusTranscribing),
		Progress:     lo.ToPtr(progressSubmitted),
		TranscriptID: lo.ToPtr(transcriptID),
	})
	e.notifyUpdated(job.ID)

	transcript, err := e.waiter.Wait(ctx, transcriptID, func(status string) {
		e.notifyVendorStatus(job.ID, status)
		if status == transcribe.StatusProcessing {
			e.setProgress(job.ID, progressProcessing)
		}
	})
	if err != nil {
		e.fail(job.ID, classifyWaitError(err))
		return
	}
	e.setProgress(job.ID, progressTranscriptReady)

	e.setStage(job.ID, domain.JobStatusGenerating, progressGenerating)
	document, err := e.generator.Generate(transcript, job)
	if err != nil {
		e.fail(job.ID, &GenerationError{Err: err})
		return
	}

	outPath := filepath.Join(e.outputDir(), documentFileName(job.Filename))
	if err := e.mkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		e.fail(job.ID, &GenerationError{Err: err})
		return
	}
	if err := e.writeFile(outPath, document, 0o644); err != nil {
		e.fail(job.ID, &GenerationError{Err: err})
		return
	}

	historyID := ""
	if e.recorder != nil {
		id, saveErr := e.recorder.SaveRun(ctx, store.RunInput{
			Filename:     job.Filename,
			SourcePath:   job.SourcePath,
			AudioPath:    conv.AudioPath,
			DocumentPath: outPath,
			Transcript:   transcript,
		})
		if saveErr != nil {
			perr := &PersistenceError{Err: saveErr}
			log.WithError(perr).Warn("history persistence failed")
			e.notifyWarning(job.ID, perr.Error())
		} else {
			historyID = id
		}
	}

	patch := queue.Patch{
		Status:     lo.ToPtr(domain.JobStatusComplete),
		Progress:   lo.ToPtr(progressComplete),
		OutputPath: lo.ToPtr(outPath),
	}
	if historyID != "" {
		patch.HistoryID = lo.ToPtr(historyID)
	}
	e.repo.Patch(job.ID, patch)
	e.notifyUpdated(job.ID)
	log.WithField("output", outPath).Info("pipeline run complete")
}

// classifyWaitError maps poller failures onto the pipeline error taxonomy.
func classifyWaitError(err error) error {
	var vendorErr *transcribe.VendorError
	switch {
	case errors.Is(err, transcribe.ErrPollTimeout):
		return &PollTimeoutError{Err: err}
	case errors.As(err, &vendorErr):
		return &VendorTranscriptionError{Message: vendorErr.Message}
	default:
		return err
	}
}

// fail records a terminal error on the job and notifies the observer.
func (e *Executor) fail(id string, runErr error) {
	e.log.WithField("job_id", id).WithError(runErr).Error("pipeline run failed")
	e.repo.Patch(id, queue.Patch{
		Status: lo.ToPtr(domain.JobStatusError),
		Error:  lo.ToPtr(runErr.Error()),
	})
	e.notifyUpdated(id)
}

// setStage records a status transition together with its progress checkpoint.
func (e *Executor) setStage(id string, status domain.JobStatus, progress int) {
	e.repo.Patch(id, queue.Patch{Status: lo.ToPtr(status), Progress: lo.ToPtr(progress)})
	e.notifyUpdated(id)
}

// setProgress advances the progress checkpoint without a status change.
func (e *Executor) setProgress(id string, progress int) {
	e.repo.Patch(id, queue.Patch{Progress: lo.ToPtr(progress)})
	e.notifyUpdated(id)
}

// notifyUpdated pushes the job's current snapshot to the observer. A job the
// user removed mid-run has no snapshot and produces no notification.
func (e *Executor) notifyUpdated(id string) {
	if e.observer == nil {
		return
	}
	job, ok := e.repo.Get(id)
	if !ok {
		return
	}
	e.observer.JobUpdated(job)
}

// notifyVendorStatus forwards a raw vendor poll status to the observer.
func (e *Executor) notifyVendorStatus(id, status string) {
	if e.observer != nil {
		e.observer.VendorStatus(id, status)
	}
}

// notifyWarning forwards a soft failure to the observer.
func (e *Executor) notifyWarning(id, message string) {
	if e.observer != nil {
		e.observer.Warning(id, message)
	}
}

// documentFileName builds the output document name from the source media name.
func documentFileName(filename string) string {
	name := strings.TrimSpace(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if name == "" || name == "." {
		name = "transcript"
	}
	return name + ".md"
}
