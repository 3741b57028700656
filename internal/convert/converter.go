package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ScratchPrefix names the temp directories conversions run in. Crash
// leftovers are matched by this prefix when stale directories are swept.
const ScratchPrefix = "scribe-"

// Result holds the artifacts produced by one conversion. The scratch
// directory contains the audio file and must be removed by the caller once
// the audio is no longer needed.
type Result struct {
	AudioPath  string
	ScratchDir string
}

// Converter shells out to ffmpeg to turn source media into compact mono AAC
// audio suitable for upload.
type Converter struct {
	ffmpegPath string
	runner     commandRunner
	mkdirTemp  func(dir, pattern string) (string, error)
	removeAll  func(path string) error
	stat       func(name string) (os.FileInfo, error)
	log        *logrus.Logger
}

// NewConverter constructs the production converter with OS dependencies.
func NewConverter(log *logrus.Logger) *Converter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Converter{
		ffmpegPath: "ffmpeg",
		runner:     &execRunner{},
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
		stat:       os.Stat,
		log:        log,
	}
}

// Convert extracts the audio track of sourcePath into a fresh scratch
// directory as 16 kHz mono AAC at 32 kbps. On failure the scratch directory
// is removed before returning.
func (c *Converter) Convert(ctx context.Context, sourcePath string) (Result, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return Result{}, fmt.Errorf("input media path is required")
	}
	if _, err := c.stat(sourcePath); err != nil {
		return Result{}, fmt.Errorf("cannot access input media %s: %w", sourcePath, err)
	}

	scratchDir, err := c.mkdirTemp("", ScratchPrefix+"*")
	if err != nil {
		return Result{}, fmt.Errorf("create scratch directory: %w", err)
	}

	audioPath := filepath.Join(scratchDir, audioFileName(sourcePath))
	args := buildFFmpegArgs(sourcePath, audioPath)
	c.log.WithField("source", sourcePath).Debugf("running %s %s", c.ffmpegPath, strings.Join(args, " "))

	cmdResult, runErr := c.runner.Run(ctx, c.ffmpegPath, args...)
	if runErr != nil {
		_ = c.removeAll(scratchDir)
		return Result{}, fmt.Errorf("ffmpeg audio conversion failed (exit %d): %w: %s",
			cmdResult.ExitCode, runErr, stderrTail(cmdResult.Stderr))
	}

	if _, err := c.stat(audioPath); err != nil {
		_ = c.removeAll(scratchDir)
		return Result{}, fmt.Errorf("ffmpeg completed but output file is missing: %w", err)
	}

	return Result{AudioPath: audioPath, ScratchDir: scratchDir}, nil
}

// buildFFmpegArgs builds CLI args for mono 16k AAC output at 32 kbps.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "aac",
		"-b:a", "32k",
		outPath,
	}
}

// audioFileName builds the converted audio filename from the input media name.
func audioFileName(inputPath string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "audio"
	}
	return name + ".m4a"
}

// stderrTail keeps the last few lines of ffmpeg output for error context.
func stderrTail(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return "no output"
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, " | ")
}

// NewConverterForTests constructs a converter with injectable dependencies.
func NewConverterForTests(
	ffmpegPath string,
	runner commandRunner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	stat func(name string) (os.FileInfo, error),
) *Converter {
	return &Converter{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		mkdirTemp:  mkdirTemp,
		removeAll:  removeAll,
		stat:       stat,
		log:        logrus.StandardLogger(),
	}
}
