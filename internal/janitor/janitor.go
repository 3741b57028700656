package janitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"scribe/internal/convert"
)

const (
	// DefaultSchedule sweeps once an hour.
	DefaultSchedule = "@every 1h"
	// DefaultRetention keeps scratch directories long enough for any live
	// conversion to finish before they become eligible for removal.
	DefaultRetention = 12 * time.Hour
)

// cronParser accepts 5-field cron expressions plus @every/@hourly descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Janitor removes conversion scratch directories that outlived their run,
// which happens when the process dies mid-pipeline. It only ever touches
// directories carrying the scratch prefix inside the system temp dir.
type Janitor struct {
	schedule  cron.Schedule
	retention time.Duration
	log       *logrus.Logger

	tempDir   func() string
	readDir   func(string) ([]os.DirEntry, error)
	removeAll func(string) error
	now       func() time.Time
}

// New creates a janitor firing on the given cron schedule. An empty schedule
// falls back to DefaultSchedule, a non-positive retention to DefaultRetention.
func New(schedule string, retention time.Duration, log *logrus.Logger) (*Janitor, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("janitor: parse schedule %q: %w", schedule, err)
	}
	return &Janitor{
		schedule:  sched,
		retention: retention,
		log:       log,
		tempDir:   os.TempDir,
		readDir:   os.ReadDir,
		removeAll: os.RemoveAll,
		now:       time.Now,
	}, nil
}

// NewForTests creates a janitor with the filesystem swapped out.
func NewForTests(retention time.Duration, tempDir func() string, readDir func(string) ([]os.DirEntry, error), removeAll func(string) error) *Janitor {
	sched, _ := cronParser.Parse(DefaultSchedule)
	return &Janitor{
		schedule:  sched,
		retention: retention,
		log:       logrus.StandardLogger(),
		tempDir:   tempDir,
		readDir:   readDir,
		removeAll: removeAll,
		now:       time.Now,
	}
}

// Start launches the sweep loop in the background. One sweep runs right away
// to clear leftovers from a previous crash; later sweeps follow the schedule
// until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	go j.run(ctx)
}

func (j *Janitor) run(ctx context.Context) {
	j.Sweep()
	for {
		next := j.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			j.Sweep()
		}
	}
}

// Sweep removes scratch directories older than the retention window and
// returns how many were removed. Directories still inside the window belong
// to conversions that may be running, so they stay.
func (j *Janitor) Sweep() int {
	root := j.tempDir()
	entries, err := j.readDir(root)
	if err != nil {
		j.log.WithError(err).Warn("could not read temp directory")
		return 0
	}

	cutoff := j.now().Add(-j.retention)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), convert.ScratchPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if err := j.removeAll(path); err != nil {
			j.log.WithError(err).WithField("path", path).Warn("could not remove stale scratch directory")
			continue
		}
		removed++
	}
	if removed > 0 {
		j.log.WithField("count", removed).Info("removed stale scratch directories")
	}
	return removed
}
