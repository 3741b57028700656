package transcribe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrPollTimeout indicates the transcript did not reach a terminal vendor
// status within the configured window.
var ErrPollTimeout = errors.New("timed out waiting for transcription")

// VendorError is a terminal failure reported by the transcription service
// itself, as opposed to a transport problem reaching it.
type VendorError struct {
	Message string
}

// Error returns the vendor's failure text.
func (e *VendorError) Error() string {
	if e.Message == "" {
		return "transcription failed"
	}
	return e.Message
}

// PollConfig bounds the transcript wait loop.
type PollConfig struct {
	// InitialDelay is how long to wait before the first poll; even trivial
	// clips take a few seconds to leave the vendor's queue.
	InitialDelay time.Duration
	// Interval separates subsequent polls.
	Interval time.Duration
	// Timeout caps the total wait from the first poll.
	Timeout time.Duration
}

// DefaultPollConfig returns the standard polling cadence.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		InitialDelay: 5 * time.Second,
		Interval:     3 * time.Second,
		Timeout:      30 * time.Minute,
	}
}

// StatusFunc receives the raw vendor status string after every poll.
type StatusFunc func(status string)

// pollClient is the single-shot fetch the poller repeats.
type pollClient interface {
	PollOnce(ctx context.Context, transcriptID string) (*Transcript, error)
}

// Poller wraps the single-shot poll into a bounded wait loop.
type Poller struct {
	client pollClient
	cfg    PollConfig
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
	log    *logrus.Logger
}

// NewPoller constructs a poller; zero config fields fall back to defaults.
func NewPoller(client pollClient, cfg PollConfig, log *logrus.Logger) *Poller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	def := DefaultPollConfig()
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		client: client,
		cfg:    cfg,
		sleep:  sleepContext,
		now:    time.Now,
		log:    log,
	}
}

// NewPollerForTests constructs a poller with an injectable clock.
func NewPollerForTests(
	client pollClient,
	cfg PollConfig,
	sleep func(ctx context.Context, d time.Duration) error,
	now func() time.Time,
) *Poller {
	p := NewPoller(client, cfg, nil)
	p.sleep = sleep
	p.now = now
	return p
}

// Wait polls until the transcript completes, the vendor reports failure, the
// timeout elapses, or the context is cancelled. onStatus, when non-nil, sees
// every raw vendor status in order. Transport errors on individual polls are
// logged and retried; only the vendor's own error status and the timeout end
// the wait with a failure.
func (p *Poller) Wait(ctx context.Context, transcriptID string, onStatus StatusFunc) (*Transcript, error) {
	start := p.now()
	if err := p.sleep(ctx, p.cfg.InitialDelay); err != nil {
		return nil, err
	}

	for {
		transcript, err := p.client.PollOnce(ctx, transcriptID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			p.log.WithField("transcript_id", transcriptID).WithError(err).Warn("transcript poll failed, retrying")
		} else {
			if onStatus != nil {
				onStatus(transcript.Status)
			}
			switch transcript.Status {
			case StatusCompleted:
				return transcript, nil
			case StatusError:
				return nil, &VendorError{Message: transcript.Error}
			}
		}

		if p.now().Sub(start) >= p.cfg.Timeout {
			return nil, fmt.Errorf("%w after %s", ErrPollTimeout, p.cfg.Timeout)
		}
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return nil, err
		}
	}
}

// sleepContext sleeps for d unless the context ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
