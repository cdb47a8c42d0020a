// Package capture turns live speech into transcript text and feeds it to item
// extraction.
package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dwesselviax/EstateLogger/internal/common"
)

// TranscriptEvent is one recognizer result. Interim results are provisional;
// a final result is terminal for its utterance.
type TranscriptEvent struct {
	Text    string
	IsFinal bool
}

// AudioSource yields raw linear16 mono PCM.
type AudioSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Recognizer runs one recognition pass over audio, calling emit for each
// result, and returns when the stream ends or fails. Errors wrapping
// common.ErrUnsupported are permanent; anything else is retried.
type Recognizer interface {
	Recognize(ctx context.Context, audio AudioSource, emit func(TranscriptEvent)) error
}

type State string

const (
	StateIdle        State = "idle"
	StateListening   State = "listening"
	StateRestarting  State = "restarting"
	StateUnsupported State = "unsupported"
)

const DefaultRestartDelay = time.Second

// AdapterConfig wires an Adapter to its callbacks. Nil callbacks are skipped.
type AdapterConfig struct {
	RestartDelay  time.Duration
	OnTranscript  func(text string, isFinal bool)
	OnUnsupported func(err error)
	OnState       func(State)
}

// Adapter keeps a recognizer running until Stop, restarting it after
// transient failures.
type Adapter struct {
	rec    Recognizer
	audio  AudioSource
	cfg    AdapterConfig
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAdapter(rec Recognizer, audio AudioSource, cfg AdapterConfig, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	return &Adapter{rec: rec, audio: audio, cfg: cfg, logger: logger, state: StateIdle}
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start begins continuous recognition. It is a no-op while already running
// and fails with common.ErrUnsupported once the adapter gave up.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	switch a.state {
	case StateUnsupported:
		a.mu.Unlock()
		return common.ErrUnsupported
	case StateListening, StateRestarting:
		a.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.done = make(chan struct{})
	a.state = StateListening
	go a.loop(runCtx, a.done)
	a.mu.Unlock()

	a.notify(StateListening)
	a.logger.Info("capture.adapter.start")
	return nil
}

// Stop ends recognition and cancels any pending restart. Work already handed
// to the transcript callback is not affected.
func (a *Adapter) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	a.mu.Lock()
	idle := a.state != StateUnsupported
	if idle {
		a.state = StateIdle
	}
	a.mu.Unlock()
	if idle {
		a.notify(StateIdle)
	}
	a.logger.Info("capture.adapter.stop")
}

// Restart stops the adapter and starts it again, clearing an unsupported state.
func (a *Adapter) Restart(ctx context.Context) error {
	a.Stop()
	a.mu.Lock()
	if a.state == StateUnsupported {
		a.state = StateIdle
	}
	a.mu.Unlock()
	return a.Start(ctx)
}

func (a *Adapter) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	emit := func(ev TranscriptEvent) {
		if a.cfg.OnTranscript != nil && ev.Text != "" {
			a.cfg.OnTranscript(ev.Text, ev.IsFinal)
		}
	}
	for {
		err := a.rec.Recognize(ctx, a.audio, emit)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, common.ErrUnsupported) {
			a.setState(StateUnsupported)
			a.logger.Warn("capture.adapter.unsupported", "error", err)
			if a.cfg.OnUnsupported != nil {
				a.cfg.OnUnsupported(err)
			}
			return
		}

		a.setState(StateRestarting)
		a.logger.Warn("capture.adapter.restart", "error", err, "delay_ms", a.cfg.RestartDelay.Milliseconds())

		timer := time.NewTimer(a.cfg.RestartDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		a.setState(StateListening)
	}
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	changed := a.state != s
	a.state = s
	a.mu.Unlock()
	if changed {
		a.notify(s)
	}
}

func (a *Adapter) notify(s State) {
	if a.cfg.OnState != nil {
		a.cfg.OnState(s)
	}
}
