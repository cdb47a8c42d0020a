package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/extraction"
)

type Extractor interface {
	Extract(ctx context.Context, req extraction.Request) ([]*entity.Item, error)
}

type SessionStore interface {
	StartSession(ctx context.Context, estateID uuid.UUID) (*entity.Session, error)
	CompleteSession(ctx context.Context, sessionID uuid.UUID, transcript string) (*entity.Session, error)
}

// Events are the controller's notifications to a UI. Nil fields are skipped.
// They are called from background goroutines.
type Events struct {
	OnTranscript  func(text string, isFinal bool)
	OnExtracting  func(text string)
	OnItems       func(items []*entity.Item)
	OnError       func(err error)
	OnUnsupported func(err error)
	OnState       func(State)
}

type ControllerConfig struct {
	QuietPeriod  time.Duration
	RestartDelay time.Duration
}

func ControllerConfigFrom(c *common.Config) ControllerConfig {
	return ControllerConfig{QuietPeriod: c.Capture.QuietPeriod, RestartDelay: c.Speech.RestartDelay}
}

var (
	ErrNotRunning = errors.New("no capture session is running")
	ErrStopping   = errors.New("capture session is already stopping")
)

// Controller runs one capture session at a time: adapter to accumulator to
// extraction, bracketed by the session row.
type Controller struct {
	sessions  SessionStore
	extractor Extractor
	rec       Recognizer
	audio     AudioSource
	cfg       ControllerConfig
	events    Events
	logger    *slog.Logger

	mu       sync.Mutex
	session  *entity.Session
	adapter  *Adapter
	acc      *Accumulator
	stopping bool
}

// NewController builds a controller. A nil recognizer means manual entry only.
func NewController(sessions SessionStore, extractor Extractor, rec Recognizer, audio AudioSource, cfg ControllerConfig, events Events, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		sessions:  sessions,
		extractor: extractor,
		rec:       rec,
		audio:     audio,
		cfg:       cfg,
		events:    events,
		logger:    logger,
	}
}

// Start opens a session for the estate and begins listening.
func (c *Controller) Start(ctx context.Context, estateID uuid.UUID) (*entity.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return nil, errors.New("a capture session is already running")
	}

	sess, err := c.sessions.StartSession(ctx, estateID)
	if err != nil {
		return nil, err
	}
	logger := c.logger.With("session_id", sess.ID, "estate_id", estateID)
	runCtx := context.WithoutCancel(ctx)

	c.session = sess
	c.acc = NewAccumulator(runCtx, c.cfg.QuietPeriod, func(ctx context.Context, text string) {
		c.extract(ctx, sess, text)
	})

	if c.rec == nil {
		logger.Info("capture.controller.manual_only")
		c.unsupported(common.ErrUnsupported)
		return sess, nil
	}
	acc := c.acc
	c.adapter = NewAdapter(c.rec, c.audio, AdapterConfig{
		RestartDelay: c.cfg.RestartDelay,
		OnTranscript: func(text string, isFinal bool) {
			acc.HandleTranscript(text, isFinal)
			if c.events.OnTranscript != nil {
				c.events.OnTranscript(text, isFinal)
			}
		},
		OnUnsupported: c.unsupported,
		OnState:       c.events.OnState,
	}, logger)
	if err := c.adapter.Start(runCtx); err != nil {
		c.unsupported(err)
	}
	logger.Info("capture.controller.started")
	return sess, nil
}

// SubmitManual extracts typed text immediately.
func (c *Controller) SubmitManual(ctx context.Context, text string) error {
	c.mu.Lock()
	acc := c.acc
	c.mu.Unlock()
	if acc == nil {
		return ErrNotRunning
	}
	acc.SubmitManual(context.WithoutCancel(ctx), text)
	return nil
}

// Restart restarts speech recognition, for example after a device fix.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	adapter := c.adapter
	c.mu.Unlock()
	if adapter == nil {
		return ErrNotRunning
	}
	return adapter.Restart(ctx)
}

// Session returns the running session, or nil.
func (c *Controller) Session() *entity.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Transcript returns the running transcript and the current interim text.
func (c *Controller) Transcript() (final, interim string) {
	c.mu.Lock()
	acc := c.acc
	c.mu.Unlock()
	if acc == nil {
		return "", ""
	}
	return acc.Transcript(), acc.Interim()
}

// Stop ends the session: the adapter stops, pending speech is extracted, and
// the session is completed with the full transcript and its item count. If
// completing the session row fails, the session stays open and Stop can be
// called again.
func (c *Controller) Stop(ctx context.Context) (*entity.Session, error) {
	c.mu.Lock()
	sess, adapter, acc := c.session, c.adapter, c.acc
	if sess == nil {
		c.mu.Unlock()
		return nil, ErrNotRunning
	}
	if c.stopping {
		c.mu.Unlock()
		return nil, ErrStopping
	}
	c.stopping = true
	c.adapter = nil
	c.mu.Unlock()

	if adapter != nil {
		adapter.Stop()
	}
	transcript := acc.Close(ctx)
	done, err := c.sessions.CompleteSession(ctx, sess.ID, transcript)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopping = false
	if err != nil {
		c.logger.Error("capture.controller.complete_failed", "session_id", sess.ID, "error", err)
		return nil, err
	}
	c.session, c.acc = nil, nil
	c.logger.Info("capture.controller.stopped", "session_id", sess.ID, "item_count", done.ItemCount)
	return done, nil
}

func (c *Controller) extract(ctx context.Context, sess *entity.Session, text string) {
	if c.events.OnExtracting != nil {
		c.events.OnExtracting(text)
	}
	items, err := c.extractor.Extract(ctx, extraction.Request{
		Transcript: text,
		EstateID:   sess.EstateID,
		SessionID:  &sess.ID,
	})
	if err != nil {
		c.logger.Error("capture.controller.extract_failed", "session_id", sess.ID, "error", err)
		if c.events.OnError != nil {
			c.events.OnError(err)
		}
		return
	}
	if c.events.OnItems != nil {
		c.events.OnItems(items)
	}
}

func (c *Controller) unsupported(err error) {
	if c.events.OnUnsupported != nil {
		c.events.OnUnsupported(err)
	}
}
