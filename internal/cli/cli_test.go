package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dwesselviax/EstateLogger/constants"
	"github.com/dwesselviax/EstateLogger/internal/capture"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/extraction"
)

type fakeSession struct {
	mu        sync.Mutex
	submitted []string
	stopped   bool
}

func (f *fakeSession) SubmitManual(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return capture.ErrNotRunning
	}
	f.submitted = append(f.submitted, text)
	return nil
}

func (f *fakeSession) Restart(context.Context) error { return nil }

func (f *fakeSession) Stop(context.Context) (*entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return &entity.Session{ID: uuid.New(), ItemCount: len(f.submitted)}, nil
}

func newTestConsole(ctrl sessionControl) consoleModel {
	return newConsoleModel(ctrl, &entity.Estate{ID: uuid.New(), Name: "Hale Estate"}, make(chan tea.Msg))
}

func update(t *testing.T, m consoleModel, msg tea.Msg) (consoleModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	cm, ok := next.(consoleModel)
	require.True(t, ok)
	return cm, cmd
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewLogger(&buf, "warn")
	l.Info("capture.controller.started")
	require.Empty(t, buf.String())
	l.Warn("capture.audio_unavailable", "error", "no device")
	require.Contains(t, buf.String(), "capture.audio_unavailable")
	require.Contains(t, buf.String(), "error=\"no device\"")
}

func TestConsoleShowsTranscriptAndItems(t *testing.T) {
	t.Parallel()
	m := newTestConsole(&fakeSession{})

	m, _ = update(t, m, stateMsg{state: capture.StateListening})
	m, _ = update(t, m, transcriptMsg{text: "a walnut", isFinal: false})
	require.Equal(t, "a walnut", m.interim)
	m, _ = update(t, m, transcriptMsg{text: "a walnut sideboard", isFinal: true})
	require.Empty(t, m.interim)
	require.Equal(t, []string{"a walnut sideboard"}, m.finals)

	m, _ = update(t, m, extractingMsg{text: "a walnut sideboard"})
	require.Equal(t, 1, m.extracting)
	require.Contains(t, m.View(), "extracting")

	m, _ = update(t, m, itemsMsg{items: []*entity.Item{{Name: "Walnut Sideboard", Category: constants.Furniture}}})
	require.Zero(t, m.extracting)
	view := m.View()
	require.Contains(t, view, "Hale Estate")
	require.Contains(t, view, "listening")
	require.Contains(t, view, "1 items")
	require.Contains(t, view, "Walnut Sideboard")
}

func TestConsoleReportsFailuresWithoutLeakingDetail(t *testing.T) {
	t.Parallel()
	m := newTestConsole(&fakeSession{})

	m, _ = update(t, m, extractingMsg{})
	m, _ = update(t, m, errorMsg{err: common.UpstreamError("openai returned 502", errors.New("bad gateway"))})
	require.Zero(t, m.extracting)
	require.Contains(t, m.View(), "AI service failed")
	require.NotContains(t, m.View(), "bad gateway")

	m, _ = update(t, m, unsupportedMsg{err: common.ErrUnsupported})
	require.Contains(t, m.View(), "speech unavailable")
	m, _ = update(t, m, stateMsg{state: capture.StateListening})
	require.NotContains(t, m.View(), "speech unavailable")
}

func TestConsoleSubmitsTypedLinesAndStops(t *testing.T) {
	t.Parallel()
	ctrl := &fakeSession{}
	m := newTestConsole(ctrl)

	m.input.SetValue("  pair of brass candlesticks  ")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Empty(t, m.input.Value())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []string{"pair of brass candlesticks"}, ctrl.submitted)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.True(t, m.stopping)
	require.NotNil(t, cmd)
	stopped, ok := cmd().(stoppedMsg)
	require.True(t, ok)
	require.NoError(t, stopped.err)

	m, cmd = update(t, m, stopped)
	require.NotNil(t, m.summary)
	require.Equal(t, 1, m.summary.ItemCount)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEventBridgeDropsTranscriptsWhenFull(t *testing.T) {
	t.Parallel()
	b := &eventBridge{ch: make(chan tea.Msg, 1)}
	ev := b.Events()
	ev.OnTranscript("first", false)
	ev.OnTranscript("second", false)
	require.Len(t, b.ch, 1)
	require.Equal(t, transcriptMsg{text: "first"}, <-b.ch)
}

func TestPrintEstates(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	printEstates(&buf, nil)
	require.Contains(t, buf.String(), "No estates yet")

	buf.Reset()
	printEstates(&buf, []*entity.EstateSummary{{
		Estate:         entity.Estate{ID: uuid.New(), Name: "The Very Long Name Of A Lakeside Estate", Status: constants.EstateLogging},
		ItemCount:      4,
		ConfirmedCount: 2,
	}})
	require.Contains(t, buf.String(), "logging")
	require.Contains(t, buf.String(), "The Very Long Name Of A Lak…")
	require.Contains(t, buf.String(), "4 items")
}

func TestParseID(t *testing.T) {
	t.Parallel()
	_, err := parseID("estate-1")
	require.ErrorIs(t, err, common.ErrInvalidInput)
	id := uuid.New()
	got, err := parseID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, got)
}

type memSessions struct{}

func (memSessions) StartSession(_ context.Context, estateID uuid.UUID) (*entity.Session, error) {
	return &entity.Session{ID: uuid.New(), EstateID: estateID}, nil
}

func (memSessions) CompleteSession(_ context.Context, id uuid.UUID, transcript string) (*entity.Session, error) {
	return &entity.Session{ID: id, FullTranscript: transcript}, nil
}

type recordingExtractor struct {
	mu  sync.Mutex
	got []string
}

func (r *recordingExtractor) Extract(_ context.Context, req extraction.Request) ([]*entity.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, req.Transcript)
	return nil, nil
}

func (r *recordingExtractor) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func startManualController(t *testing.T, ext *recordingExtractor) *capture.Controller {
	t.Helper()
	ctrl := capture.NewController(memSessions{}, ext, nil, nil, capture.ControllerConfig{QuietPeriod: time.Hour}, capture.Events{}, nil)
	_, err := ctrl.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	return ctrl
}

func TestWaitForLinesLeavesStdinAudioUnread(t *testing.T) {
	t.Parallel()
	for _, source := range []string{"stdin", "-", " STDIN "} {
		ext := &recordingExtractor{}
		ctrl := startManualController(t, ext)
		bridge := newEventBridge()
		bridge.send(unsupportedMsg{err: common.ErrUnsupported})

		const pcm = "\x01\x02\x7fRIFF-pcm-bytes\n\x00\x10more-pcm\n"
		in := strings.NewReader(pcm)
		waitForLines(context.Background(), ctrl, bridge, in, source)

		sess, err := ctrl.Stop(context.Background())
		require.NoError(t, err, source)
		require.Empty(t, sess.FullTranscript, source)
		require.Empty(t, ext.snapshot(), source)
		require.Equal(t, len(pcm), in.Len(), source)
	}
}

func TestWaitForLinesSubmitsTypedEntries(t *testing.T) {
	t.Parallel()
	ext := &recordingExtractor{}
	ctrl := startManualController(t, ext)

	waitForLines(context.Background(), ctrl, newEventBridge(), strings.NewReader("a brass lamp\n\n  a wool rug \n"), "pulse")

	sess, err := ctrl.Stop(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a brass lamp", "a wool rug"}, ext.snapshot())
	require.Contains(t, sess.FullTranscript, "a brass lamp")
}
