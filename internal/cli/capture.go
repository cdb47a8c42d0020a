package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dwesselviax/EstateLogger/internal/capture"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
)

var (
	noSpeech   bool
	captureLog string
)

var captureCmd = &cobra.Command{
	Use:   "capture <estate-id>",
	Short: "Run a cataloging session: speak or type items as you walk the estate",
	Long: `Start a capture session for an estate. Speech is streamed to Deepgram and
items are extracted after each pause; typed lines are extracted right away.
On a terminal this opens an interactive console. Otherwise lines read from
stdin are submitted as manual entries until EOF.`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func runCapture(cmd *cobra.Command, args []string) error {
	estateID, err := parseID(args[0])
	if err != nil {
		return err
	}
	interactive := IsTTY()
	if interactive {
		f, err := tea.LogToFile(captureLog, "")
		if err != nil {
			return fmt.Errorf("opening capture log: %w", err)
		}
		defer f.Close()
		logger = NewLogger(f, cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	est, err := a.estates.GetEstate(ctx, estateID)
	if err != nil {
		return err
	}

	var (
		rec   capture.Recognizer
		audio capture.AudioSource
	)
	if !noSpeech {
		audio, err = capture.NewAudioSource(cfg.Audio, logger)
		if err != nil {
			logger.Warn("capture.audio_unavailable", "error", err)
		} else {
			if c, ok := audio.(io.Closer); ok {
				defer c.Close()
			}
			rec = capture.NewDeepgram(capture.DeepgramConfigFrom(cfg.Speech, cfg.Audio), logger)
		}
	}

	bridge := newEventBridge()
	events := bridge.Events()
	if !interactive {
		events = lineEvents(cmd.OutOrStdout(), bridge)
	}
	ctrl := capture.NewController(a.estates, a.extraction, rec, audio, capture.ControllerConfigFrom(cfg), events, logger)
	if _, err := ctrl.Start(ctx, estateID); err != nil {
		return err
	}

	var sess *entity.Session
	if interactive {
		final, err := tea.NewProgram(newConsoleModel(ctrl, est, bridge.ch), tea.WithContext(ctx)).Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		if m, ok := final.(consoleModel); ok {
			sess = m.summary
		}
	}
	if sess == nil {
		if !interactive {
			waitForLines(ctx, ctrl, bridge, os.Stdin, cfg.Audio.Source)
		}
		// Stopping an already stopped controller reports ErrNotRunning.
		sess, err = ctrl.Stop(context.WithoutCancel(ctx))
		if err != nil && !errors.Is(err, capture.ErrNotRunning) {
			return err
		}
	}
	if sess != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d items cataloged in %s\n", SuccessStyle.Render("session complete:"), sess.ItemCount, est.Name)
	}
	return nil
}

// lineEvents prints controller activity for non-interactive sessions. The
// bridge only carries the unsupported notice used to end stdin-audio runs.
func lineEvents(w io.Writer, bridge *eventBridge) capture.Events {
	return capture.Events{
		OnTranscript: func(text string, isFinal bool) {
			if isFinal {
				fmt.Fprintln(w, StatusStyle.Render("heard:"), text)
			}
		},
		OnItems: func(items []*entity.Item) {
			for _, it := range items {
				fmt.Fprintln(w, ItemStyle.Render("+ "+it.Name), CategoryStyle.Render(string(it.Category)))
			}
		},
		OnError: func(err error) {
			fmt.Fprintln(w, ErrorStyle.Render(common.PublicMessage(err)))
		},
		OnUnsupported: func(err error) { bridge.send(unsupportedMsg{err: err}) },
	}
}

// waitForLines submits each stdin line as a manual entry until EOF. When
// stdin carries the audio instead, it waits for the audio to end.
func waitForLines(ctx context.Context, ctrl *capture.Controller, bridge *eventBridge, in io.Reader, audioSource string) {
	if capture.IsStdinSource(audioSource) && !noSpeech {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-bridge.ch:
				if _, ok := msg.(unsupportedMsg); ok {
					return
				}
			}
		}
	}

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := ctrl.SubmitManual(ctx, line); err != nil {
				return
			}
		}
	}
}

func init() {
	captureCmd.Flags().BoolVar(&noSpeech, "no-speech", false, "disable speech recognition; typed entries only")
	captureCmd.Flags().StringVar(&captureLog, "log-file", filepath.Join(os.TempDir(), "estate-logger-capture.log"), "where the interactive console writes logs")
}
