package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dwesselviax/EstateLogger/internal/capture"
	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
)

const (
	maxTranscriptLines = 6
	maxItemLines       = 10
)

// Messages delivered from the capture controller's callbacks.
type transcriptMsg struct {
	text    string
	isFinal bool
}

type extractingMsg struct{ text string }

type itemsMsg struct{ items []*entity.Item }

type errorMsg struct{ err error }

type unsupportedMsg struct{ err error }

type stateMsg struct{ state capture.State }

type restartFailedMsg struct{ err error }

type stoppedMsg struct {
	session *entity.Session
	err     error
}

// eventBridge turns controller callbacks into tea messages. Sends never block
// the controller; if the console falls behind, transcript updates are dropped
// first.
type eventBridge struct {
	ch chan tea.Msg
}

func newEventBridge() *eventBridge {
	return &eventBridge{ch: make(chan tea.Msg, 256)}
}

func (b *eventBridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		if _, ok := msg.(transcriptMsg); ok {
			return
		}
		b.ch <- msg
	}
}

func (b *eventBridge) Events() capture.Events {
	return capture.Events{
		OnTranscript:  func(text string, isFinal bool) { b.send(transcriptMsg{text: text, isFinal: isFinal}) },
		OnExtracting:  func(text string) { b.send(extractingMsg{text: text}) },
		OnItems:       func(items []*entity.Item) { b.send(itemsMsg{items: items}) },
		OnError:       func(err error) { b.send(errorMsg{err: err}) },
		OnUnsupported: func(err error) { b.send(unsupportedMsg{err: err}) },
		OnState:       func(s capture.State) { b.send(stateMsg{state: s}) },
	}
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// sessionControl is the part of the capture controller the console drives.
type sessionControl interface {
	SubmitManual(ctx context.Context, text string) error
	Restart(ctx context.Context) error
	Stop(ctx context.Context) (*entity.Session, error)
}

// consoleModel is the interactive capture screen: live transcript, manual
// entry and the items extracted so far.
type consoleModel struct {
	ctrl   sessionControl
	estate *entity.Estate
	events <-chan tea.Msg

	input   textinput.Model
	spinner spinner.Model

	finals     []string
	interim    string
	state      capture.State
	extracting int
	items      []*entity.Item
	errText    string
	speechOff  bool
	stopping   bool
	summary    *entity.Session
	width      int
}

func newConsoleModel(ctrl sessionControl, est *entity.Estate, events <-chan tea.Msg) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "type an item and press enter"
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return consoleModel{
		ctrl:    ctrl,
		estate:  est,
		events:  events,
		input:   ti,
		spinner: sp,
		state:   capture.StateIdle,
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 20)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case transcriptMsg:
		if msg.isFinal {
			m.interim = ""
			if t := strings.TrimSpace(msg.text); t != "" {
				m.finals = append(m.finals, t)
			}
		} else {
			m.interim = msg.text
		}
		return m, waitForEvent(m.events)

	case extractingMsg:
		m.extracting++
		return m, waitForEvent(m.events)

	case itemsMsg:
		m.extracting = max(m.extracting-1, 0)
		m.items = append(m.items, msg.items...)
		m.errText = ""
		return m, waitForEvent(m.events)

	case errorMsg:
		m.extracting = max(m.extracting-1, 0)
		m.errText = common.PublicMessage(msg.err)
		return m, waitForEvent(m.events)

	case unsupportedMsg:
		m.speechOff = true
		m.state = capture.StateUnsupported
		return m, waitForEvent(m.events)

	case stateMsg:
		m.state = msg.state
		if msg.state != capture.StateUnsupported {
			m.speechOff = false
		}
		return m, waitForEvent(m.events)

	case restartFailedMsg:
		m.errText = msg.err.Error()
		return m, nil

	case stoppedMsg:
		m.summary = msg.session
		if msg.err != nil {
			m.errText = common.PublicMessage(msg.err)
		}
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.stopping {
		return m, nil
	}
	switch msg.String() {
	case "ctrl+c", "esc":
		m.stopping = true
		return m, stopSession(m.ctrl)
	case "ctrl+r":
		ctrl := m.ctrl
		return m, func() tea.Msg {
			if err := ctrl.Restart(context.Background()); err != nil {
				return restartFailedMsg{err: err}
			}
			return nil
		}
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		if err := m.ctrl.SubmitManual(context.Background(), text); err != nil {
			m.errText = err.Error()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func stopSession(ctrl sessionControl) tea.Cmd {
	return func() tea.Msg {
		sess, err := ctrl.Stop(context.Background())
		return stoppedMsg{session: sess, err: err}
	}
}

func (m consoleModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.estate.Name))
	b.WriteString("  ")
	b.WriteString(m.stateLine())
	b.WriteString("\n\n")

	finals := m.finals
	if len(finals) > maxTranscriptLines {
		finals = finals[len(finals)-maxTranscriptLines:]
	}
	for _, line := range finals {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.interim != "" {
		b.WriteString(PartialTextStyle.Render(m.interim))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(StatusStyle.Render(fmt.Sprintf("%d items", len(m.items))))
	if m.extracting > 0 {
		b.WriteString("  ")
		b.WriteString(m.spinner.View())
		b.WriteString(" extracting...")
	}
	b.WriteString("\n")
	items := m.items
	if len(items) > maxItemLines {
		items = items[len(items)-maxItemLines:]
	}
	for _, it := range items {
		b.WriteString("  ")
		b.WriteString(ItemStyle.Render(it.Name))
		b.WriteString(" ")
		b.WriteString(CategoryStyle.Render(string(it.Category)))
		b.WriteString("\n")
	}

	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.errText))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.stopping {
		b.WriteString(m.spinner.View())
		b.WriteString(" finishing session...\n")
		return b.String()
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("enter: add item  ctrl+r: restart speech  esc: finish"))
	b.WriteString("\n")
	return b.String()
}

func (m consoleModel) stateLine() string {
	switch {
	case m.speechOff:
		return IdleDotStyle.Render("○") + StatusStyle.Render(" speech unavailable, type items below")
	case m.state == capture.StateListening:
		return ListeningDotStyle.Render("●") + StatusStyle.Render(" listening")
	case m.state == capture.StateRestarting:
		return IdleDotStyle.Render("●") + StatusStyle.Render(" reconnecting")
	default:
		return IdleDotStyle.Render("○") + StatusStyle.Render(" idle")
	}
}
