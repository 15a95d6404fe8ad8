package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/speech-runtime/config"
	"github.com/wippyai/speech-runtime/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	modeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var modes = []string{modeRecognize, modeContinuous, modeTranscribe, modeSpeak}

type modelState int

const (
	stateSelectMode modelState = iota
	stateInputText
	stateRunning
	stateShowResult
)

type interactiveModel struct {
	ctx      context.Context
	err      error
	eng      engine.Engine
	cfg      *config.Config
	logger   *zap.Logger
	events   chan string
	lines    []string
	input    textinput.Model
	spinner  spinner.Model
	log      viewport.Model
	selected int
	state    modelState
}

func newInteractiveModel(ctx context.Context, cfg *config.Config, logger *zap.Logger) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "what should the engine hear or say?"
	ti.Prompt = "text: "
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &interactiveModel{
		ctx:     ctx,
		cfg:     cfg,
		logger:  logger,
		events:  make(chan string, 256),
		input:   ti,
		spinner: sp,
		log:     viewport.New(80, 12),
		state:   stateSelectMode,
	}
}

type engineMsg struct {
	err error
	eng engine.Engine
}

type eventMsg string

type resultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.loadEngine, m.listen())
}

func (m *interactiveModel) loadEngine() tea.Msg {
	eng, err := newEngine(m.ctx, m.cfg, m.logger)
	return engineMsg{eng: eng, err: err}
}

// listen forwards one engine event line to the program.
func (m *interactiveModel) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case line := <-m.events:
			return eventMsg(line)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// emit is handed to event handlers; it never blocks the engine goroutine.
func (m *interactiveModel) emit(format string, args ...any) {
	select {
	case m.events <- fmt.Sprintf(format, args...):
	default:
	}
}

func (m *interactiveModel) execute(mode, text string) tea.Cmd {
	return func() tea.Msg {
		var err error
		switch mode {
		case modeRecognize, modeContinuous:
			err = recognize(m.ctx, m.eng, m.cfg, nil, m.emit, mode == modeContinuous, text)
		case modeTranscribe:
			err = transcribe(m.ctx, m.eng, m.cfg, nil, m.emit, text)
		case modeSpeak:
			err = speak(m.ctx, m.eng, m.cfg, nil, m.emit, text)
		}
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{result: mode + " finished"}
	}
}

func (m *interactiveModel) shutdown() {
	if m.eng != nil {
		m.eng.Close(context.Background())
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.shutdown()
			return m, tea.Quit

		case "q":
			if m.state != stateInputText {
				m.shutdown()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectMode && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down", "j":
			if m.state == stateSelectMode && m.selected < len(modes)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelectMode:
				if m.eng == nil {
					return m, nil
				}
				m.state = stateInputText
				m.input.SetValue("")
				m.input.Focus()
				return m, textinput.Blink

			case stateInputText:
				text := strings.TrimSpace(m.input.Value())
				m.input.Blur()
				m.state = stateRunning
				m.lines = nil
				m.log.SetContent("")
				return m, tea.Batch(m.spinner.Tick, m.execute(modes[m.selected], text))

			case stateShowResult:
				m.state = stateSelectMode
				m.err = nil
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputText:
				m.input.Blur()
				m.state = stateSelectMode
				return m, nil
			case stateShowResult:
				m.state = stateSelectMode
				m.err = nil
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.log.Width = msg.Width
		if h := msg.Height - 8; h > 3 {
			m.log.Height = h
		}

	case engineMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.eng = msg.eng

	case eventMsg:
		m.lines = append(m.lines, eventStyle.Render(string(msg)))
		m.log.SetContent(strings.Join(m.lines, "\n"))
		m.log.GotoBottom()
		return m, m.listen()

	case resultMsg:
		m.err = msg.err
		m.state = stateShowResult
		if msg.err == nil {
			m.lines = append(m.lines, resultStyle.Render(msg.result))
			m.log.SetContent(strings.Join(m.lines, "\n"))
			m.log.GotoBottom()
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != stateRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	if m.state == stateInputText {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.eng == nil {
		return m.spinner.View() + " Loading engine..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Speech Runner"))
	b.WriteString(" ")
	b.WriteString(m.cfg.Engine)
	if m.cfg.Engine == config.EngineWasm {
		b.WriteString(" " + m.cfg.WasmModule)
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectMode:
		b.WriteString("Select an operation:\n\n")
		for i, mode := range modes {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + mode))
			} else {
				b.WriteString("  " + modeStyle.Render(mode))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputText:
		b.WriteString(fmt.Sprintf("Running %s\n\n", modeStyle.Render(modes[m.selected])))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter run • esc back"))

	case stateRunning:
		b.WriteString(m.spinner.View())
		b.WriteString(" " + modeStyle.Render(modes[m.selected]) + "\n\n")
		b.WriteString(m.log.View())

	case stateShowResult:
		b.WriteString(m.log.View())
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
		}
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	p := tea.NewProgram(newInteractiveModel(ctx, cfg, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
