// Package tui is the interactive terminal front end: it checks the
// checkpoint, optionally picks Ollama models, runs the build loop with live
// progress and then answers questions.
package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"wikiqa/internal/app"
	"wikiqa/internal/appconfig"
	"wikiqa/internal/logging"
)

// ViewState is the active screen.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewSetup
	ViewIndexing
	ViewChat
)

// programRef lets the build goroutine send progress to the running program.
// p is set after tea.NewProgram returns and before Run.
type programRef struct {
	p *tea.Program
}

// Config holds what the CLI layer passes in.
type Config struct {
	App *app.App

	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	welcome  welcomeModel
	setup    setupModel
	indexing indexingModel
	chat     chatModel
	session  *app.Session
	err      error
}

func New(cfg Config) Model {
	return Model{state: ViewWelcome, config: cfg}
}

func (m Model) Init() tea.Cmd {
	return checkIndex(m.config.App)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.state != ViewChat {
			return m, nil
		}
	case tea.KeyMsg:
		if quit, cmd := m.handleQuit(msg); quit {
			return m, cmd
		}
	}

	switch m.state {
	case ViewWelcome:
		return m.updateWelcome(msg)
	case ViewSetup:
		return m.updateSetup(msg)
	case ViewIndexing:
		return m.updateIndexing(msg)
	case ViewChat:
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleQuit handles ctrl+c everywhere and q outside the chat input. A
// running build is stopped first so its checkpoint is written.
func (m *Model) handleQuit(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()
	if key != "ctrl+c" && (key != "q" || m.state == ViewChat) {
		return false, nil
	}
	if m.state == ViewIndexing && !m.indexing.finished {
		m.indexing = m.indexing.stop()
		return true, nil
	}
	return true, tea.Quit
}

func isEnter(msg tea.Msg) bool {
	k, ok := msg.(tea.KeyMsg)
	return ok && k.Type == tea.KeyEnter
}

func (m Model) updateWelcome(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.welcome, cmd = m.welcome.Update(msg)
	if cmd != nil || !isEnter(msg) || !m.welcome.ready {
		return m, cmd
	}
	if m.welcome.status == indexReady {
		return m, m.openChat()
	}
	cfg := m.config.App.Config
	if cfg.Embedding.Provider != appconfig.ProviderOllama {
		return m, m.startIndexing()
	}
	m.state = ViewSetup
	return m, fetchModels(cfg.Embedding.URL)
}

func (m Model) updateSetup(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.setup, cmd = m.setup.Update(msg, m.config.App.Config)
	if cmd != nil || !isEnter(msg) {
		return m, cmd
	}
	if !m.setup.loaded || m.setup.err != nil || len(m.setup.models) == 0 {
		return m, nil
	}
	if m.setup.advancePage() {
		return m, nil
	}

	cfg := m.config.App.Config
	if sel := m.setup.selectedEmbedModel(); sel != "" {
		cfg.Embedding.Model = sel
	}
	if sel := m.setup.selectedChatModel(); sel != "" {
		cfg.Generation.Model = sel
	}
	a, err := app.New(cfg)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.config.App = a
	return m, m.startIndexing()
}

func (m Model) updateIndexing(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.indexing, cmd = m.indexing.Update(msg)
	if cmd == nil && isEnter(msg) && m.indexing.finished {
		return m, m.openChat()
	}
	return m, cmd
}

func (m *Model) startIndexing() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.state = ViewIndexing
	m.indexing = newIndexingModel()
	m.indexing.cancel = cancel
	return tea.Batch(m.indexing.spinner.Tick, runIndex(ctx, m.config))
}

func (m *Model) openChat() tea.Cmd {
	sess, err := m.config.App.OpenSession(context.Background())
	if err != nil {
		m.err = err
		return nil
	}
	m.session = sess
	m.chat = newChatModel(sess)
	m.chat.initViewport(m.width, m.height)
	m.state = ViewChat
	return nil
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n" + dimStyle.Render("Press q to quit.") + "\n"
	}
	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.width, m.height)
	case ViewSetup:
		return m.setup.View(m.width, m.height)
	case ViewIndexing:
		return m.indexing.View(m.width, m.height)
	case ViewChat:
		return m.chat.View(m.width, m.height)
	}
	return ""
}

// Run starts the program on the alternate screen. While it runs, log lines
// go only to the configured log file.
func Run(cfg Config) error {
	logging.SetConsole(io.Discard)
	if err := logging.Init(cfg.App.Config.LogFile, cfg.App.Config.Debug); err != nil {
		return err
	}

	ref := &programRef{}
	cfg.program = ref
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	ref.p = p

	final, err := p.Run()
	if fm, ok := final.(Model); ok && fm.session != nil {
		_ = fm.session.Close()
	}
	return err
}
