package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"wikiqa/internal/rag"
)

const chatHelp = "Commands:\n  /clear  - clear the transcript\n  /exit   - quit (or type exit)\n  /help   - show this help"

type chatModel struct {
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	renderer    *glamour.TermRenderer
	messages    []chatMessage
	answerer    answerer
	asking      bool
	width       int
	height      int
	initialized bool
}

// answerer is the part of the query pipeline the chat screen calls.
type answerer interface {
	Answer(ctx context.Context, query string) (rag.Answer, error)
}

type chatMessage struct {
	role    string
	content string
}

// answerMsg is sent when a query completes.
type answerMsg struct {
	answer rag.Answer
	err    error
}

func newChatModel(a answerer) chatModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "Ask a question..."
	ti.CharLimit = 2000
	ti.Focus()

	return chatModel{
		spinner:  sp,
		input:    ti,
		answerer: a,
	}
}

func (m *chatModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	// viewport + status bar + input
	m.viewport = viewport.New(width, max(height-3, 5))
	m.viewport.SetContent(dimStyle.Render("Ask anything the indexed Wikipedia passages can answer.\n\n" + chatHelp))

	m.input.Width = width - 4

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-2, 20)),
	)
	if err == nil {
		m.renderer = r
	}

	m.initialized = true
}

func askQuestion(a answerer, question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := a.Answer(context.Background(), question)
		return answerMsg{answer: ans, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case answerMsg:
		m.asking = false
		if msg.err != nil {
			m.messages = append(m.messages, chatMessage{role: "error", content: msg.err.Error()})
		} else {
			m.messages = append(m.messages,
				chatMessage{role: "assistant", content: msg.answer.Text},
				chatMessage{role: "sources", content: formatSources(msg.answer.Sources)},
			)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.asking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.refresh()
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.asking {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			m.input.Reset()

			switch {
			case question == "/exit", question == "/quit", strings.EqualFold(question, "exit"):
				return m, tea.Quit
			case question == "/clear":
				m.messages = nil
				m.viewport.SetContent(dimStyle.Render("Transcript cleared."))
				return m, nil
			case question == "/help":
				m.messages = append(m.messages, chatMessage{role: "system", content: chatHelp})
				m.refresh()
				return m, nil
			}

			m.messages = append(m.messages, chatMessage{role: "user", content: question})
			m.asking = true
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, askQuestion(m.answerer, question))
		}
	}

	if !m.asking {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func formatSources(sources []rag.Source) string {
	if len(sources) == 0 {
		return "no passages retrieved"
	}
	var sb strings.Builder
	for i, s := range sources {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%d] %s (#%d, %.4f)", i+1, s.Title, s.Position, s.Distance)
	}
	return sb.String()
}

func (m chatModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return assistantMsgStyle.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return assistantMsgStyle.Render(content)
	}
	return strings.TrimRight(rendered, "\n")
}

func (m chatModel) renderMessages() string {
	var sb strings.Builder
	for _, msg := range m.messages {
		switch msg.role {
		case "user":
			sb.WriteString(userMsgStyle.Render("Query: ") + msg.content + "\n\n")
		case "assistant":
			sb.WriteString(m.renderMarkdown(msg.content) + "\n")
		case "sources":
			sb.WriteString(sourcesStyle.Render(msg.content) + "\n\n")
		case "error":
			sb.WriteString(errorStyle.Render("Error: "+msg.content) + "\n\n")
		case "system":
			sb.WriteString(dimStyle.Render(msg.content) + "\n\n")
		}
	}
	if m.asking {
		sb.WriteString(m.spinner.View() + " " + dimStyle.Render("Retrieving and generating...") + "\n")
	}
	return sb.String()
}

func (m chatModel) View(width, height int) string {
	if !m.initialized {
		return ""
	}

	statusText := "idle"
	if m.asking {
		statusText = "answering..."
	}
	statusBar := statusBarStyle.
		Width(m.width).
		Render(fmt.Sprintf(" wikiqa • %s", statusText))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusBar,
		m.input.View(),
	)
}
