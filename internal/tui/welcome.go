package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"wikiqa/internal/app"
)

type indexStatus int

const (
	indexNotFound indexStatus = iota
	indexReady
	indexStale
)

type welcomeModel struct {
	status      indexStatus
	staleReason string
	indexed     int
	ready       bool // true once the check has completed
}

// checkIndexMsg is sent after checking the checkpoint.
type checkIndexMsg struct {
	status      indexStatus
	staleReason string
	indexed     int
	err         error
}

func checkIndex(a *app.App) tea.Cmd {
	return func() tea.Msg {
		return indexStatusOf(a)
	}
}

func indexStatusOf(a *app.App) checkIndexMsg {
	s, err := a.Status()
	if err != nil {
		return checkIndexMsg{status: indexNotFound, err: err}
	}
	if !s.Exists {
		return checkIndexMsg{status: indexNotFound}
	}
	if s.Err != nil {
		return checkIndexMsg{status: indexStale, staleReason: "checkpoint unreadable, it will be rebuilt"}
	}

	msg := checkIndexMsg{status: indexReady, indexed: s.NextPosition}
	model := a.Embedder.Model()
	switch {
	case s.Meta != nil && s.Meta.EmbeddingModel != "" && s.Meta.EmbeddingModel != model:
		msg.status = indexStale
		msg.staleReason = fmt.Sprintf("model changed: %s → %s", s.Meta.EmbeddingModel, model)
	case s.DB != nil && s.NextPosition < s.DB.Records:
		msg.status = indexStale
		msg.staleReason = fmt.Sprintf("%d of %d records embedded", s.NextPosition, s.DB.Records)
	case s.NextPosition == 0:
		msg.status = indexNotFound
	}
	return msg
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkIndexMsg:
		m.status = msg.status
		m.staleReason = msg.staleReason
		m.indexed = msg.indexed
		if msg.err != nil {
			m.staleReason = msg.err.Error()
		}
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ wikiqa") + "\n"
	s += subtitleStyle.Render("  Questions answered from Wikipedia passages") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking index...") + "\n"
		return s
	}

	switch m.status {
	case indexReady:
		s += successStyle.Render(fmt.Sprintf("  ✓ Index ready (%d passages)", m.indexed)) + "\n"
	case indexNotFound:
		s += warnStyle.Render("  ✗ No index found") + "\n"
		if m.staleReason != "" {
			s += dimStyle.Render("    "+m.staleReason) + "\n"
		}
	case indexStale:
		s += warnStyle.Render("  ⚠ Index incomplete") + "\n"
		s += dimStyle.Render("    "+m.staleReason) + "\n"
	}

	s += "\n"
	if m.status == indexReady {
		s += dimStyle.Render("  Press Enter to start asking") + "\n"
	} else {
		s += dimStyle.Render("  Press Enter to build the index") + "\n"
	}
	return s
}
