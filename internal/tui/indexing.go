package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"wikiqa/internal/index"
)

type indexingModel struct {
	spinner  spinner.Model
	phase    string
	done     int
	total    int
	finished bool
	stopping bool
	cancel   context.CancelFunc
	stats    *index.Stats
	err      error
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return indexingModel{
		spinner: sp,
		phase:   "Loading corpus...",
	}
}

// indexDoneMsg is sent when the build loop returns.
type indexDoneMsg struct {
	stats *index.Stats
	err   error
}

// indexProgressMsg is sent after every embedded batch.
type indexProgressMsg struct {
	phase string
	done  int
	total int
}

func runIndex(ctx context.Context, cfg Config) tea.Cmd {
	return func() tea.Msg {
		stats, err := cfg.App.Build(ctx, false, func(phase string, done, total int) {
			if cfg.program != nil && cfg.program.p != nil {
				cfg.program.p.Send(indexProgressMsg{phase: phase, done: done, total: total})
			}
		})
		return indexDoneMsg{stats: stats, err: err}
	}
}

// stop cancels a running build. The build saves a checkpoint before it
// returns, so the program quits on the following indexDoneMsg.
func (m indexingModel) stop() indexingModel {
	if m.cancel != nil {
		m.cancel()
	}
	m.stopping = true
	m.phase = "Saving checkpoint..."
	return m
}

func (m indexingModel) Update(msg tea.Msg) (indexingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case indexDoneMsg:
		m.finished = true
		m.stats = msg.stats
		m.err = msg.err
		if m.stopping {
			return m, tea.Quit
		}
		return m, nil
	case indexProgressMsg:
		m.phase = msg.phase
		m.done = msg.done
		m.total = msg.total
		return m, nil
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexingModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Indexing") + "\n\n"

	if m.finished {
		if m.err != nil && !errors.Is(m.err, context.Canceled) {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Progress up to the last checkpoint is kept.") + "\n"
			s += dimStyle.Render("  Press Enter to ask with the partial index, or q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Indexing complete!") + "\n\n"
		if m.stats != nil {
			s += fmt.Sprintf("  Passages: %d total, %d embedded, %d resumed\n",
				m.stats.Total, m.stats.Embedded, m.stats.Skipped)
			s += fmt.Sprintf("  Checkpoints written: %d\n", m.stats.Checkpoints)
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to start asking") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.total > 0 {
		s += fmt.Sprintf("  %d / %d passages embedded\n", m.done, m.total)
	}
	s += "\n"
	if m.stopping {
		s += dimStyle.Render("  Stopping after the current batch...") + "\n"
	} else {
		s += dimStyle.Render("  Press q to stop; the next run resumes from the last checkpoint.") + "\n"
	}
	return s
}
