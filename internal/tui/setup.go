package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"wikiqa/internal/appconfig"
	"wikiqa/internal/llm"
)

type setupPage int

const (
	setupPageEmbed setupPage = iota
	setupPageChat
)

type setupModel struct {
	models      []llm.OllamaModel
	embedModels []llm.OllamaModel
	chatModels  []llm.OllamaModel
	embedCursor int
	chatCursor  int
	page        setupPage
	loaded      bool
	err         error
}

// fetchModelsMsg is sent when models have been fetched from Ollama.
type fetchModelsMsg struct {
	models []llm.OllamaModel
	err    error
}

func fetchModels(baseURL string) tea.Cmd {
	return func() tea.Msg {
		models, err := llm.ListModels(context.Background(), baseURL)
		return fetchModelsMsg{models: models, err: err}
	}
}

func isEmbeddingModel(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "embed") || strings.Contains(n, "minilm") || strings.Contains(n, "bge")
}

func (m setupModel) Update(msg tea.Msg, cfg appconfig.Config) (setupModel, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchModelsMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.models = msg.models

		for _, model := range msg.models {
			if isEmbeddingModel(model.Name) {
				m.embedModels = append(m.embedModels, model)
			} else {
				m.chatModels = append(m.chatModels, model)
			}
		}
		if len(m.embedModels) == 0 {
			m.embedModels = msg.models
		}
		if len(m.chatModels) == 0 {
			m.chatModels = msg.models
		}

		m.embedCursor = cursorFor(m.embedModels, cfg.Embedding.Model)
		m.chatCursor = cursorFor(m.chatModels, cfg.Generation.Model)
		// Generation is not served by Ollama, so there is nothing to pick.
		if cfg.Generation.Provider != appconfig.ProviderOllama {
			m.chatModels = nil
		}

	case tea.KeyMsg:
		if !m.loaded || m.err != nil {
			return m, nil
		}
		cursor, n := &m.embedCursor, len(m.embedModels)
		if m.page == setupPageChat {
			cursor, n = &m.chatCursor, len(m.chatModels)
		}
		switch msg.String() {
		case "up", "k":
			if *cursor > 0 {
				*cursor--
			}
		case "down", "j":
			if *cursor < n-1 {
				*cursor++
			}
		}
	}
	return m, nil
}

// cursorFor returns the index of the model whose name matches want, with or
// without the ":latest" tag.
func cursorFor(models []llm.OllamaModel, want string) int {
	for i, model := range models {
		if model.Name == want || strings.TrimSuffix(model.Name, ":latest") == want {
			return i
		}
	}
	return 0
}

// advancePage moves from embed page to chat page. Returns true if it advanced.
func (m *setupModel) advancePage() bool {
	if m.page == setupPageEmbed && len(m.chatModels) > 0 {
		m.page = setupPageChat
		return true
	}
	return false
}

func (m setupModel) View(width, height int) string {
	s := "\n"

	if !m.loaded {
		s += titleStyle.Render("  Model Selection") + "\n\n"
		s += dimStyle.Render("  Fetching models from Ollama...") + "\n"
		return s
	}

	if m.err != nil {
		s += titleStyle.Render("  Model Selection") + "\n\n"
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
		s += dimStyle.Render("  Make sure Ollama is running and try again.") + "\n"
		s += dimStyle.Render("  Press q to quit.") + "\n"
		return s
	}

	if len(m.models) == 0 {
		s += titleStyle.Render("  Model Selection") + "\n\n"
		s += warnStyle.Render("  No models found in Ollama.") + "\n"
		s += dimStyle.Render("  Pull a model first: ollama pull all-minilm") + "\n"
		return s
	}

	if m.page == setupPageEmbed {
		s += titleStyle.Render("  Select Embedding Model") + "\n"
		s += dimStyle.Render("  Embeds every passage and every question") + "\n\n"
		s += renderModelList(m.embedModels, m.embedCursor)
		s += "\n"
		s += helpStyle.Render("  ↑/↓ navigate • Enter select") + "\n"
	} else {
		s += titleStyle.Render("  Select Chat Model") + "\n"
		s += dimStyle.Render("  Writes the answers") + "\n\n"
		s += renderModelList(m.chatModels, m.chatCursor)
		s += "\n"
		s += helpStyle.Render("  ↑/↓ navigate • Enter confirm") + "\n"
	}

	return s
}

func renderModelList(models []llm.OllamaModel, cursor int) string {
	var sb strings.Builder
	for i, model := range models {
		marker := "  "
		style := listItemStyle
		if i == cursor {
			marker = "▸ "
			style = selectedStyle
		}
		fmt.Fprintf(&sb, "  %s%s\n", marker, style.Render(fmt.Sprintf("%s (%s)", model.Name, formatSize(model.Size))))
	}
	return sb.String()
}

func (m setupModel) selectedEmbedModel() string {
	if m.embedCursor < len(m.embedModels) {
		return m.embedModels[m.embedCursor].Name
	}
	return ""
}

func (m setupModel) selectedChatModel() string {
	if m.chatCursor < len(m.chatModels) {
		return m.chatModels[m.chatCursor].Name
	}
	return ""
}

func formatSize(bytes int64) string {
	const (
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.0f MB", float64(bytes)/mb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
