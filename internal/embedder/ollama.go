package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// OllamaEmbedder calls the Ollama /api/embed endpoint with a whole batch per
// request. It remembers the first dimension it sees and rejects responses
// that disagree with it.
type OllamaEmbedder struct {
	endpoint string
	model    string
	client   *http.Client

	mu  sync.Mutex
	dim int
}

// NewOllamaEmbedder targets the Ollama instance at baseURL.
func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/embed",
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *OllamaEmbedder) Model() string { return e.model }

type ollamaEmbedRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per text, in input order. Inputs longer than the
// model context are truncated by the server.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed %s: %w", e.model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama embed %s: status %d: %s", e.model, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed %s: %d texts gave %d vectors", e.model, len(texts), len(out.Embeddings))
	}
	if err := e.checkDimension(out.Embeddings); err != nil {
		return nil, err
	}
	return out.Embeddings, nil
}

func (e *OllamaEmbedder) checkDimension(vecs [][]float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("ollama embed %s: empty vector at %d", e.model, i)
		}
		if e.dim == 0 {
			e.dim = len(v)
		}
		if len(v) != e.dim {
			return fmt.Errorf("ollama embed %s: vector %d has dimension %d, expected %d", e.model, i, len(v), e.dim)
		}
	}
	return nil
}
