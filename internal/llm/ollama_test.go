package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaChatGenerateIsDeterministicRequest(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: "assistant", Content: "Cats are mammals."}})
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "qwen3:8b", 128)
	answer, err := c.Generate(context.Background(), "Question: what is a cat?")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "Cats are mammals." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if got.Stream || got.Options.Temperature != 0 || got.Options.NumPredict != 128 {
		t.Fatalf("expected non-streaming temperature-0 request, got %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("expected single user message, got %+v", got.Messages)
	}
}

func TestOllamaChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewOllamaChat(srv.URL, "m", 0).Generate(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tagsResponse{Models: []OllamaModel{{Name: "nomic-embed-text", Size: 1 << 28}}})
	}))
	defer srv.Close()

	models, err := ListModels(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0].Name != "nomic-embed-text" {
		t.Fatalf("unexpected models %+v", models)
	}
}
