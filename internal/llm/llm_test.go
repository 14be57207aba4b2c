package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeOpenAI serves just enough of the chat completions API for the client.
func fakeOpenAI(t *testing.T, handler func(model, content string) string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		content := ""
		if len(req.Messages) > 0 {
			content = req.Messages[0].Content
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": handler(req.Model, content)}},
			},
			"usage": map[string]any{"total_tokens": 42},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"default-model","object":"model"}]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGenerate(t *testing.T) {
	var gotModel string
	server := fakeOpenAI(t, func(model, content string) string {
		gotModel = model
		return "echo: " + content
	})
	client := New(server.URL, "test-key", "default-model", time.Second)

	out, err := client.Generate(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "echo: hello" {
		t.Errorf("unexpected content %q", out)
	}
	if gotModel != "default-model" {
		t.Errorf("empty channel should use the default model, got %q", gotModel)
	}
}

func TestGenerateChannelSelectsModel(t *testing.T) {
	var gotModel string
	server := fakeOpenAI(t, func(model, content string) string {
		gotModel = model
		return "ok"
	})
	client := New(server.URL, "test-key", "default-model", time.Second)

	if _, err := client.Generate(context.Background(), "tutor-channel", "hi"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotModel != "tutor-channel" {
		t.Errorf("channel should override the model, got %q", gotModel)
	}
}

func TestGenerateEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)
	client := New(server.URL, "test-key", "default-model", time.Second)

	if _, err := client.Generate(context.Background(), "", "hi"); err == nil {
		t.Error("expected an error from a failing endpoint")
	}
}

func TestPing(t *testing.T) {
	server := fakeOpenAI(t, func(model, content string) string { return "" })
	client := New(server.URL, "test-key", "default-model", time.Second)

	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
