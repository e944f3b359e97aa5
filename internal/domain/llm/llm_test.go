package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alttext-server-go/internal/platform/config"
	"alttext-server-go/internal/platform/errors"
)

func newOpenAIServer(t *testing.T, chat func(body map[string]any) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/v1/chat/completions":
			content := chat(body)
			resp := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"model":   body["model"],
				"choices": []any{},
			}
			if content != "" {
				resp["choices"] = []any{map[string]any{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				}}
			}
			_ = json.NewEncoder(w).Encode(resp)
		case "/v1/embeddings":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"data":   []any{map[string]any{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}}},
				"model":  body["model"],
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func openAIConfig(url string) config.LLMConfig {
	cfg := config.DefaultConfig().LLM
	cfg.Provider = "openai"
	cfg.APIKey = "test-key"
	cfg.BaseURL = url + "/v1"
	cfg.TextModel = "gpt-text"
	cfg.VisionModel = "gpt-vision"
	cfg.EmbeddingModel = "embed-small"
	return cfg
}

func TestOpenAI_Generate(t *testing.T) {
	var seenModel string
	srv := newOpenAIServer(t, func(body map[string]any) string {
		seenModel, _ = body["model"].(string)
		return "<think>pondering</think>\nA dog on a beach."
	})

	client, err := New(context.Background(), openAIConfig(srv.URL), nil)
	require.NoError(t, err)
	defer client.Close()

	out, err := client.Generate(context.Background(), "a dog")
	require.NoError(t, err)
	assert.Equal(t, "A dog on a beach.", out)
	assert.Equal(t, "gpt-text", seenModel)
	assert.Equal(t, "openai", client.Name())
}

func TestOpenAI_GenerateWithImage(t *testing.T) {
	var imageURL string
	srv := newOpenAIServer(t, func(body map[string]any) string {
		msgs := body["messages"].([]any)
		parts := msgs[0].(map[string]any)["content"].([]any)
		imageURL = parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
		return "a red square"
	})

	client, err := NewOpenAI(openAIConfig(srv.URL), nil)
	require.NoError(t, err)

	out, err := client.GenerateWithImage(context.Background(), "describe", Image{Data: []byte{1, 2, 3}, Format: "png"})
	require.NoError(t, err)
	assert.Equal(t, "a red square", out)
	assert.True(t, strings.HasPrefix(imageURL, "data:image/png;base64,AQID"), imageURL)
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	srv := newOpenAIServer(t, func(map[string]any) string { return "" })
	client, err := NewOpenAI(openAIConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAI_Embed(t *testing.T) {
	srv := newOpenAIServer(t, func(map[string]any) string { return "" })
	client, err := NewOpenAI(openAIConfig(srv.URL), nil)
	require.NoError(t, err)

	values, err := client.Embed(context.Background(), "caption")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, values)
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	client, err := NewOpenAI(openAIConfig(srv.URL), nil)
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindLLM))
}

func TestNew_Errors(t *testing.T) {
	cfg := config.DefaultConfig().LLM
	cfg.Provider = "claude"
	_, err := New(context.Background(), cfg, nil)
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	cfg.Provider = "gemini"
	cfg.APIKey = ""
	_, err = New(context.Background(), cfg, nil)
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	cfg.Provider = "openai"
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestStripThinking(t *testing.T) {
	assert.Equal(t, "answer", stripThinking("<think>a\nb</think> answer "))
	assert.Equal(t, "plain", stripThinking("plain"))
	assert.Equal(t, "jpeg", mimeFormat("JPG"))
	assert.Equal(t, "png", mimeFormat("PNG"))
}
