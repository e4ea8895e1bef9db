package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"multimodal-rag-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIStream(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"", "Acme ", "ships ", "worldwide."} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL+"/v1", "gpt-4o-mini", llm.Options{Temperature: 0.1})
	stream, err := p.Stream(context.Background(), llm.Request{
		SystemPrompt: "be brief",
		Messages: []llm.Message{
			{Role: "user", Content: "do you ship abroad?"},
		},
	})
	require.NoError(t, err)

	text, err := llm.Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "Acme ships worldwide.", text)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, true, body["stream"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAIStreamModelOverride(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, "base-model", llm.Options{})
	stream, err := p.Stream(context.Background(), llm.Request{}, llm.WithModel("other-model"))
	require.NoError(t, err)

	text, err := llm.Collect(stream)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, "other-model", body["model"])
}
