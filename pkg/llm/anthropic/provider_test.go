package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"multimodal-rag-be/pkg/llm"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicStream(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, text := range []string{"Returns ", "are free."} {
			fmt.Fprintf(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", text)
		}
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", "claude-test", llm.Options{}, anthropicopt.WithBaseURL(srv.URL))
	stream, err := p.Stream(context.Background(), llm.Request{
		SystemPrompt: "answer from evidence",
		Messages: []llm.Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "are returns free?"},
		},
	})
	require.NoError(t, err)

	text, err := llm.Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "Returns are free.", text)

	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, defaultMaxTokens, body["max_tokens"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 3)
}
