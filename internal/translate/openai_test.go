package translate

import (
	"encoding/json"
	"testing"

	"github.com/sorenhq/llmgate/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIRequestRoundTrip(t *testing.T) {
	tr, err := Get(schema.FormatOpenAIChat)
	require.NoError(t, err)

	temp := 0.7
	original := &schema.ChatRequest{
		Model: "gpt-4o",
		Messages: []schema.ChatMessage{
			{Role: "system", Content: "You are terse."},
			{Role: "user", Content: "Hello"},
		},
		MaxTokens:   512,
		Temperature: &temp,
		Stream:      true,
		Extra: map[string]json.RawMessage{
			"top_p":      json.RawMessage(`0.9`),
			"logit_bias": json.RawMessage(`{"50256":-100}`),
		},
	}

	encoded, err := tr.EncodeRequest(original)
	require.NoError(t, err)

	decoded, err := tr.DecodeRequest(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.Model, decoded.Model)
	assert.Equal(t, original.Messages, decoded.Messages)
	assert.Equal(t, original.MaxTokens, decoded.MaxTokens)
	assert.Equal(t, *original.Temperature, *decoded.Temperature)
	assert.Equal(t, original.Stream, decoded.Stream)
	assert.JSONEq(t, string(original.Extra["top_p"]), string(decoded.Extra["top_p"]))
	assert.JSONEq(t, string(original.Extra["logit_bias"]), string(decoded.Extra["logit_bias"]))

	// Second encode must carry the passthrough fields byte-for-byte.
	reencoded, err := tr.EncodeRequest(decoded)
	require.NoError(t, err)
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(reencoded, &obj))
	assert.Equal(t, `{"50256":-100}`, string(obj["logit_bias"]))
}

func TestOpenAIDecodeRequestContentParts(t *testing.T) {
	tr, _ := Get(schema.FormatOpenAIChat)

	body := []byte(`{
		"model": "gpt-4o-mini",
		"messages": [
			{"role": "user", "content": [{"type": "text", "text": "part one "}, {"type": "text", "text": "part two"}]}
		]
	}`)

	req, err := tr.DecodeRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "part one part two", req.Messages[0].Content)
}

func TestOpenAIDecodeRequestMissingMessages(t *testing.T) {
	tr, _ := Get(schema.FormatOpenAIChat)

	_, err := tr.DecodeRequest([]byte(`{"model": "gpt-4o"}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "messages")
}

func TestOpenAIDecodeResponseUsageNaming(t *testing.T) {
	tr, _ := Get(schema.FormatOpenAIChat)

	body := []byte(`{
		"id": "chatcmpl-123",
		"model": "gpt-4o",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi there"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 9, "completion_tokens": 12, "total_tokens": 21}
	}`)

	resp, err := tr.DecodeResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-123", resp.ID)
	assert.Equal(t, "Hi there", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 9, resp.Usage.InputTokens)
	assert.Equal(t, 12, resp.Usage.OutputTokens)
	assert.Equal(t, 21, resp.Usage.TotalTokens)
}

func TestOpenAIEncodeResponse(t *testing.T) {
	tr, _ := Get(schema.FormatOpenAIChat)

	encoded, err := tr.EncodeResponse(&schema.ChatResponse{
		ID:         "chatcmpl-abc",
		Model:      "gpt-4o",
		Content:    "Hello",
		StopReason: "stop",
		Usage:      &schema.Usage{InputTokens: 3, OutputTokens: 5, TotalTokens: 8},
	})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(encoded, &obj))
	assert.Equal(t, "chat.completion", obj["object"])
	choices := obj["choices"].([]any)
	choice := choices[0].(map[string]any)
	assert.Equal(t, "stop", choice["finish_reason"])
	usage := obj["usage"].(map[string]any)
	assert.Equal(t, float64(3), usage["prompt_tokens"])
	assert.Equal(t, float64(5), usage["completion_tokens"])
}

func TestOpenAIDecodeChunk(t *testing.T) {
	tr, _ := Get(schema.FormatOpenAIChat)

	chunk, ok, err := tr.DecodeChunk(`data: {"id":"chatcmpl-1","choices":[{"delta":{"content":"Hel"}}]}`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hel", chunk.Delta)

	_, ok, err = tr.DecodeChunk("data: [DONE]")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = tr.DecodeChunk(": keep-alive")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenAIStreamEncoder(t *testing.T) {
	tr, _ := Get(schema.FormatOpenAIChat)
	enc := tr.NewStreamEncoder("chatcmpl-7", "gpt-4o")

	start := enc.Start()
	require.Len(t, start, 1)
	assert.Contains(t, string(start[0]), `"role":"assistant"`)

	frames := enc.Chunk(&schema.StreamChunk{Delta: "Hi"})
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), `"content":"Hi"`)

	end := enc.End("stop", nil)
	require.Len(t, end, 2)
	assert.Contains(t, string(end[0]), `"finish_reason":"stop"`)
	assert.Equal(t, "data: [DONE]\n\n", string(end[1]))
}

func TestOpenAIErrorEnvelope(t *testing.T) {
	tr, _ := Get(schema.FormatOpenAIChat)

	msg, ok := tr.DecodeError([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	require.True(t, ok)
	assert.Equal(t, "invalid api key", msg)

	_, ok = tr.DecodeError([]byte(`not json`))
	assert.False(t, ok)

	body := tr.EncodeError(503, "no backend available")
	var obj map[string]map[string]any
	require.NoError(t, json.Unmarshal(body, &obj))
	assert.Equal(t, "no backend available", obj["error"]["message"])
	assert.Equal(t, "overloaded_error", obj["error"]["type"])
}
