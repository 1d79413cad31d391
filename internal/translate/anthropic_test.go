package translate

import (
	"encoding/json"
	"testing"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicRequestRoundTrip(t *testing.T) {
	tr, err := Get(schema.FormatAnthropicMessages)
	require.NoError(t, err)

	temp := 0.2
	original := &schema.ChatRequest{
		Model: "claude-3-5-sonnet-20241022",
		Messages: []schema.ChatMessage{
			{Role: "system", Content: "You write Go."},
			{Role: "user", Content: "Refactor this."},
			{Role: "assistant", Content: "Sure."},
			{Role: "user", Content: "Go on."},
		},
		MaxTokens:   1024,
		Temperature: &temp,
		Stream:      true,
		Extra: map[string]json.RawMessage{
			"metadata": json.RawMessage(`{"user_id":"u-1"}`),
		},
	}

	encoded, err := tr.EncodeRequest(original)
	require.NoError(t, err)

	// System messages travel in the dedicated field.
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(encoded, &obj))
	assert.JSONEq(t, `"You write Go."`, string(obj["system"]))
	assert.JSONEq(t, `{"user_id":"u-1"}`, string(obj["metadata"]))

	decoded, err := tr.DecodeRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, original.Model, decoded.Model)
	assert.Equal(t, original.Messages, decoded.Messages)
	assert.Equal(t, original.MaxTokens, decoded.MaxTokens)
	assert.Equal(t, *original.Temperature, *decoded.Temperature)
	assert.Equal(t, original.Stream, decoded.Stream)
	assert.JSONEq(t, string(original.Extra["metadata"]), string(decoded.Extra["metadata"]))
}

func TestAnthropicEncodeRequestDefaultsMaxTokens(t *testing.T) {
	tr, _ := Get(schema.FormatAnthropicMessages)

	encoded, err := tr.EncodeRequest(&schema.ChatRequest{
		Messages: []schema.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(encoded, &obj))
	assert.Equal(t, float64(4096), obj["max_tokens"])
}

func TestAnthropicEncodeRequestRejectsSystemOnly(t *testing.T) {
	tr, _ := Get(schema.FormatAnthropicMessages)

	_, err := tr.EncodeRequest(&schema.ChatRequest{
		Messages: []schema.ChatMessage{{Role: "system", Content: "only system"}},
	})
	var translation *domain.TranslationError
	assert.ErrorAs(t, err, &translation)
}

func TestAnthropicDecodeResponse(t *testing.T) {
	tr, _ := Get(schema.FormatAnthropicMessages)

	body := []byte(`{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-sonnet-20241022",
		"content": [{"type": "text", "text": "Hello "}, {"type": "text", "text": "world"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 4}
	}`)

	resp, err := tr.DecodeResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 10, resp.Usage.InputTokens)
	assert.Equal(t, 4, resp.Usage.OutputTokens)
	assert.Equal(t, 14, resp.Usage.TotalTokens)
}

func TestAnthropicEncodeResponseStopMapping(t *testing.T) {
	tr, _ := Get(schema.FormatAnthropicMessages)

	encoded, err := tr.EncodeResponse(&schema.ChatResponse{
		Model:      "claude-3-5-sonnet-20241022",
		Content:    "done",
		StopReason: "length",
	})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(encoded, &obj))
	assert.Equal(t, "max_tokens", obj["stop_reason"])
	assert.Equal(t, "message", obj["type"])
}

func TestAnthropicDecodeChunkEvents(t *testing.T) {
	tr, _ := Get(schema.FormatAnthropicMessages)

	chunk, ok, err := tr.DecodeChunk(`data: {"type":"message_start","message":{"id":"msg_01","model":"claude-3-5-sonnet-20241022","usage":{"input_tokens":12}}}`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "msg_01", chunk.ID)
	assert.Equal(t, 12, chunk.Usage.InputTokens)

	chunk, ok, err = tr.DecodeChunk(`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hi", chunk.Delta)

	chunk, ok, err = tr.DecodeChunk(`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":9}}`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "stop", chunk.StopReason)
	assert.Equal(t, 9, chunk.Usage.OutputTokens)

	_, ok, err = tr.DecodeChunk(`event: content_block_delta`)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = tr.DecodeChunk(`data: {"type":"ping"}`)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnthropicStreamEncoderFraming(t *testing.T) {
	tr, _ := Get(schema.FormatAnthropicMessages)
	enc := tr.NewStreamEncoder("msg_7", "claude-3-5-sonnet-20241022")

	start := enc.Start()
	require.Len(t, start, 2)
	assert.Contains(t, string(start[0]), "event: message_start")
	assert.Contains(t, string(start[1]), "event: content_block_start")

	frames := enc.Chunk(&schema.StreamChunk{Delta: "Hi"})
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), `"text_delta"`)

	end := enc.End("stop", &schema.Usage{OutputTokens: 5})
	require.Len(t, end, 3)
	assert.Contains(t, string(end[1]), `"end_turn"`)
	assert.Contains(t, string(end[2]), "event: message_stop")
}

func TestAnthropicAuthHeaders(t *testing.T) {
	tr, _ := Get(schema.FormatAnthropicMessages)

	headers := tr.AuthHeaders(domain.ProviderConfig{Kind: domain.KindAnthropic, APIKey: "sk-ant-test"})
	assert.Equal(t, "sk-ant-test", headers["x-api-key"])
	assert.Equal(t, "2023-06-01", headers["anthropic-version"])
	assert.NotContains(t, headers, "Authorization")
}

func TestAnthropicErrorEnvelope(t *testing.T) {
	tr, _ := Get(schema.FormatAnthropicMessages)

	msg, ok := tr.DecodeError([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	require.True(t, ok)
	assert.Equal(t, "Overloaded", msg)

	body := tr.EncodeError(422, "cannot map tool calls")
	var obj map[string]any
	require.NoError(t, json.Unmarshal(body, &obj))
	assert.Equal(t, "error", obj["type"])
}

func TestForProviderFamilySelection(t *testing.T) {
	assert.Equal(t, schema.FormatAnthropicMessages, ForProvider(domain.KindAnthropic).Format())
	assert.Equal(t, schema.FormatOpenAIChat, ForProvider(domain.KindDeepSeek).Format())
	assert.Equal(t, schema.FormatOpenAIChat, ForProvider(domain.KindOllama).Format())
}
