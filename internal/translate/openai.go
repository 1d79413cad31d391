package translate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/pkg/schema"
)

func init() {
	Register(&openAI{})
}

// openAI implements the chat-completions wire family. Every catalog backend
// except Anthropic speaks it.
type openAI struct{}

func (o *openAI) Format() schema.WireFormat { return schema.FormatOpenAIChat }
func (o *openAI) ChatPath() string          { return "/chat/completions" }
func (o *openAI) ModelsPath() string        { return "/models" }

func (o *openAI) AuthHeaders(cfg domain.ProviderConfig) map[string]string {
	headers := make(map[string]string)
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return headers
}

// wireMessage tolerates both string content and content-part arrays.
type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func flattenContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	if raw[0] == '[' {
		var parts []contentPart
		if err := json.Unmarshal(raw, &parts); err != nil {
			return "", err
		}
		var b strings.Builder
		for _, p := range parts {
			if p.Type == "text" {
				b.WriteString(p.Text)
			}
		}
		return b.String(), nil
	}
	return "", fmt.Errorf("unsupported content shape")
}

func (o *openAI) DecodeRequest(body []byte) (*schema.ChatRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.TranslationError{Format: string(o.Format()), Reason: "malformed JSON body"}
	}

	var wire struct {
		Model       string        `json:"model"`
		Messages    []wireMessage `json:"messages"`
		MaxTokens   int           `json:"max_tokens"`
		Temperature *float64      `json:"temperature"`
		Stream      bool          `json:"stream"`
		Capability  string        `json:"capability"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &domain.TranslationError{Format: string(o.Format()), Reason: err.Error()}
	}
	if len(wire.Messages) == 0 {
		return nil, &domain.TranslationError{Format: string(o.Format()), Reason: "messages is required"}
	}

	req := &schema.ChatRequest{
		Model:       wire.Model,
		MaxTokens:   wire.MaxTokens,
		Temperature: wire.Temperature,
		Stream:      wire.Stream,
		Capability:  wire.Capability,
		Extra:       schema.SplitExtra(raw, schema.KnownRequestFields()),
	}
	for _, m := range wire.Messages {
		text, err := flattenContent(m.Content)
		if err != nil {
			return nil, &domain.TranslationError{Format: string(o.Format()), Reason: "unsupported message content"}
		}
		req.Messages = append(req.Messages, schema.ChatMessage{Role: m.Role, Content: text})
	}
	return req, nil
}

func (o *openAI) EncodeRequest(req *schema.ChatRequest) ([]byte, error) {
	if len(req.Messages) == 0 {
		return nil, &domain.TranslationError{Format: string(o.Format()), Reason: "messages is required"}
	}

	obj := map[string]any{"messages": req.Messages}
	if req.Model != "" {
		obj["model"] = req.Model
	}
	if req.MaxTokens > 0 {
		obj["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		obj["temperature"] = *req.Temperature
	}
	if req.Stream {
		obj["stream"] = true
	}
	// Capability is a gateway-internal hint; it never goes upstream.
	for k, v := range req.Extra {
		if _, taken := obj[k]; !taken {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}

var openAIResponseFields = map[string]struct{}{
	"id": {}, "object": {}, "created": {}, "model": {}, "choices": {},
	"usage": {}, "system_fingerprint": {},
}

func (o *openAI) DecodeResponse(body []byte) (*schema.ChatResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.TranslationError{Format: string(o.Format()), Reason: "malformed JSON response"}
	}

	var wire struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Message      wireMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &domain.TranslationError{Format: string(o.Format()), Reason: err.Error()}
	}
	if len(wire.Choices) == 0 {
		return nil, &domain.TranslationError{Format: string(o.Format()), Reason: "response has no choices"}
	}

	content, err := flattenContent(wire.Choices[0].Message.Content)
	if err != nil {
		return nil, &domain.TranslationError{Format: string(o.Format()), Reason: "unsupported response content"}
	}

	resp := &schema.ChatResponse{
		ID:         wire.ID,
		Model:      wire.Model,
		Content:    content,
		StopReason: wire.Choices[0].FinishReason,
		Extra:      schema.SplitExtra(raw, openAIResponseFields),
	}
	if wire.Usage != nil {
		resp.Usage = &schema.Usage{
			InputTokens:  wire.Usage.PromptTokens,
			OutputTokens: wire.Usage.CompletionTokens,
			TotalTokens:  wire.Usage.TotalTokens,
		}
	}
	return resp, nil
}

func (o *openAI) EncodeResponse(resp *schema.ChatResponse) ([]byte, error) {
	id := resp.ID
	if id == "" {
		id = "chatcmpl-" + uuid.NewString()
	}

	message := map[string]any{"role": "assistant", "content": resp.Content}
	choice := map[string]any{
		"index":         0,
		"message":       message,
		"finish_reason": stopOrDefault(resp.StopReason),
	}
	obj := map[string]any{
		"id":      id,
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   resp.Model,
		"choices": []any{choice},
	}
	if resp.Usage != nil {
		obj["usage"] = map[string]any{
			"prompt_tokens":     resp.Usage.InputTokens,
			"completion_tokens": resp.Usage.OutputTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		}
	}
	for k, v := range resp.Extra {
		if _, taken := obj[k]; !taken {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}

func stopOrDefault(stop string) string {
	if stop == "" {
		return "stop"
	}
	return stop
}

func (o *openAI) DecodeChunk(line string) (*schema.StreamChunk, bool, error) {
	if !strings.HasPrefix(line, "data:") {
		return nil, false, nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "" || data == "[DONE]" {
		return nil, false, nil
	}

	var wire struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &wire); err != nil {
		// Providers occasionally interleave comments or keep-alives; skip.
		return nil, false, nil
	}

	chunk := &schema.StreamChunk{ID: wire.ID, Model: wire.Model}
	if len(wire.Choices) > 0 {
		chunk.Delta = wire.Choices[0].Delta.Content
		chunk.StopReason = wire.Choices[0].FinishReason
	}
	if wire.Usage != nil {
		chunk.Usage = &schema.Usage{
			InputTokens:  wire.Usage.PromptTokens,
			OutputTokens: wire.Usage.CompletionTokens,
			TotalTokens:  wire.Usage.TotalTokens,
		}
	}
	if chunk.Delta == "" && chunk.StopReason == "" && chunk.Usage == nil {
		return nil, false, nil
	}
	return chunk, true, nil
}

type openAIStreamEncoder struct {
	id      string
	model   string
	created int64
}

func (o *openAI) NewStreamEncoder(id, model string) StreamEncoder {
	if id == "" {
		id = "chatcmpl-" + uuid.NewString()
	}
	return &openAIStreamEncoder{id: id, model: model, created: time.Now().Unix()}
}

func (e *openAIStreamEncoder) frame(delta map[string]any, finish any) []byte {
	obj := map[string]any{
		"id":      e.id,
		"object":  "chat.completion.chunk",
		"created": e.created,
		"model":   e.model,
		"choices": []any{map[string]any{
			"index":         0,
			"delta":         delta,
			"finish_reason": finish,
		}},
	}
	data, _ := json.Marshal(obj)
	return sseData(data)
}

func (e *openAIStreamEncoder) Start() [][]byte {
	return [][]byte{e.frame(map[string]any{"role": "assistant"}, nil)}
}

func (e *openAIStreamEncoder) Chunk(c *schema.StreamChunk) [][]byte {
	if c.Delta == "" {
		return nil
	}
	return [][]byte{e.frame(map[string]any{"content": c.Delta}, nil)}
}

func (e *openAIStreamEncoder) End(stopReason string, usage *schema.Usage) [][]byte {
	finish := e.frame(map[string]any{}, stopOrDefault(stopReason))
	return [][]byte{finish, []byte("data: [DONE]\n\n")}
}

func (o *openAI) DecodeError(body []byte) (string, bool) {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return "", false
	}
	return envelope.Error.Message, true
}

func (o *openAI) EncodeError(status int, message string) []byte {
	errType := "api_error"
	switch {
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		errType = "invalid_request_error"
	case status == http.StatusServiceUnavailable:
		errType = "overloaded_error"
	}
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
			"code":    nil,
		},
	})
	return body
}

// sseData wraps one JSON payload in server-sent-event framing.
func sseData(data []byte) []byte {
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	return frame
}
