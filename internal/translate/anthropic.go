package translate

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/pkg/schema"
)

const anthropicVersion = "2023-06-01"

func init() {
	Register(&anthropic{})
}

// anthropic implements the messages wire family: system prompt in a
// dedicated field, content as typed blocks, usage in input/output naming,
// streams framed as typed events.
type anthropic struct{}

func (a *anthropic) Format() schema.WireFormat { return schema.FormatAnthropicMessages }
func (a *anthropic) ChatPath() string          { return "/messages" }
func (a *anthropic) ModelsPath() string        { return "/models" }

func (a *anthropic) AuthHeaders(cfg domain.ProviderConfig) map[string]string {
	headers := map[string]string{"anthropic-version": anthropicVersion}
	if cfg.APIKey != "" {
		headers["x-api-key"] = cfg.APIKey
	}
	return headers
}

var anthropicRequestFields = map[string]struct{}{
	"model": {}, "messages": {}, "system": {}, "max_tokens": {},
	"temperature": {}, "stream": {}, "capability": {},
}

func (a *anthropic) DecodeRequest(body []byte) (*schema.ChatRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.TranslationError{Format: string(a.Format()), Reason: "malformed JSON body"}
	}

	var wire struct {
		Model       string          `json:"model"`
		Messages    []wireMessage   `json:"messages"`
		System      json.RawMessage `json:"system"`
		MaxTokens   int             `json:"max_tokens"`
		Temperature *float64        `json:"temperature"`
		Stream      bool            `json:"stream"`
		Capability  string          `json:"capability"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &domain.TranslationError{Format: string(a.Format()), Reason: err.Error()}
	}
	if len(wire.Messages) == 0 {
		return nil, &domain.TranslationError{Format: string(a.Format()), Reason: "messages is required"}
	}

	req := &schema.ChatRequest{
		Model:       wire.Model,
		MaxTokens:   wire.MaxTokens,
		Temperature: wire.Temperature,
		Stream:      wire.Stream,
		Capability:  wire.Capability,
		Extra:       schema.SplitExtra(raw, anthropicRequestFields),
	}

	// The dedicated system field becomes a leading system message.
	if len(wire.System) > 0 {
		text, err := flattenContent(wire.System)
		if err != nil {
			return nil, &domain.TranslationError{Format: string(a.Format()), Reason: "unsupported system content"}
		}
		if text != "" {
			req.Messages = append(req.Messages, schema.ChatMessage{Role: string(schema.System), Content: text})
		}
	}
	for _, m := range wire.Messages {
		text, err := flattenContent(m.Content)
		if err != nil {
			return nil, &domain.TranslationError{Format: string(a.Format()), Reason: "unsupported message content"}
		}
		req.Messages = append(req.Messages, schema.ChatMessage{Role: m.Role, Content: text})
	}
	return req, nil
}

func (a *anthropic) EncodeRequest(req *schema.ChatRequest) ([]byte, error) {
	if len(req.Messages) == 0 {
		return nil, &domain.TranslationError{Format: string(a.Format()), Reason: "messages is required"}
	}

	var system strings.Builder
	var turns []schema.ChatMessage
	for _, m := range req.Messages {
		if m.Role == string(schema.System) {
			if system.Len() > 0 {
				system.WriteString("\n")
			}
			system.WriteString(m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 {
		return nil, &domain.TranslationError{Format: string(a.Format()), Reason: "at least one non-system message is required"}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		// The messages API requires max_tokens.
		maxTokens = 4096
	}

	obj := map[string]any{
		"messages":   turns,
		"max_tokens": maxTokens,
	}
	if req.Model != "" {
		obj["model"] = req.Model
	}
	if system.Len() > 0 {
		obj["system"] = system.String()
	}
	if req.Temperature != nil {
		obj["temperature"] = *req.Temperature
	}
	if req.Stream {
		obj["stream"] = true
	}
	for k, v := range req.Extra {
		if _, taken := obj[k]; !taken {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}

var anthropicResponseFields = map[string]struct{}{
	"id": {}, "type": {}, "role": {}, "model": {}, "content": {},
	"stop_reason": {}, "stop_sequence": {}, "usage": {},
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (a *anthropic) DecodeResponse(body []byte) (*schema.ChatResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.TranslationError{Format: string(a.Format()), Reason: "malformed JSON response"}
	}

	var wire struct {
		ID         string          `json:"id"`
		Model      string          `json:"model"`
		Content    []contentPart   `json:"content"`
		StopReason string          `json:"stop_reason"`
		Usage      *anthropicUsage `json:"usage"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &domain.TranslationError{Format: string(a.Format()), Reason: err.Error()}
	}
	if len(wire.Content) == 0 {
		return nil, &domain.TranslationError{Format: string(a.Format()), Reason: "response has no content"}
	}

	var text strings.Builder
	for _, c := range wire.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}

	resp := &schema.ChatResponse{
		ID:         wire.ID,
		Model:      wire.Model,
		Content:    text.String(),
		StopReason: canonicalStop(wire.StopReason),
		Extra:      schema.SplitExtra(raw, anthropicResponseFields),
	}
	if wire.Usage != nil {
		resp.Usage = &schema.Usage{
			InputTokens:  wire.Usage.InputTokens,
			OutputTokens: wire.Usage.OutputTokens,
			TotalTokens:  wire.Usage.InputTokens + wire.Usage.OutputTokens,
		}
	}
	return resp, nil
}

func (a *anthropic) EncodeResponse(resp *schema.ChatResponse) ([]byte, error) {
	id := resp.ID
	if id == "" {
		id = "msg_" + uuid.NewString()
	}

	obj := map[string]any{
		"id":            id,
		"type":          "message",
		"role":          "assistant",
		"model":         resp.Model,
		"content":       []any{map[string]any{"type": "text", "text": resp.Content}},
		"stop_reason":   anthropicStop(resp.StopReason),
		"stop_sequence": nil,
	}
	if resp.Usage != nil {
		obj["usage"] = anthropicUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
	}
	for k, v := range resp.Extra {
		if _, taken := obj[k]; !taken {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}

// canonicalStop maps messages-family stop reasons onto the canonical
// (completions-style) vocabulary.
func canonicalStop(stop string) string {
	switch stop {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return stop
	}
}

func anthropicStop(stop string) string {
	switch stop {
	case "", "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return stop
	}
}

func (a *anthropic) DecodeChunk(line string) (*schema.StreamChunk, bool, error) {
	if !strings.HasPrefix(line, "data:") {
		// event: lines carry no payload of their own.
		return nil, false, nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "" {
		return nil, false, nil
	}

	var event struct {
		Type    string `json:"type"`
		Message *struct {
			ID    string          `json:"id"`
			Model string          `json:"model"`
			Usage *anthropicUsage `json:"usage"`
		} `json:"message"`
		Delta *struct {
			Type       string `json:"type"`
			Text       string `json:"text"`
			StopReason string `json:"stop_reason"`
		} `json:"delta"`
		Usage *anthropicUsage `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, false, nil
	}

	switch event.Type {
	case "message_start":
		if event.Message == nil {
			return nil, false, nil
		}
		chunk := &schema.StreamChunk{ID: event.Message.ID, Model: event.Message.Model}
		if event.Message.Usage != nil {
			chunk.Usage = &schema.Usage{InputTokens: event.Message.Usage.InputTokens}
		}
		return chunk, true, nil
	case "content_block_delta":
		if event.Delta == nil || event.Delta.Type != "text_delta" {
			return nil, false, nil
		}
		return &schema.StreamChunk{Delta: event.Delta.Text}, true, nil
	case "message_delta":
		chunk := &schema.StreamChunk{}
		if event.Delta != nil {
			chunk.StopReason = canonicalStop(event.Delta.StopReason)
		}
		if event.Usage != nil {
			chunk.Usage = &schema.Usage{OutputTokens: event.Usage.OutputTokens}
		}
		if chunk.StopReason == "" && chunk.Usage == nil {
			return nil, false, nil
		}
		return chunk, true, nil
	default:
		// ping, content_block_start, content_block_stop, message_stop
		return nil, false, nil
	}
}

type anthropicStreamEncoder struct {
	id    string
	model string
}

func (a *anthropic) NewStreamEncoder(id, model string) StreamEncoder {
	if id == "" {
		id = "msg_" + uuid.NewString()
	}
	return &anthropicStreamEncoder{id: id, model: model}
}

func sseEvent(event string, data []byte) []byte {
	frame := make([]byte, 0, len(event)+len(data)+16)
	frame = append(frame, "event: "...)
	frame = append(frame, event...)
	frame = append(frame, "\ndata: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	return frame
}

func (e *anthropicStreamEncoder) Start() [][]byte {
	start, _ := json.Marshal(map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":          e.id,
			"type":        "message",
			"role":        "assistant",
			"model":       e.model,
			"content":     []any{},
			"stop_reason": nil,
			"usage":       anthropicUsage{},
		},
	})
	blockStart, _ := json.Marshal(map[string]any{
		"type":          "content_block_start",
		"index":         0,
		"content_block": map[string]any{"type": "text", "text": ""},
	})
	return [][]byte{
		sseEvent("message_start", start),
		sseEvent("content_block_start", blockStart),
	}
}

func (e *anthropicStreamEncoder) Chunk(c *schema.StreamChunk) [][]byte {
	if c.Delta == "" {
		return nil
	}
	delta, _ := json.Marshal(map[string]any{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]any{"type": "text_delta", "text": c.Delta},
	})
	return [][]byte{sseEvent("content_block_delta", delta)}
}

func (e *anthropicStreamEncoder) End(stopReason string, usage *schema.Usage) [][]byte {
	blockStop, _ := json.Marshal(map[string]any{
		"type":  "content_block_stop",
		"index": 0,
	})
	deltaObj := map[string]any{
		"type":  "message_delta",
		"delta": map[string]any{"stop_reason": anthropicStop(stopReason), "stop_sequence": nil},
	}
	if usage != nil {
		deltaObj["usage"] = anthropicUsage{OutputTokens: usage.OutputTokens}
	}
	msgDelta, _ := json.Marshal(deltaObj)
	msgStop, _ := json.Marshal(map[string]any{"type": "message_stop"})
	return [][]byte{
		sseEvent("content_block_stop", blockStop),
		sseEvent("message_delta", msgDelta),
		sseEvent("message_stop", msgStop),
	}
}

func (a *anthropic) DecodeError(body []byte) (string, bool) {
	var envelope struct {
		Type  string `json:"type"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return "", false
	}
	return envelope.Error.Message, true
}

func (a *anthropic) EncodeError(status int, message string) []byte {
	errType := "api_error"
	switch status {
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		errType = "invalid_request_error"
	case http.StatusServiceUnavailable:
		errType = "overloaded_error"
	case http.StatusGatewayTimeout:
		errType = "timeout_error"
	}
	body, _ := json.Marshal(map[string]any{
		"type": "error",
		"error": map[string]any{
			"type":    errType,
			"message": message,
		},
	})
	return body
}
