package schema

import (
	"encoding/json"
	"fmt"
)

// WireFormat identifies the external JSON shape of an API family.
type WireFormat string

const (
	FormatAnthropicMessages WireFormat = "anthropic-messages"
	FormatOpenAIChat        WireFormat = "openai-chat"
)

type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
)

// ChatMessage is one role-tagged turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// ChatRequest is the protocol-agnostic representation both wire formats
// translate to and from. Unrecognized fields are captured into Extra and
// forwarded to the backend untouched, so provider-specific parameters
// survive the round trip.
type ChatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`

	// Capability is a routing hint (coding, reasoning, creative, fast).
	// It is a gateway extension and is stripped before forwarding upstream.
	Capability string `json:"capability,omitempty"`

	// Extra holds passthrough fields, keyed by their original JSON name.
	Extra map[string]json.RawMessage `json:"-"`
}

// ChatResponse is the canonical non-streaming completion.
type ChatResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	Provider   string `json:"provider,omitempty"`
	Content    string `json:"content"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      *Usage `json:"usage,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Usage counts tokens in canonical (Anthropic-style) naming.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// StreamChunk is one canonical increment of a streamed completion.
type StreamChunk struct {
	ID         string `json:"id,omitempty"`
	Model      string `json:"model,omitempty"`
	Delta      string `json:"delta,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      *Usage `json:"usage,omitempty"`
}

// StreamResult carries either one chunk or a terminal error down a stream channel.
type StreamResult struct {
	Chunk *StreamChunk
	Err   error
}

// requestKnownFields are the canonical ChatRequest keys; everything else
// found in a wire payload belongs in Extra.
var requestKnownFields = map[string]struct{}{
	"model": {}, "messages": {}, "max_tokens": {}, "temperature": {},
	"stream": {}, "capability": {},
}

// SplitExtra separates unknown keys of a decoded JSON object from the known
// ones. Translators use it to populate the passthrough bag.
func SplitExtra(raw map[string]json.RawMessage, known map[string]struct{}) map[string]json.RawMessage {
	var extra map[string]json.RawMessage
	for k, v := range raw {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra
}

// KnownRequestFields exposes the canonical request key set to translators.
func KnownRequestFields() map[string]struct{} { return requestKnownFields }

// MergeExtra folds passthrough fields back into an encoded wire object.
// Known keys never collide: decode strips them before filling Extra.
func MergeExtra(obj map[string]json.RawMessage, extra map[string]json.RawMessage) {
	for k, v := range extra {
		if _, taken := obj[k]; taken {
			continue
		}
		obj[k] = v
	}
}

// Clone returns a shallow copy with its own Extra map, safe to mutate per attempt.
func (r *ChatRequest) Clone() *ChatRequest {
	cp := *r
	if r.Extra != nil {
		cp.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			cp.Extra[k] = v
		}
	}
	msgs := make([]ChatMessage, len(r.Messages))
	copy(msgs, r.Messages)
	cp.Messages = msgs
	return &cp
}

func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	return nil
}
