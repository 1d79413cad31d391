package translate

import (
	"fmt"
	"sync"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/pkg/schema"
)

// Translator maps between the canonical chat representation and one wire
// family. Implementations are stateless and safe for concurrent use.
type Translator interface {
	Format() schema.WireFormat

	// Inbound surface and outbound encoding. Lossless round trip: known
	// fields survive by value, passthrough fields byte-for-byte.
	DecodeRequest(body []byte) (*schema.ChatRequest, error)
	EncodeRequest(req *schema.ChatRequest) ([]byte, error)
	DecodeResponse(body []byte) (*schema.ChatResponse, error)
	EncodeResponse(resp *schema.ChatResponse) ([]byte, error)

	// DecodeChunk parses one SSE line of a streamed body. ok is false for
	// framing lines that carry no canonical content.
	DecodeChunk(line string) (chunk *schema.StreamChunk, ok bool, err error)

	// NewStreamEncoder produces the family's SSE framing for serving a
	// stream back to the client.
	NewStreamEncoder(id, model string) StreamEncoder

	// DecodeError extracts the human message from the family's error
	// envelope; ok is false when the body is not a recognizable envelope.
	DecodeError(body []byte) (message string, ok bool)
	// EncodeError renders a domain failure in the family's error envelope.
	EncodeError(status int, message string) []byte

	ChatPath() string
	ModelsPath() string
	AuthHeaders(cfg domain.ProviderConfig) map[string]string
}

// StreamEncoder emits complete SSE frames (terminated with a blank line) for
// one streamed response in a specific wire family.
type StreamEncoder interface {
	// Start returns the frames that open a stream, sent before any delta.
	Start() [][]byte
	// Chunk renders one canonical delta.
	Chunk(c *schema.StreamChunk) [][]byte
	// End returns the closing frames.
	End(stopReason string, usage *schema.Usage) [][]byte
}

var (
	mu          sync.RWMutex
	translators = make(map[schema.WireFormat]Translator)
)

// Register makes a wire family available. Called from init().
func Register(t Translator) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := translators[t.Format()]; exists {
		panic(fmt.Sprintf("translator %s already registered", t.Format()))
	}
	translators[t.Format()] = t
}

// Get retrieves the translator for a wire format.
func Get(format schema.WireFormat) (Translator, error) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := translators[format]
	if !ok {
		return nil, &domain.TranslationError{Format: string(format), Reason: "unknown wire format"}
	}
	return t, nil
}

// ForProvider returns the translator a backend speaks. Anthropic is the only
// messages-family backend; everything else in the catalog is
// OpenAI-compatible.
func ForProvider(kind domain.ProviderKind) Translator {
	format := schema.FormatOpenAIChat
	if kind == domain.KindAnthropic {
		format = schema.FormatAnthropicMessages
	}
	t, err := Get(format)
	if err != nil {
		panic(err) // both families register at init
	}
	return t
}
