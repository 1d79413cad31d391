package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/gateway"
	"github.com/sorenhq/llmgate/internal/platform/logger"
	"github.com/sorenhq/llmgate/internal/server/validator"
	"github.com/sorenhq/llmgate/internal/translate"
	"github.com/sorenhq/llmgate/pkg/schema"
)

// ChatHandler serves both wire families over the same canonical path:
// decode in the caller's dialect, route and dispatch, encode the reply in
// the same dialect.
type ChatHandler struct {
	service  gateway.Service
	validate *validator.Validator
}

func NewChatHandler(service gateway.Service, v *validator.Validator) *ChatHandler {
	return &ChatHandler{service: service, validate: v}
}

// Messages handles POST /v1/messages (anthropic dialect).
func (h *ChatHandler) Messages(c *gin.Context) {
	h.handle(c, schema.FormatAnthropicMessages)
}

// Completions handles POST /v1/chat/completions (openai dialect).
func (h *ChatHandler) Completions(c *gin.Context) {
	h.handle(c, schema.FormatOpenAIChat)
}

func (h *ChatHandler) handle(c *gin.Context, format schema.WireFormat) {
	trans, err := translate.Get(format)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		replyError(c, trans, http.StatusBadRequest, "failed to read request body")
		return
	}

	req, err := trans.DecodeRequest(body)
	if err != nil {
		replyError(c, trans, domain.HTTPStatus(err), err.Error())
		return
	}

	if fields := h.validate.Check(req); fields != nil {
		replyError(c, trans, http.StatusBadRequest, validator.Flatten(fields))
		return
	}

	if req.Stream {
		h.stream(c, trans, req)
		return
	}

	resp, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		replyError(c, trans, domain.HTTPStatus(err), err.Error())
		return
	}

	out, err := trans.EncodeResponse(resp)
	if err != nil {
		replyError(c, trans, domain.HTTPStatus(err), err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json", out)
}

func (h *ChatHandler) stream(c *gin.Context, trans translate.Translator, req *schema.ChatRequest) {
	w := c.Writer

	var (
		enc        translate.StreamEncoder
		started    bool
		stopReason string
		usage      *schema.Usage
	)

	writeFrames := func(frames [][]byte) error {
		for _, f := range frames {
			if _, err := w.Write(f); err != nil {
				return err
			}
		}
		w.Flush()
		return nil
	}

	err := h.service.ChatStream(c.Request.Context(), req, func(chunk *schema.StreamChunk) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)

			model := chunk.Model
			if model == "" {
				model = req.Model
			}
			enc = trans.NewStreamEncoder(chunk.ID, model)
			started = true
			if err := writeFrames(enc.Start()); err != nil {
				return err
			}
		}

		if chunk.StopReason != "" {
			stopReason = chunk.StopReason
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if chunk.Delta == "" {
			return nil
		}
		return writeFrames(enc.Chunk(chunk))
	})

	if err != nil {
		if !started {
			replyError(c, trans, domain.HTTPStatus(err), err.Error())
			return
		}
		// Frames are already on the wire; the only honest signal left is
		// dropping the connection short of its closing frames.
		logger.Warn("stream ended abnormally", zap.Error(err))
		c.Abort()
		return
	}

	if !started {
		enc = trans.NewStreamEncoder("", req.Model)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		if writeFrames(enc.Start()) != nil {
			return
		}
	}
	_ = writeFrames(enc.End(stopReason, usage))
}

// replyError renders a failure in the caller's own error envelope.
func replyError(c *gin.Context, trans translate.Translator, status int, message string) {
	c.Data(status, "application/json", trans.EncodeError(status, message))
	c.Abort()
}
