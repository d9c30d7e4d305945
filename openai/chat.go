package openai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/httpclient/sse"
	"github.com/kbukum/openaikit/validation"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleFunction  Role = "function"
)

// ChatMessage is one message of a conversation.
type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names a function and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Tool declares a function the model may call.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a callable function; Parameters is a JSON schema.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ResponseFormat selects plain text or JSON output.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatCompletionRequest is the body of POST /chat/completions.
type ChatCompletionRequest struct {
	Model            string          `json:"model"`
	Messages         []ChatMessage   `json:"messages"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	N                *int            `json:"n,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]int  `json:"logit_bias,omitempty"`
	User             string          `json:"user,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	Tools            []Tool          `json:"tools,omitempty"`
	ToolChoice       any             `json:"tool_choice,omitempty"`
	ResponseFormat   *ResponseFormat `json:"response_format,omitempty"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is a complete chat response.
type ChatCompletionResponse struct {
	ID                string       `json:"id"`
	Object            string       `json:"object"`
	Created           int64        `json:"created"`
	Model             string       `json:"model"`
	SystemFingerprint string       `json:"system_fingerprint,omitempty"`
	Choices           []ChatChoice `json:"choices"`
	Usage             *Usage       `json:"usage,omitempty"`
}

// ChatChoice is one generated alternative.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletionChunk is one streamed piece of a chat response. Choices may
// be empty; Azure sends such a chunk first.
type ChatCompletionChunk struct {
	ID                string            `json:"id"`
	Object            string            `json:"object"`
	Created           int64             `json:"created"`
	Model             string            `json:"model"`
	SystemFingerprint string            `json:"system_fingerprint,omitempty"`
	Choices           []ChatChunkChoice `json:"choices"`
	Usage             *Usage            `json:"usage,omitempty"`
}

// ChatChunkChoice carries the delta for one alternative.
type ChatChunkChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

// ChatDelta is the incremental message content.
type ChatDelta struct {
	Role      Role       `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ChatStream yields chat completion chunks.
type ChatStream = sse.Stream[ChatCompletionChunk]

// Chat groups the chat completion endpoints.
type Chat struct {
	c *Client
}

func (req *ChatCompletionRequest) validate() error {
	return validation.NewWithKind(errors.KindInvalidArgument).
		Required("model", req.Model).
		Custom(len(req.Messages) > 0, "messages", "must not be empty").
		FloatRange("temperature", req.Temperature, 0, 2).
		FloatRange("top_p", req.TopP, 0, 1).
		Min("n", req.N, 1).
		FloatRange("presence_penalty", req.PresencePenalty, -2, 2).
		FloatRange("frequency_penalty", req.FrequencyPenalty, -2, 2).
		Err()
}

// Create sends a non-streaming chat request. A request with Stream set is
// rejected; use CreateStream.
func (ch *Chat) Create(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if req.Stream {
		return nil, errors.InvalidArgument("stream is true; use CreateStream for streaming chat completions")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return doJSON[ChatCompletionResponse](ctx, ch.c, endpoint{
		operation: "chat.create",
		method:    http.MethodPost,
		path:      "/chat/completions",
		model:     req.Model,
	}, req)
}

// CreateStream sends the request with stream forced on. The caller must
// drain or Close the returned stream.
func (ch *Chat) CreateStream(ctx context.Context, req ChatCompletionRequest) (*ChatStream, error) {
	req.Stream = true
	if err := req.validate(); err != nil {
		return nil, err
	}
	return openStream[ChatCompletionChunk](ctx, ch.c, endpoint{
		operation: "chat.stream",
		method:    http.MethodPost,
		path:      "/chat/completions",
		model:     req.Model,
	}, req)
}
