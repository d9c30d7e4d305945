package openai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/httpclient/sse"
	"github.com/kbukum/openaikit/validation"
)

// CompletionRequest is the body of POST /completions. Prompt is a string,
// a []string or token arrays.
type CompletionRequest struct {
	Model            string         `json:"model"`
	Prompt           any            `json:"prompt,omitempty"`
	Suffix           string         `json:"suffix,omitempty"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	N                *int           `json:"n,omitempty"`
	Stream           bool           `json:"stream,omitempty"`
	Logprobs         *int           `json:"logprobs,omitempty"`
	Echo             bool           `json:"echo,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	BestOf           *int           `json:"best_of,omitempty"`
	LogitBias        map[string]int `json:"logit_bias,omitempty"`
	User             string         `json:"user,omitempty"`
	Seed             *int           `json:"seed,omitempty"`
}

// CompletionResponse is both the full response and the streamed chunk.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

// CompletionChoice is one generated text.
type CompletionChoice struct {
	Text         string          `json:"text"`
	Index        int             `json:"index"`
	Logprobs     json.RawMessage `json:"logprobs,omitempty"`
	FinishReason string          `json:"finish_reason"`
}

// CompletionStream yields completion chunks.
type CompletionStream = sse.Stream[CompletionResponse]

// Completions groups the legacy text completion endpoints.
type Completions struct {
	c *Client
}

func (req *CompletionRequest) validate() error {
	return validation.NewWithKind(errors.KindInvalidArgument).
		Required("model", req.Model).
		FloatRange("temperature", req.Temperature, 0, 2).
		FloatRange("top_p", req.TopP, 0, 1).
		Min("n", req.N, 1).
		Min("best_of", req.BestOf, 1).
		Err()
}

// Create sends a non-streaming completion request.
func (co *Completions) Create(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if req.Stream {
		return nil, errors.InvalidArgument("stream is true; use CreateStream for streaming completions")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return doJSON[CompletionResponse](ctx, co.c, endpoint{
		operation: "completions.create",
		method:    http.MethodPost,
		path:      "/completions",
		model:     req.Model,
	}, req)
}

// CreateStream sends the request with stream forced on.
func (co *Completions) CreateStream(ctx context.Context, req CompletionRequest) (*CompletionStream, error) {
	req.Stream = true
	if err := req.validate(); err != nil {
		return nil, err
	}
	return openStream[CompletionResponse](ctx, co.c, endpoint{
		operation: "completions.stream",
		method:    http.MethodPost,
		path:      "/completions",
		model:     req.Model,
	}, req)
}
