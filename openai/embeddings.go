package openai

import (
	"context"
	"net/http"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/validation"
)

// EmbeddingRequest is the body of POST /embeddings. Input is a string,
// a []string or token arrays.
type EmbeddingRequest struct {
	Model          string `json:"model"`
	Input          any    `json:"input"`
	EncodingFormat string `json:"encoding_format,omitempty"`
	Dimensions     *int   `json:"dimensions,omitempty"`
	User           string `json:"user,omitempty"`
}

// EmbeddingResponse holds one vector per input.
type EmbeddingResponse struct {
	Object string      `json:"object"`
	Data   []Embedding `json:"data"`
	Model  string      `json:"model"`
	Usage  *Usage      `json:"usage,omitempty"`
}

// Embedding is one vector.
type Embedding struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// Embeddings groups the embedding endpoint.
type Embeddings struct {
	c *Client
}

// Create computes embeddings.
func (e *Embeddings) Create(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	err := validation.NewWithKind(errors.KindInvalidArgument).
		Required("model", req.Model).
		Custom(req.Input != nil, "input", "is required").
		Min("dimensions", req.Dimensions, 1).
		Err()
	if err != nil {
		return nil, err
	}
	return doJSON[EmbeddingResponse](ctx, e.c, endpoint{
		operation: "embeddings.create",
		method:    http.MethodPost,
		path:      "/embeddings",
		model:     req.Model,
	}, req)
}
