package openai

import (
	"context"
	"net/http"

	"github.com/kbukum/openaikit/errors"
)

// ModerationRequest is the body of POST /moderations.
type ModerationRequest struct {
	Input any    `json:"input"`
	Model string `json:"model,omitempty"`
}

// ModerationResponse holds one result per input.
type ModerationResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Results []ModerationResult `json:"results"`
}

// ModerationResult flags a single input.
type ModerationResult struct {
	Flagged        bool               `json:"flagged"`
	Categories     map[string]bool    `json:"categories"`
	CategoryScores map[string]float64 `json:"category_scores"`
}

// Moderations groups the moderation endpoint.
type Moderations struct {
	c *Client
}

// Create classifies the input.
func (m *Moderations) Create(ctx context.Context, req ModerationRequest) (*ModerationResponse, error) {
	if req.Input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	return doJSON[ModerationResponse](ctx, m.c, endpoint{
		operation: "moderations.create",
		method:    http.MethodPost,
		path:      "/moderations",
		model:     req.Model,
	}, req)
}
