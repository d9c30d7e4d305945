package openai

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kbukum/openaikit/errors"
)

// Model describes a model available to the account.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the response of GET /models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// DeletedObject is returned by the delete endpoints.
type DeletedObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// Models groups the model endpoints.
type Models struct {
	c *Client
}

// List returns the available models.
func (m *Models) List(ctx context.Context) (*ModelList, error) {
	return doJSON[ModelList](ctx, m.c, endpoint{
		operation: "models.list",
		method:    http.MethodGet,
		path:      "/models",
	}, nil)
}

// Retrieve returns one model.
func (m *Models) Retrieve(ctx context.Context, id string) (*Model, error) {
	if id == "" {
		return nil, errors.InvalidArgument("model id is required")
	}
	return doJSON[Model](ctx, m.c, endpoint{
		operation: "models.retrieve",
		method:    http.MethodGet,
		path:      "/models/" + url.PathEscape(id),
		model:     id,
	}, nil)
}

// Delete removes a fine-tuned model owned by the account.
func (m *Models) Delete(ctx context.Context, id string) (*DeletedObject, error) {
	if id == "" {
		return nil, errors.InvalidArgument("model id is required")
	}
	return doJSON[DeletedObject](ctx, m.c, endpoint{
		operation: "models.delete",
		method:    http.MethodDelete,
		path:      "/models/" + url.PathEscape(id),
		model:     id,
	}, nil)
}
