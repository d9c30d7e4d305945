package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/validation"
)

const maxListLimit = 100

// Epochs is the n_epochs hyperparameter: either "auto" or a positive count.
// The zero value is auto.
type Epochs struct {
	Count int
}

// AutoEpochs lets the service pick the number of epochs.
func AutoEpochs() *Epochs { return &Epochs{} }

// EpochCount trains for exactly n epochs.
func EpochCount(n int) *Epochs { return &Epochs{Count: n} }

// IsAuto reports whether the service picks the count.
func (e Epochs) IsAuto() bool { return e.Count == 0 }

// MarshalJSON encodes "auto" or the count.
func (e Epochs) MarshalJSON() ([]byte, error) {
	if e.IsAuto() {
		return []byte(`"auto"`), nil
	}
	return []byte(strconv.Itoa(e.Count)), nil
}

// UnmarshalJSON accepts "auto" or an integer.
func (e *Epochs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`"auto"`)) || bytes.Equal(data, []byte("null")) {
		e.Count = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("n_epochs: want \"auto\" or an integer, got %s", data)
	}
	e.Count = n
	return nil
}

// Hyperparameters tune a fine-tuning job.
type Hyperparameters struct {
	NEpochs *Epochs `json:"n_epochs,omitempty"`
}

// FineTuningJobRequest is the body of POST /fine_tuning/jobs.
type FineTuningJobRequest struct {
	Model           string           `json:"model"`
	TrainingFile    string           `json:"training_file"`
	ValidationFile  *string          `json:"validation_file,omitempty"`
	Hyperparameters *Hyperparameters `json:"hyperparameters,omitempty"`
	Suffix          *string          `json:"suffix,omitempty"`
}

// FineTuningJobError explains why a job failed.
type FineTuningJobError struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Param   *string `json:"param,omitempty"`
}

// FineTuningJob describes a fine-tuning job.
type FineTuningJob struct {
	ID              string              `json:"id"`
	Object          string              `json:"object"`
	CreatedAt       int64               `json:"created_at"`
	FinishedAt      *int64              `json:"finished_at,omitempty"`
	Model           string              `json:"model"`
	FineTunedModel  *string             `json:"fine_tuned_model,omitempty"`
	OrganizationID  string              `json:"organization_id"`
	Status          string              `json:"status"`
	Hyperparameters Hyperparameters     `json:"hyperparameters"`
	TrainingFile    string              `json:"training_file"`
	ValidationFile  *string             `json:"validation_file,omitempty"`
	ResultFiles     []string            `json:"result_files"`
	TrainedTokens   *int64              `json:"trained_tokens,omitempty"`
	Error           *FineTuningJobError `json:"error,omitempty"`
}

// FineTuningJobList is one page of GET /fine_tuning/jobs.
type FineTuningJobList struct {
	Object  string          `json:"object"`
	Data    []FineTuningJob `json:"data"`
	HasMore bool            `json:"has_more"`
}

// FineTuningJobEvent is one entry of a job's event log.
type FineTuningJobEvent struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	CreatedAt int64  `json:"created_at"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// FineTuningJobEventList is one page of a job's events.
type FineTuningJobEventList struct {
	Object  string               `json:"object"`
	Data    []FineTuningJobEvent `json:"data"`
	HasMore bool                 `json:"has_more"`
}

// ListParams pages through a list endpoint. After is the last id of the
// previous page.
type ListParams struct {
	After string
	Limit *int
}

func (p ListParams) validate() error {
	v := validation.NewWithKind(errors.KindInvalidArgument).Min("limit", p.Limit, 1)
	if p.Limit != nil {
		v.Custom(*p.Limit <= maxListLimit, "limit", fmt.Sprintf("must be at most %d", maxListLimit))
	}
	return v.Err()
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	if p.After != "" {
		q.Set("after", p.After)
	}
	if p.Limit != nil {
		q.Set("limit", strconv.Itoa(*p.Limit))
	}
	return q
}

// FineTuning groups the fine-tuning job endpoints.
type FineTuning struct {
	c *Client
}

// Create starts a fine-tuning job.
func (f *FineTuning) Create(ctx context.Context, req FineTuningJobRequest) (*FineTuningJob, error) {
	v := validation.NewWithKind(errors.KindInvalidArgument).
		Required("model", req.Model).
		Required("training_file", req.TrainingFile)
	if hp := req.Hyperparameters; hp != nil && hp.NEpochs != nil {
		v.Custom(hp.NEpochs.Count >= 0, "hyperparameters.n_epochs", "must be auto or positive")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return doJSON[FineTuningJob](ctx, f.c, endpoint{
		operation: "fine_tuning.create",
		method:    http.MethodPost,
		path:      "/fine_tuning/jobs",
		model:     req.Model,
	}, req)
}

// List returns one page of the organization's jobs.
func (f *FineTuning) List(ctx context.Context, params ListParams) (*FineTuningJobList, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return doJSON[FineTuningJobList](ctx, f.c, endpoint{
		operation: "fine_tuning.list",
		method:    http.MethodGet,
		path:      "/fine_tuning/jobs",
		query:     params.query(),
	}, nil)
}

// Retrieve returns one job.
func (f *FineTuning) Retrieve(ctx context.Context, id string) (*FineTuningJob, error) {
	ep, err := jobEndpoint("fine_tuning.retrieve", http.MethodGet, id, "")
	if err != nil {
		return nil, err
	}
	return doJSON[FineTuningJob](ctx, f.c, ep, nil)
}

// Cancel stops a running job.
func (f *FineTuning) Cancel(ctx context.Context, id string) (*FineTuningJob, error) {
	ep, err := jobEndpoint("fine_tuning.cancel", http.MethodPost, id, "/cancel")
	if err != nil {
		return nil, err
	}
	return doJSON[FineTuningJob](ctx, f.c, ep, nil)
}

// ListEvents returns one page of a job's status updates.
func (f *FineTuning) ListEvents(ctx context.Context, id string, params ListParams) (*FineTuningJobEventList, error) {
	ep, err := jobEndpoint("fine_tuning.events", http.MethodGet, id, "/events")
	if err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	ep.query = params.query()
	return doJSON[FineTuningJobEventList](ctx, f.c, ep, nil)
}

func jobEndpoint(operation, method, id, suffix string) (endpoint, error) {
	if id == "" {
		return endpoint{}, errors.InvalidArgument("fine-tuning job id is required")
	}
	return endpoint{
		operation: operation,
		method:    method,
		path:      "/fine_tuning/jobs/" + url.PathEscape(id) + suffix,
	}, nil
}
