package openai

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/httpclient"
	"github.com/kbukum/openaikit/validation"
)

// FileRequest is the multipart body of POST /files.
type FileRequest struct {
	File    httpclient.Input
	Purpose string
}

// Form lays out the parts as file, purpose.
func (r *FileRequest) Form() httpclient.FormPayload {
	return httpclient.NewForm().
		File("file", r.File).
		Text("purpose", r.Purpose).
		Payload()
}

// File describes an uploaded file.
type File struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
	Status    string `json:"status,omitempty"`
}

// FileList is the response of GET /files.
type FileList struct {
	Object string `json:"object"`
	Data   []File `json:"data"`
}

// Files groups the file endpoints.
type Files struct {
	c *Client
}

// Create uploads a file.
func (f *Files) Create(ctx context.Context, req FileRequest) (*File, error) {
	err := validation.NewWithKind(errors.KindInvalidArgument).
		Custom(req.File.Source != nil, "file", "is required").
		Required("purpose", req.Purpose).
		Err()
	if err != nil {
		return nil, err
	}
	return doForm[File](ctx, f.c, endpoint{
		operation: "files.create",
		method:    http.MethodPost,
		path:      "/files",
	}, req.Form())
}

// List returns the files owned by the account.
func (f *Files) List(ctx context.Context) (*FileList, error) {
	return doJSON[FileList](ctx, f.c, endpoint{
		operation: "files.list",
		method:    http.MethodGet,
		path:      "/files",
	}, nil)
}

// Retrieve returns file metadata.
func (f *Files) Retrieve(ctx context.Context, id string) (*File, error) {
	ep, err := fileEndpoint("files.retrieve", http.MethodGet, id, "")
	if err != nil {
		return nil, err
	}
	return doJSON[File](ctx, f.c, ep, nil)
}

// Delete removes a file.
func (f *Files) Delete(ctx context.Context, id string) (*DeletedObject, error) {
	ep, err := fileEndpoint("files.delete", http.MethodDelete, id, "")
	if err != nil {
		return nil, err
	}
	return doJSON[DeletedObject](ctx, f.c, ep, nil)
}

// RetrieveContent returns the raw file bytes.
func (f *Files) RetrieveContent(ctx context.Context, id string) ([]byte, error) {
	ep, err := fileEndpoint("files.content", http.MethodGet, id, "/content")
	if err != nil {
		return nil, err
	}
	return f.c.doRaw(ctx, ep, nil)
}

func fileEndpoint(operation, method, id, suffix string) (endpoint, error) {
	if id == "" {
		return endpoint{}, errors.InvalidArgument("file id is required")
	}
	return endpoint{
		operation: operation,
		method:    method,
		path:      "/files/" + url.PathEscape(id) + suffix,
	}, nil
}
