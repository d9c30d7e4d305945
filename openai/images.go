package openai

import (
	"context"
	"net/http"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/httpclient"
	"github.com/kbukum/openaikit/validation"
)

// Image sizes accepted by the image endpoints.
const (
	ImageSize256       = "256x256"
	ImageSize512       = "512x512"
	ImageSize1024      = "1024x1024"
	ImageSize1792x1024 = "1792x1024"
	ImageSize1024x1792 = "1024x1792"
)

// Image response formats.
const (
	ImageFormatURL     = "url"
	ImageFormatB64JSON = "b64_json"
)

// ImageRequest is the body of POST /images/generations.
type ImageRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	N              *int   `json:"n,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Size           string `json:"size,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	User           string `json:"user,omitempty"`
}

// ImageEditRequest is the multipart body of POST /images/edits.
type ImageEditRequest struct {
	Image          httpclient.Input
	Prompt         string
	Mask           *httpclient.Input
	Model          *string
	N              *int
	Size           *string
	ResponseFormat *string
	User           *string
}

// Form lays out the parts as image, prompt, mask, then the optional fields.
func (r *ImageEditRequest) Form() httpclient.FormPayload {
	return httpclient.NewForm().
		File("image", r.Image).
		Text("prompt", r.Prompt).
		OptFile("mask", r.Mask).
		OptText("model", r.Model).
		OptInt("n", r.N).
		OptText("size", r.Size).
		OptText("response_format", r.ResponseFormat).
		OptText("user", r.User).
		Payload()
}

// ImageVariationRequest is the multipart body of POST /images/variations.
type ImageVariationRequest struct {
	Image          httpclient.Input
	Model          *string
	N              *int
	Size           *string
	ResponseFormat *string
	User           *string
}

// Form lays out the parts as image, then the optional fields.
func (r *ImageVariationRequest) Form() httpclient.FormPayload {
	return httpclient.NewForm().
		File("image", r.Image).
		OptText("model", r.Model).
		OptInt("n", r.N).
		OptText("size", r.Size).
		OptText("response_format", r.ResponseFormat).
		OptText("user", r.User).
		Payload()
}

// ImageResponse lists generated images.
type ImageResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}

// ImageData is one image as a URL or base64 payload.
type ImageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// Images groups the image endpoints.
type Images struct {
	c *Client
}

// Create generates images from a prompt.
func (im *Images) Create(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	err := validation.NewWithKind(errors.KindInvalidArgument).
		Required("prompt", req.Prompt).
		Min("n", req.N, 1).
		OneOf("response_format", req.ResponseFormat, []string{ImageFormatURL, ImageFormatB64JSON}).
		Err()
	if err != nil {
		return nil, err
	}
	return doJSON[ImageResponse](ctx, im.c, endpoint{
		operation: "images.create",
		method:    http.MethodPost,
		path:      "/images/generations",
		model:     req.Model,
	}, req)
}

// Edit modifies an image according to a prompt.
func (im *Images) Edit(ctx context.Context, req ImageEditRequest) (*ImageResponse, error) {
	err := validation.NewWithKind(errors.KindInvalidArgument).
		Custom(req.Image.Source != nil, "image", "is required").
		Required("prompt", req.Prompt).
		Min("n", req.N, 1).
		Err()
	if err != nil {
		return nil, err
	}
	return doForm[ImageResponse](ctx, im.c, endpoint{
		operation: "images.edit",
		method:    http.MethodPost,
		path:      "/images/edits",
		model:     deref(req.Model),
	}, req.Form())
}

// Variation creates variations of an image.
func (im *Images) Variation(ctx context.Context, req ImageVariationRequest) (*ImageResponse, error) {
	err := validation.NewWithKind(errors.KindInvalidArgument).
		Custom(req.Image.Source != nil, "image", "is required").
		Min("n", req.N, 1).
		Err()
	if err != nil {
		return nil, err
	}
	return doForm[ImageResponse](ctx, im.c, endpoint{
		operation: "images.variation",
		method:    http.MethodPost,
		path:      "/images/variations",
		model:     deref(req.Model),
	}, req.Form())
}
