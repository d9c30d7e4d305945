package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kbukum/openaikit/errors"
)

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method (GET, POST, DELETE).
	Method string
	// URL is the absolute request URL without query parameters.
	URL string
	// Query are URL query parameters.
	Query url.Values
	// Headers are request-specific headers (merged over transport defaults).
	Headers http.Header
	// Body is the request payload. Nil sends no body.
	Body Payload
}

// Prepared is a fully encoded request that can be sent repeatedly.
type Prepared struct {
	method      string
	url         string
	header      http.Header
	body        []byte
	contentType string
}

// Prepare validates and encodes req. File sources are read here, so a
// missing file fails before any network activity.
func Prepare(req Request) (*Prepared, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("invalid request URL %q", req.URL)).WithCause(err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Configuration(fmt.Sprintf("request URL %q must be absolute", req.URL))
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			q[k] = append([]string(nil), vs...)
		}
		u.RawQuery = q.Encode()
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	return &Prepared{
		method:      method,
		url:         u.String(),
		header:      req.Headers.Clone(),
		body:        body,
		contentType: contentType,
	}, nil
}

// Method returns the HTTP method.
func (p *Prepared) Method() string { return p.method }

// URL returns the final URL including query parameters.
func (p *Prepared) URL() string { return p.url }

// Header returns a copy of the request-specific headers.
func (p *Prepared) Header() http.Header { return p.header.Clone() }

// Body returns the encoded body bytes.
func (p *Prepared) Body() []byte { return p.body }

// ContentType returns the body content type, or "" when there is no body.
func (p *Prepared) ContentType() string { return p.contentType }

// build creates a fresh *http.Request for one attempt.
func (p *Prepared) build(ctx context.Context, defaults map[string]string) (*http.Request, error) {
	var body io.Reader
	if p.body != nil {
		body = bytes.NewReader(p.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, p.method, p.url, body)
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("create request: %v", err)).WithCause(err)
	}

	// Apply default headers
	for k, v := range defaults {
		httpReq.Header.Set(k, v)
	}

	// Apply request-specific headers (override defaults)
	for k, vs := range p.header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	if p.contentType != "" {
		httpReq.Header.Set("Content-Type", p.contentType)
	}

	return httpReq, nil
}

// encodeBody converts a payload into bytes and a content type.
func encodeBody(body Payload) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case JSONPayload:
		data, err := json.Marshal(v.Value)
		if err != nil {
			return nil, "", errors.Serialization(err)
		}
		return data, "application/json", nil
	case FormPayload:
		return encodeForm(v)
	default:
		return nil, "", errors.Serialization(fmt.Errorf("unsupported payload %T", body))
	}
}

// Response is the result of a non-streaming HTTP request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers http.Header
	// Body is the raw response body.
	Body []byte
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
