// Package openaitest runs an in-process fake of the OpenAI HTTP API for
// client tests. It records every request, serves canned JSON and SSE
// responses and can be scripted to fail.
//
//	srv := openaitest.NewServer(t, openaitest.WithAPIKey("sk-test"))
//	cfg := openai.NewOpenAIConfig(openai.WithAPIBase(srv.BaseURL()), openai.WithAPIKey("sk-test"))
//
// Azure-style paths (/openai/deployments/<id>/...) are served by the same
// handlers; use srv.URL as the Azure api base.
package openaitest

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	// Parts holds multipart fields in wire order.
	Parts []Part
}

// Part is one recorded multipart field.
type Part struct {
	Name     string
	Filename string
	Value    []byte
}

// Failure is a scripted response returned instead of the real handler.
type Failure struct {
	Status int
	Body   string
}

// Server is the fake API. It is closed automatically when the test ends.
type Server struct {
	*httptest.Server

	engine *gin.Engine
	apiKey string

	mu       sync.Mutex
	requests []Request
	failures map[string][]Failure
	streams  map[string][]string
	files    map[string]fileRecord
	nextFile int
	jobs     []gin.H
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey makes the server reject requests that do not carry key as a
// bearer token or api-key header.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// NewServer starts a fake API server.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		engine:   gin.New(),
		failures: make(map[string][]Failure),
		streams:  make(map[string][]string),
		files:    make(map[string]fileRecord),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery(), s.record, s.scripted, s.authenticate)
	s.routes(s.engine.Group("/v1"))
	s.routes(s.engine.Group("/openai/deployments/:deployment"))

	s.Server = httptest.NewServer(s.engine)
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the OpenAI-style api base, e.g. http://127.0.0.1:1234/v1.
func (s *Server) BaseURL() string {
	return s.URL + "/v1"
}

// Engine exposes the gin engine for custom routes.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// FailNext queues a failure for the next request to method and path. Paths
// are matched on their suffix, so "/chat/completions" matches both the
// OpenAI and the Azure route.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], Failure{Status: status, Body: body})
}

// SetStream replaces the SSE data lines sent for a streaming request to
// path. Each entry is written as "data: <entry>" followed by a blank line;
// entries starting with ":" or "event:" are written verbatim.
func (s *Server) SetStream(path string, events []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[path] = events
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// RequestCount returns how many requests reached the server.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	req := Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
		Header: c.Request.Header.Clone(),
		Body:   body,
	}
	if parts, err := readParts(c.GetHeader("Content-Type"), body); err == nil {
		req.Parts = parts
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	c.Next()
}

func (s *Server) scripted(c *gin.Context) {
	s.mu.Lock()
	var (
		failure Failure
		found   bool
	)
	for key, queue := range s.failures {
		method, path, _ := strings.Cut(key, " ")
		if method == c.Request.Method && strings.HasSuffix(c.Request.URL.Path, path) && len(queue) > 0 {
			failure, found = queue[0], true
			s.failures[key] = queue[1:]
			break
		}
	}
	s.mu.Unlock()

	if found {
		c.Data(failure.Status, "application/json", []byte(failure.Body))
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	if s.apiKey == "" {
		c.Next()
		return
	}
	if c.GetHeader("Authorization") == "Bearer "+s.apiKey || c.GetHeader("api-key") == s.apiKey {
		c.Next()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(
		"invalid key", "invalid_request_error", "invalid_api_key",
	))
}

// readParts parses a multipart body preserving part order.
func readParts(contentType string, body []byte) ([]Part, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return nil, fmt.Errorf("not multipart: %q", contentType)
	}
	r := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	var parts []Part
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return nil, err
		}
		value, err := io.ReadAll(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Part{Name: p.FormName(), Filename: p.FileName(), Value: value})
	}
}

// FormValue returns the first recorded part named name.
func (r Request) FormValue(name string) (Part, bool) {
	for _, p := range r.Parts {
		if p.Name == name {
			return p, true
		}
	}
	return Part{}, false
}

// PartNames lists the multipart field names in wire order.
func (r Request) PartNames() []string {
	names := make([]string, len(r.Parts))
	for i, p := range r.Parts {
		names[i] = p.Name
	}
	return names
}

func errorBody(message, typ, code string) gin.H {
	return gin.H{"error": gin.H{
		"message": message,
		"type":    typ,
		"param":   nil,
		"code":    code,
	}}
}
