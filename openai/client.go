package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/httpclient"
	"github.com/kbukum/openaikit/httpclient/sse"
	"github.com/kbukum/openaikit/logger"
	"github.com/kbukum/openaikit/observability"
	"github.com/kbukum/openaikit/resilience"
	"github.com/kbukum/openaikit/version"
)

// Client issues requests against one backend. It is safe for concurrent use.
type Client struct {
	config    Config
	transport *httpclient.Transport
	retry     *resilience.RetryConfig
	policy    resilience.Policy
	log       *logger.Logger
	metrics   *observability.ClientMetrics
	userAgent string
	maxLine   int
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	http       httpclient.Config
	httpClient *http.Client
	transport  *httpclient.Transport
	retry     *resilience.RetryConfig
	policy    resilience.Policy
	log       *logger.Logger
	metrics   *observability.ClientMetrics
	userAgent string
	maxLine   int
}

// WithHTTPConfig configures the underlying transport.
func WithHTTPConfig(cfg httpclient.Config) ClientOption {
	return func(o *clientOptions) { o.http = cfg }
}

// WithTransport shares an existing transport between clients.
func WithTransport(t *httpclient.Transport) ClientOption {
	return func(o *clientOptions) { o.transport = t }
}

// WithHTTPClient sends requests through a caller-built *http.Client, for
// example one with custom proxies or middleware. WithHTTPConfig is ignored
// when it is set.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithRetry replaces the default exponential backoff settings.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(o *clientOptions) {
		o.retry = &cfg
		o.policy = nil
	}
}

// WithPolicy installs a custom retry policy. Retries made by a custom policy
// are not logged or counted by the client.
func WithPolicy(p resilience.Policy) ClientOption {
	return func(o *clientOptions) {
		o.policy = p
		o.retry = nil
	}
}

// WithoutRetry sends every request exactly once.
func WithoutRetry() ClientOption {
	return WithPolicy(resilience.NoRetry{})
}

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(o *clientOptions) { o.log = l }
}

// WithMetrics records client metrics into m.
func WithMetrics(m *observability.ClientMetrics) ClientOption {
	return func(o *clientOptions) { o.metrics = m }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(o *clientOptions) { o.userAgent = ua }
}

// WithMaxStreamLineSize bounds a single SSE line.
func WithMaxStreamLineSize(n int) ClientOption {
	return func(o *clientOptions) { o.maxLine = n }
}

// NewClient creates a client for cfg with default retries and the global logger.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.MissingField("config")
	}
	def := resilience.DefaultRetryConfig()
	o := clientOptions{retry: &def}
	for _, opt := range opts {
		opt(&o)
	}

	tr := o.transport
	if tr == nil {
		var err error
		if o.httpClient != nil {
			tr, err = httpclient.NewTransportFromClient(o.httpClient)
		} else {
			tr, err = httpclient.NewTransport(o.http)
		}
		if err != nil {
			return nil, err
		}
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	if o.userAgent == "" {
		o.userAgent = version.UserAgent()
	}

	return &Client{
		config:    cfg,
		transport: tr,
		retry:     o.retry,
		policy:    o.policy,
		log:       o.log.WithComponent("openai"),
		metrics:   o.metrics,
		userAgent: o.userAgent,
		maxLine:   o.maxLine,
	}, nil
}

// Config returns the backend configuration.
func (c *Client) Config() Config { return c.config }

// Close releases idle connections.
func (c *Client) Close() { c.transport.Close() }

// Chat returns the chat completions endpoints.
func (c *Client) Chat() *Chat { return &Chat{c: c} }

// Completions returns the legacy completions endpoints.
func (c *Client) Completions() *Completions { return &Completions{c: c} }

// Embeddings returns the embeddings endpoint.
func (c *Client) Embeddings() *Embeddings { return &Embeddings{c: c} }

// Moderations returns the moderation endpoint.
func (c *Client) Moderations() *Moderations { return &Moderations{c: c} }

// Models returns the model listing endpoints.
func (c *Client) Models() *Models { return &Models{c: c} }

// Audio returns the speech and transcription endpoints.
func (c *Client) Audio() *Audio { return &Audio{c: c} }

// Images returns the image endpoints.
func (c *Client) Images() *Images { return &Images{c: c} }

// Files returns the file endpoints.
func (c *Client) Files() *Files { return &Files{c: c} }

// FineTuning returns the fine-tuning job endpoints.
func (c *Client) FineTuning() *FineTuning { return &FineTuning{c: c} }

// endpoint identifies one API operation. query holds per-call parameters;
// backend parameters such as api-version take precedence over them.
type endpoint struct {
	operation string
	method    string
	path      string
	model     string
	query     url.Values
}

func (c *Client) newRequest(ep endpoint, body httpclient.Payload) (*httpclient.Prepared, error) {
	u, err := c.config.URL(ep.path)
	if err != nil {
		return nil, err
	}
	headers := c.config.Headers()
	headers.Set("User-Agent", c.userAgent)
	return httpclient.Prepare(httpclient.Request{
		Method:  ep.method,
		URL:     u,
		Query:   mergeQuery(ep.query, c.config.Query()),
		Headers: headers,
		Body:    body,
	})
}

// mergeQuery overlays backend parameters on the per-call ones.
func mergeQuery(call, backend url.Values) url.Values {
	out := make(url.Values, len(call)+len(backend))
	for k, vs := range call {
		out[k] = append([]string(nil), vs...)
	}
	for k, vs := range backend {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// policyFor returns the retry policy for one call. The built-in backoff is
// instantiated per call so retries can be attributed to it.
func (c *Client) policyFor(ctx context.Context, call *observability.Call, ep endpoint) resilience.Policy {
	if c.retry == nil {
		return c.policy
	}
	cfg := *c.retry
	userHook := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		fields := logger.RetryFields(attempt, backoff, err)
		fields[logger.FieldCallID] = call.ID
		fields[logger.FieldEndpoint] = ep.path
		c.log.Warn("retrying request", logger.MergeWithDuration(fields, call.Duration()))
		call.Retry(ctx, attempt, backoff, err)
		if userHook != nil {
			userHook(attempt, err, backoff)
		}
	}
	return resilience.NewBackoff(cfg)
}

func (c *Client) begin(ctx context.Context, ep endpoint, stream bool) (context.Context, *observability.Call, trace.Span) {
	call := observability.NewCall(ep.operation, c.metrics)
	call.Model = ep.model
	call.Stream = stream
	ctx, span := call.Start(ctx)
	return ctx, call, span
}

func (c *Client) end(ctx context.Context, call *observability.Call, span trace.Span, ep endpoint, status int, err error) {
	var fields map[string]interface{}
	if err != nil {
		fields = logger.ErrorFields(ep.path, err)
	} else {
		fields = logger.Fields(logger.FieldEndpoint, ep.path)
	}
	fields[logger.FieldCallID] = call.ID
	fields[logger.FieldMethod] = ep.method
	fields[logger.FieldStream] = call.Stream
	if status != 0 {
		fields[logger.FieldStatus] = status
	}
	fields = logger.MergeWithDuration(fields, call.Duration())
	if err != nil {
		c.log.Debug("request failed", fields)
	} else {
		c.log.Debug("request completed", fields)
	}
	call.End(ctx, span, err)
}

// execute runs one non-streaming call through the retry policy and decodes
// the successful body. Decoding failures are not retried.
func execute[T any](ctx context.Context, c *Client, ep endpoint, body httpclient.Payload, decode func([]byte) (T, error)) (out T, err error) {
	ctx, call, span := c.begin(ctx, ep, false)
	status := 0
	defer func() { c.end(ctx, call, span, ep, status, err) }()

	prepared, err := c.newRequest(ep, body)
	if err != nil {
		return out, err
	}
	respBody, err := resilience.Retry(ctx, c.policyFor(ctx, call, ep), func(ctx context.Context) ([]byte, error) {
		resp, err := c.transport.Do(ctx, prepared)
		if err != nil {
			return nil, err
		}
		status = resp.StatusCode
		if !resp.IsSuccess() {
			return nil, errors.FromResponse(resp.StatusCode, resp.Body)
		}
		return resp.Body, nil
	})
	if err != nil {
		return out, err
	}
	return decode(respBody)
}

// decodeResponse unmarshals a successful body into T.
func decodeResponse[T any](body []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Deserialization(err, body)
	}
	return &out, nil
}

func rawBody(body []byte) ([]byte, error) { return body, nil }

func doJSON[T any](ctx context.Context, c *Client, ep endpoint, body any) (*T, error) {
	var payload httpclient.Payload
	if body != nil {
		payload = httpclient.JSONPayload{Value: body}
	}
	return execute(ctx, c, ep, payload, decodeResponse[T])
}

func doForm[T any](ctx context.Context, c *Client, ep endpoint, form httpclient.FormPayload) (*T, error) {
	return execute(ctx, c, ep, form, decodeResponse[T])
}

// doRaw returns the response body without decoding it.
func (c *Client) doRaw(ctx context.Context, ep endpoint, body httpclient.Payload) ([]byte, error) {
	return execute(ctx, c, ep, body, rawBody)
}

// openStream retries only until the response headers arrive. The returned
// stream ends the call span when it finishes or is closed.
func openStream[T any](ctx context.Context, c *Client, ep endpoint, body any) (*sse.Stream[T], error) {
	ctx, call, span := c.begin(ctx, ep, true)

	prepared, err := c.newRequest(ep, httpclient.JSONPayload{Value: body})
	if err != nil {
		c.end(ctx, call, span, ep, 0, err)
		return nil, err
	}
	resp, err := resilience.Retry(ctx, c.policyFor(ctx, call, ep), func(ctx context.Context) (*http.Response, error) {
		return c.transport.Open(ctx, prepared)
	})
	if err != nil {
		c.end(ctx, call, span, ep, 0, err)
		return nil, err
	}

	opts := []sse.Option{
		sse.WithOnChunk(func() { call.Chunk(ctx) }),
		sse.WithOnFinish(func(chunks int, err error) {
			span.SetAttributes(attribute.Int(observability.AttrChunks, chunks))
			c.end(ctx, call, span, ep, resp.StatusCode, err)
		}),
	}
	if c.maxLine > 0 {
		opts = append(opts, sse.WithMaxLineSize(c.maxLine))
	}
	return sse.NewStream[T](resp.Body, opts...), nil
}
