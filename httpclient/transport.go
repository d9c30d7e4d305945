package httpclient

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"

	"golang.org/x/net/http2"

	"github.com/kbukum/openaikit/errors"
)

// Transport sends prepared requests over a pooled, HTTP/2-capable client.
// It is safe for concurrent use.
type Transport struct {
	httpClient   *http.Client
	streamClient *http.Client
	config       Config
}

// NewTransport creates a Transport with the given configuration.
func NewTransport(cfg Config) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost

	// Apply TLS configuration
	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			transport.TLSClientConfig = tlsCfg
		}
	}

	if cfg.DisableHTTP2 {
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	} else if err := http2.ConfigureTransport(transport); err != nil {
		return nil, errors.Configuration("httpclient: configure http2: " + err.Error()).WithCause(err)
	}

	return &Transport{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		// Streaming bodies outlive any fixed timeout; the context bounds them.
		streamClient: &http.Client{Transport: transport},
		config:       cfg,
	}, nil
}

// NewTransportFromClient wraps a caller-built client. Its Timeout applies to
// non-streaming requests only; streams share its RoundTripper, jar and
// redirect policy without the timeout. A nil client is a configuration error.
func NewTransportFromClient(hc *http.Client) (*Transport, error) {
	if hc == nil {
		return nil, errors.MissingField("http client")
	}
	stream := *hc
	stream.Timeout = 0
	return &Transport{
		httpClient:   hc,
		streamClient: &stream,
		config:       Config{Timeout: hc.Timeout},
	}, nil
}

// Do sends p once and reads the whole response body. Non-2xx responses are
// returned without error; interpreting them is up to the caller.
func (t *Transport) Do(ctx context.Context, p *Prepared) (*Response, error) {
	httpReq, err := p.build(ctx, t.config.Headers)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, readError(ctx, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// Open sends p and returns the live response once the status line and
// headers have arrived. A non-2xx status is drained and returned as a KindAPI
// error. The caller must close the returned body.
func (t *Transport) Open(ctx context.Context, p *Prepared) (*http.Response, error) {
	httpReq, err := p.build(ctx, t.config.Headers)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := t.streamClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	// Check for error status before starting to stream
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readError(ctx, readErr)
		}
		return nil, errors.FromResponse(resp.StatusCode, body)
	}

	return resp, nil
}

// Close releases idle pooled connections.
func (t *Transport) Close() {
	t.httpClient.CloseIdleConnections()
}
