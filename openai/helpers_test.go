package openai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kbukum/openaikit/httpclient"
	"github.com/kbukum/openaikit/logger"
	"github.com/kbukum/openaikit/openai/openaitest"
	"github.com/kbukum/openaikit/resilience"
	"github.com/kbukum/openaikit/security"
)

const testKey = "sk-test"

func fastRetry() resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	rc.InitialBackoff = time.Millisecond
	rc.MaxBackoff = 5 * time.Millisecond
	rc.Jitter = 0
	return rc
}

func newTestClient(t *testing.T, opts ...ClientOption) (*Client, *openaitest.Server) {
	t.Helper()
	srv := openaitest.NewServer(t, openaitest.WithAPIKey(testKey))
	cfg := NewOpenAIConfig(WithAPIBase(srv.BaseURL()), WithAPIKey(testKey))
	c, err := NewClient(cfg, append([]ClientOption{WithRetry(fastRetry())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, srv
}

func newAzureTestClient(t *testing.T) (*Client, *openaitest.Server) {
	t.Helper()
	srv := openaitest.NewServer(t, openaitest.WithAPIKey(testKey))
	cfg, err := NewAzureConfig(
		WithAPIBase(srv.URL),
		WithAPIKey(testKey),
		WithDeploymentID("gpt-4o"),
		WithAPIVersion("2024-06-01"),
	)
	require.NoError(t, err)
	c, err := NewClient(cfg, WithRetry(fastRetry()))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, srv
}

func userMessage(content string) []ChatMessage {
	return []ChatMessage{{Role: RoleUser, Content: content}}
}

func newServerOnly(t *testing.T) *openaitest.Server {
	t.Helper()
	return openaitest.NewServer(t, openaitest.WithAPIKey(testKey))
}

func httpConfigWithMissingCA() httpclient.Config {
	return httpclient.Config{TLS: &security.TLSConfig{CAFile: "/nonexistent/ca.pem"}}
}

func testLogging() logger.Config {
	return logger.Config{Level: "error", Output: "stderr"}
}
