package openai

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/httpclient"
	"github.com/kbukum/openaikit/validation"
)

const (
	// DefaultAPIBase is the public OpenAI endpoint.
	DefaultAPIBase = "https://api.openai.com/v1"

	// EnvAPIKey is read for the OpenAI key, and for the Azure key when
	// EnvAzureAPIKey is unset.
	EnvAPIKey = "OPENAI_API_KEY"
	// EnvAzureAPIKey is the Azure-specific key variable.
	EnvAzureAPIKey = "AZURE_OPENAI_API_KEY"

	// HeaderOrganization carries the optional OpenAI organization id.
	HeaderOrganization = "OpenAI-Organization"
	// HeaderAzureAPIKey carries the Azure key.
	HeaderAzureAPIKey = "api-key"
	// QueryAPIVersion is the Azure api-version query parameter.
	QueryAPIVersion = "api-version"
)

// Config describes a backend. The final URL and headers of a request depend
// only on the Config and the endpoint path.
type Config interface {
	// URL returns the absolute URL for an endpoint path such as "/chat/completions".
	URL(path string) (string, error)
	// Headers returns the authentication headers.
	Headers() http.Header
	// Query returns query parameters added to every request.
	Query() url.Values
	APIBase() string
	APIKey() string
}

// OpenAIConfig targets api.openai.com or a compatible server.
type OpenAIConfig struct {
	apiBase string
	apiKey  string
	orgID   string
}

// Option configures an OpenAIConfig or an AzureConfig.
type Option func(*configFields)

type configFields struct {
	apiBase      string
	apiKey       string
	orgID        string
	deploymentID string
	apiVersion   string
}

// WithAPIBase overrides the base URL.
func WithAPIBase(base string) Option {
	return func(f *configFields) { f.apiBase = base }
}

// WithAPIKey overrides the key read from the environment.
func WithAPIKey(key string) Option {
	return func(f *configFields) { f.apiKey = key }
}

// WithOrgID sets the OpenAI-Organization header. Ignored for Azure.
func WithOrgID(org string) Option {
	return func(f *configFields) { f.orgID = org }
}

// WithDeploymentID sets the Azure deployment. Ignored for OpenAI.
func WithDeploymentID(id string) Option {
	return func(f *configFields) { f.deploymentID = id }
}

// WithAPIVersion sets the Azure api-version. Ignored for OpenAI.
func WithAPIVersion(v string) Option {
	return func(f *configFields) { f.apiVersion = v }
}

func apply(f configFields, opts []Option) configFields {
	for _, opt := range opts {
		opt(&f)
	}
	f.apiBase = strings.TrimRight(f.apiBase, "/")
	return f
}

// NewOpenAIConfig returns a config for the default service with the key
// taken from OPENAI_API_KEY unless overridden.
func NewOpenAIConfig(opts ...Option) *OpenAIConfig {
	f := apply(configFields{
		apiBase: DefaultAPIBase,
		apiKey:  os.Getenv(EnvAPIKey),
	}, opts)
	return &OpenAIConfig{apiBase: f.apiBase, apiKey: f.apiKey, orgID: f.orgID}
}

// URL joins the base and path.
func (c *OpenAIConfig) URL(path string) (string, error) {
	if c.apiBase == "" {
		return "", errors.MissingField("api_base")
	}
	return c.apiBase + path, nil
}

// Headers returns the bearer token and, if set, the organization header.
func (c *OpenAIConfig) Headers() http.Header {
	h := http.Header{}
	if c.apiKey != "" {
		httpclient.BearerAuth(c.apiKey).Apply(h)
	}
	if c.orgID != "" {
		h.Set(HeaderOrganization, c.orgID)
	}
	return h
}

// Query is always empty; the default service has no api-version.
func (c *OpenAIConfig) Query() url.Values { return url.Values{} }

func (c *OpenAIConfig) APIBase() string { return c.apiBase }
func (c *OpenAIConfig) APIKey() string  { return c.apiKey }

// OrgID returns the organization id, possibly empty.
func (c *OpenAIConfig) OrgID() string { return c.orgID }

// AzureConfig targets an Azure OpenAI deployment.
type AzureConfig struct {
	apiBase      string
	apiKey       string
	deploymentID string
	apiVersion   string
}

// NewAzureConfig validates that the base, deployment and api-version are
// all present. The key defaults to AZURE_OPENAI_API_KEY, then OPENAI_API_KEY.
func NewAzureConfig(opts ...Option) (*AzureConfig, error) {
	f := apply(configFields{apiKey: azureKeyFromEnv()}, opts)
	c := &AzureConfig{
		apiBase:      f.apiBase,
		apiKey:       f.apiKey,
		deploymentID: f.deploymentID,
		apiVersion:   f.apiVersion,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func azureKeyFromEnv() string {
	if key := os.Getenv(EnvAzureAPIKey); key != "" {
		return key
	}
	return os.Getenv(EnvAPIKey)
}

func (c *AzureConfig) validate() error {
	return validation.New().
		Required("api_base", c.apiBase).
		URL("api_base", c.apiBase).
		Required("deployment_id", c.deploymentID).
		Required("api_version", c.apiVersion).
		Err()
}

// URL returns base + /openai/deployments/<id> + path. A zero AzureConfig
// fails with a CONFIGURATION error.
func (c *AzureConfig) URL(path string) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}
	return c.apiBase + "/openai/deployments/" + url.PathEscape(c.deploymentID) + path, nil
}

// Headers returns the api-key header.
func (c *AzureConfig) Headers() http.Header {
	h := http.Header{}
	if c.apiKey != "" {
		httpclient.APIKeyAuthHeader(c.apiKey, HeaderAzureAPIKey).Apply(h)
	}
	return h
}

// Query returns the api-version parameter.
func (c *AzureConfig) Query() url.Values {
	return url.Values{QueryAPIVersion: {c.apiVersion}}
}

func (c *AzureConfig) APIBase() string { return c.apiBase }
func (c *AzureConfig) APIKey() string  { return c.apiKey }

// DeploymentID returns the Azure deployment name.
func (c *AzureConfig) DeploymentID() string { return c.deploymentID }

// APIVersion returns the Azure api-version.
func (c *AzureConfig) APIVersion() string { return c.apiVersion }
