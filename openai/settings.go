package openai

import (
	"time"

	"github.com/kbukum/openaikit/config"
	"github.com/kbukum/openaikit/httpclient"
	"github.com/kbukum/openaikit/logger"
	"github.com/kbukum/openaikit/resilience"
	"github.com/kbukum/openaikit/security"
	"github.com/kbukum/openaikit/validation"
)

// Backend names accepted in Settings.Backend.
const (
	BackendOpenAI = "openai"
	BackendAzure  = "azure"
)

// Settings is the file/env representation of a client, loaded with
// LoadSettings:
//
//	backend: azure
//	azure:
//	  api_base: https://my-resource.openai.azure.com
//	  deployment_id: gpt-4o
//	  api_version: 2024-06-01
//	retry:
//	  max_attempts: 5
type Settings struct {
	Backend string         `yaml:"backend" mapstructure:"backend" validate:"required,oneof=openai azure"`
	OpenAI  OpenAISettings `yaml:"openai" mapstructure:"openai"`
	Azure   AzureSettings  `yaml:"azure" mapstructure:"azure"`

	Timeout time.Duration      `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	TLS     security.TLSConfig `yaml:"tls" mapstructure:"tls"`
	Retry   RetrySettings      `yaml:"retry" mapstructure:"retry"`
	Logging logger.Config      `yaml:"logging" mapstructure:"logging"`
	Headers map[string]string  `yaml:"headers" mapstructure:"headers"`
}

// OpenAISettings configures the default-service backend.
type OpenAISettings struct {
	APIBase string `yaml:"api_base" mapstructure:"api_base" validate:"omitempty,url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	OrgID   string `yaml:"org_id" mapstructure:"org_id"`
}

// AzureSettings configures the gateway backend.
type AzureSettings struct {
	APIBase      string `yaml:"api_base" mapstructure:"api_base" validate:"omitempty,url"`
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	DeploymentID string `yaml:"deployment_id" mapstructure:"deployment_id"`
	APIVersion   string `yaml:"api_version" mapstructure:"api_version"`
}

// RetrySettings is the serializable subset of resilience.RetryConfig.
type RetrySettings struct {
	Disabled       bool          `yaml:"disabled" mapstructure:"disabled"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff" validate:"gte=0"`
	MaxElapsedTime time.Duration `yaml:"max_elapsed_time" mapstructure:"max_elapsed_time" validate:"gte=0"`
}

// LoadSettings reads Settings for serviceName from config files, .env and
// the environment. OPENAI_API_KEY fills openai.api_key; the Azure key falls
// back from AZURE_OPENAI_API_KEY to OPENAI_API_KEY.
func LoadSettings(serviceName string, opts ...config.LoaderOption) (*Settings, error) {
	s := &Settings{Backend: BackendOpenAI}
	opts = append([]config.LoaderOption{
		config.WithEnvBinding("openai.api_key", EnvAPIKey),
		config.WithEnvBinding("azure.api_key", EnvAzureAPIKey, EnvAPIKey),
	}, opts...)
	if err := config.LoadConfig(serviceName, s, opts...); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks struct tags and the backend-specific required fields.
func (s *Settings) Validate() error {
	if err := validation.Validate(s); err != nil {
		return err
	}
	if s.Backend == BackendAzure {
		return validation.New().
			Required("azure.api_base", s.Azure.APIBase).
			Required("azure.deployment_id", s.Azure.DeploymentID).
			Required("azure.api_version", s.Azure.APIVersion).
			Err()
	}
	return nil
}

// Build returns the Config for the selected backend. Empty values fall back
// to the same defaults as the constructors.
func (s *Settings) Build() (Config, error) {
	switch s.Backend {
	case BackendAzure:
		opts := []Option{
			WithAPIBase(s.Azure.APIBase),
			WithDeploymentID(s.Azure.DeploymentID),
			WithAPIVersion(s.Azure.APIVersion),
		}
		if s.Azure.APIKey != "" {
			opts = append(opts, WithAPIKey(s.Azure.APIKey))
		}
		return NewAzureConfig(opts...)
	case BackendOpenAI, "":
		var opts []Option
		if s.OpenAI.APIBase != "" {
			opts = append(opts, WithAPIBase(s.OpenAI.APIBase))
		}
		if s.OpenAI.APIKey != "" {
			opts = append(opts, WithAPIKey(s.OpenAI.APIKey))
		}
		if s.OpenAI.OrgID != "" {
			opts = append(opts, WithOrgID(s.OpenAI.OrgID))
		}
		return NewOpenAIConfig(opts...), nil
	default:
		return nil, validation.New().
			OneOf("backend", s.Backend, []string{BackendOpenAI, BackendAzure}).
			Err()
	}
}

// ClientOptions translates the transport, retry and logging settings.
func (s *Settings) ClientOptions() []ClientOption {
	opts := []ClientOption{
		WithHTTPConfig(httpclient.Config{
			Timeout: s.Timeout,
			TLS:     &s.TLS,
			Headers: s.Headers,
		}),
	}
	if s.Retry.Disabled {
		opts = append(opts, WithoutRetry())
	} else {
		rc := resilience.DefaultRetryConfig()
		if s.Retry.MaxAttempts > 0 {
			rc.MaxAttempts = s.Retry.MaxAttempts
		}
		if s.Retry.InitialBackoff > 0 {
			rc.InitialBackoff = s.Retry.InitialBackoff
		}
		if s.Retry.MaxBackoff > 0 {
			rc.MaxBackoff = s.Retry.MaxBackoff
		}
		if s.Retry.MaxElapsedTime > 0 {
			rc.MaxElapsedTime = s.Retry.MaxElapsedTime
		}
		opts = append(opts, WithRetry(rc))
	}
	if s.Logging.Level != "" {
		lc := s.Logging
		lc.ApplyDefaults()
		opts = append(opts, WithLogger(logger.New(&lc, "openaikit")))
	}
	return opts
}

// NewClientFromSettings builds a Client from loaded settings.
func NewClientFromSettings(s *Settings, extra ...ClientOption) (*Client, error) {
	cfg, err := s.Build()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg, append(s.ClientOptions(), extra...)...)
}
