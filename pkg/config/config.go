package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingToken is returned by Validate when no Netlify token is configured
var ErrMissingToken = errors.New("NETLIFY_TOKEN is not set")

// Config holds all configuration for the application
type Config struct {
	Netlify   NetlifyConfig
	Deploy    DeployConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
}

// NetlifyConfig holds API access settings
type NetlifyConfig struct {
	Token          string
	Domains        []string
	APIURL         string
	ProviderDomain string
	Timeout        time.Duration
	UserAgent      string
}

// DeployConfig holds bundle settings
type DeployConfig struct {
	TempDir string
	Minify  bool
}

// RateLimitConfig holds client-side request limiting
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
	Insecure     bool
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// Textfile is a path for the node_exporter textfile collector. Empty disables export.
	Textfile string
}

// Load loads configuration from environment variables and an optional config file.
// An explicit configFile must exist; otherwise publify.yaml is looked up in the
// working directory and $HOME/.config/publify.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("publify")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "publify"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars only
	}

	v.SetEnvPrefix("PUBLIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The historical variable names win over the prefixed ones
	_ = v.BindEnv("netlify.token", "NETLIFY_TOKEN", "PUBLIFY_NETLIFY_TOKEN")
	_ = v.BindEnv("netlify.domains", "NETLIFY_DOMAINS", "PUBLIFY_NETLIFY_DOMAINS")

	config := &Config{
		Netlify: NetlifyConfig{
			Token:          strings.TrimSpace(v.GetString("netlify.token")),
			Domains:        SplitList(v.GetStringSlice("netlify.domains")...),
			APIURL:         strings.TrimRight(v.GetString("netlify.api_url"), "/"),
			ProviderDomain: v.GetString("netlify.provider_domain"),
			Timeout:        v.GetDuration("netlify.timeout"),
			UserAgent:      v.GetString("netlify.user_agent"),
		},
		Deploy: DeployConfig{
			TempDir: v.GetString("deploy.temp_dir"),
			Minify:  v.GetBool("deploy.minify"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           v.GetBool("ratelimit.enabled"),
			RequestsPerSecond: v.GetFloat64("ratelimit.requests_per_second"),
			Burst:             v.GetInt("ratelimit.burst"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("tracing.enabled"),
			ServiceName:  v.GetString("tracing.service_name"),
			OTLPEndpoint: v.GetString("tracing.otlp_endpoint"),
			SampleRate:   v.GetFloat64("tracing.sample_rate"),
			Insecure:     v.GetBool("tracing.insecure"),
		},
		Metrics: MetricsConfig{
			Textfile: v.GetString("metrics.textfile"),
		},
	}

	if config.Deploy.TempDir == "" {
		config.Deploy.TempDir = os.TempDir()
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Netlify defaults
	v.SetDefault("netlify.token", "")
	v.SetDefault("netlify.domains", "")
	v.SetDefault("netlify.api_url", "https://api.netlify.com/api/v1")
	v.SetDefault("netlify.provider_domain", "netlify.app")
	v.SetDefault("netlify.timeout", 5*time.Minute)
	v.SetDefault("netlify.user_agent", "publify")

	// Deploy defaults
	v.SetDefault("deploy.temp_dir", "")
	v.SetDefault("deploy.minify", false)

	// Rate limit defaults: Netlify allows 500 requests per minute
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_second", 8.0)
	v.SetDefault("ratelimit.burst", 10)

	// Log defaults
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "publify")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.insecure", true)

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")
}

// Validate checks the settings every API command needs
func (c *Config) Validate() error {
	if c.Netlify.Token == "" {
		return ErrMissingToken
	}
	if c.Netlify.APIURL == "" {
		return errors.New("netlify.api_url must not be empty")
	}
	return nil
}

// SplitList splits comma-separated values, trimming blanks and dropping empty entries
func SplitList(values ...string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
