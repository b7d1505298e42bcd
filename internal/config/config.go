// Package config resolves collector settings from defaults, an optional
// YAML config file, and SCAPIS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/henrybloomingdale/scapis-dashboard/internal/eutils"
	"github.com/henrybloomingdale/scapis-dashboard/internal/ncbi"
	"github.com/henrybloomingdale/scapis-dashboard/internal/scapis"
)

// EnvPrefix is prepended to every environment variable, e.g. SCAPIS_BATCH_SIZE.
const EnvPrefix = "SCAPIS"

// Keys understood in the config file and environment.
const (
	KeyQuery            = "query"
	KeyRetMax           = "retmax"
	KeyBatchSize        = "batch_size"
	KeyBatchDelay       = "batch_delay"
	KeyTimeout          = "timeout"
	KeyRetries          = "retries"
	KeyRetryDelay       = "retry_delay"
	KeyUserAgent        = "user_agent"
	KeyAPIKey           = "api_key"
	KeyEmail            = "email"
	KeyEUtilsBaseURL    = "eutils_base_url"
	KeySecondaryURL     = "secondary_url"
	KeySkipSecondary    = "skip_secondary"
	KeyTopicsFile       = "topics_file"
	KeyMaxResponseBytes = "max_response_bytes"
)

// Config holds everything the collector needs besides the output path.
type Config struct {
	Query            string
	RetMax           int
	BatchSize        int
	BatchDelay       time.Duration
	Timeout          time.Duration
	Retries          int
	RetryDelay       time.Duration
	UserAgent        string
	APIKey           string
	Email            string
	EUtilsBaseURL    string
	SecondaryURL     string
	SkipSecondary    bool
	TopicsFile       string
	MaxResponseBytes int64
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyQuery, eutils.DefaultQuery)
	v.SetDefault(KeyRetMax, eutils.DefaultRetMax)
	v.SetDefault(KeyBatchSize, eutils.DefaultBatchSize)
	v.SetDefault(KeyBatchDelay, eutils.DefaultBatchDelay)
	v.SetDefault(KeyTimeout, ncbi.DefaultTimeout)
	v.SetDefault(KeyRetries, ncbi.DefaultAttempts)
	v.SetDefault(KeyRetryDelay, ncbi.DefaultRetryDelay)
	v.SetDefault(KeyUserAgent, ncbi.DefaultUserAgent)
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyEmail, ncbi.DefaultEmail)
	v.SetDefault(KeyEUtilsBaseURL, eutils.DefaultBaseURL)
	v.SetDefault(KeySecondaryURL, scapis.DefaultURL)
	v.SetDefault(KeySkipSecondary, false)
	v.SetDefault(KeyTopicsFile, "")
	v.SetDefault(KeyMaxResponseBytes, ncbi.DefaultMaxResponseBytes)
}

// Setup prepares v the way the CLI uses it: defaults, environment binding,
// and the config file search path. An empty cfgFile searches for
// scapis.yaml in the working directory and ~/.config/scapis.
func Setup(v *viper.Viper, cfgFile string) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("scapis")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "scapis"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// NCBI documents NCBI_API_KEY; honour it alongside SCAPIS_API_KEY.
	_ = v.BindEnv(KeyAPIKey, EnvPrefix+"_API_KEY", "NCBI_API_KEY")
}

// ReadFile loads the config file selected by Setup. A missing file is not an
// error unless it was named explicitly. It returns the file used, if any.
func ReadFile(v *viper.Viper, explicit bool) (string, error) {
	err := v.ReadInConfig()
	if err == nil {
		return v.ConfigFileUsed(), nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !explicit && errors.As(err, &notFound) {
		return "", nil
	}
	return "", fmt.Errorf("reading config: %w", err)
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Query:            strings.TrimSpace(v.GetString(KeyQuery)),
		RetMax:           v.GetInt(KeyRetMax),
		BatchSize:        v.GetInt(KeyBatchSize),
		BatchDelay:       v.GetDuration(KeyBatchDelay),
		Timeout:          v.GetDuration(KeyTimeout),
		Retries:          v.GetInt(KeyRetries),
		RetryDelay:       v.GetDuration(KeyRetryDelay),
		UserAgent:        v.GetString(KeyUserAgent),
		APIKey:           strings.TrimSpace(v.GetString(KeyAPIKey)),
		Email:            v.GetString(KeyEmail),
		EUtilsBaseURL:    v.GetString(KeyEUtilsBaseURL),
		SecondaryURL:     v.GetString(KeySecondaryURL),
		SkipSecondary:    v.GetBool(KeySkipSecondary),
		TopicsFile:       v.GetString(KeyTopicsFile),
		MaxResponseBytes: v.GetInt64(KeyMaxResponseBytes),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the collector cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Query == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyQuery))
	}
	if c.RetMax <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyRetMax, c.RetMax))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyBatchSize, c.BatchSize))
	}
	if c.Retries <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyRetries, c.Retries))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyTimeout, c.Timeout))
	}
	if c.BatchDelay < 0 || c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("delays must not be negative"))
	}
	if c.MaxResponseBytes <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyMaxResponseBytes, c.MaxResponseBytes))
	}
	if c.EUtilsBaseURL == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyEUtilsBaseURL))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ClientOptions translates the network settings into ncbi options.
func (c Config) ClientOptions() []ncbi.Option {
	return []ncbi.Option{
		ncbi.WithBaseURL(c.EUtilsBaseURL),
		ncbi.WithAPIKey(c.APIKey),
		ncbi.WithEmail(c.Email),
		ncbi.WithUserAgent(c.UserAgent),
		ncbi.WithTimeout(c.Timeout),
		ncbi.WithRetry(c.Retries, c.RetryDelay),
		ncbi.WithMaxResponseBytes(c.MaxResponseBytes),
	}
}
