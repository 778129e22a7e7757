package rtms

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config collects the process settings read from ZM_RTMS_* variables.
type Config struct {
	CA           string        `mapstructure:"ca"`
	Client       string        `mapstructure:"client"`
	Secret       string        `mapstructure:"secret"`
	LibPath      string        `mapstructure:"lib_path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`

	LogLevel   string `mapstructure:"log_level"`
	LogFormat  string `mapstructure:"log_format"`
	LogEnabled bool   `mapstructure:"log_enabled"`

	Webhook WebhookConfig `mapstructure:",squash"`
}

// WebhookConfig configures the webhook listener.
type WebhookConfig struct {
	Port     int    `mapstructure:"port"`
	Path     string `mapstructure:"path"`
	CertFile string `mapstructure:"cert"`
	KeyFile  string `mapstructure:"key"`
	ClientCA string `mapstructure:"ca_webhook"`
}

var configKeys = []string{
	"ca", "client", "secret", "lib_path", "poll_interval",
	"log_level", "log_format", "log_enabled",
	"port", "path", "cert", "key", "ca_webhook",
}

// LoadConfig reads ZM_RTMS_* environment variables. When ZM_RTMS_CONFIG
// names a file it is read first and the environment overrides it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ZM_RTMS")
	for _, k := range configKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	v.SetDefault("poll_interval", "10ms")
	v.SetDefault("log_level", "debug")
	v.SetDefault("log_format", string(LogFormatProgressive))
	v.SetDefault("log_enabled", true)
	v.SetDefault("port", 8080)
	v.SetDefault("path", "/")

	if file := os.Getenv("ZM_RTMS_CONFIG"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Apply installs the logger and library path described by c.
func (c *Config) Apply() {
	ConfigureLogger(LogConfig{
		Level:   c.LogLevel,
		Format:  LogFormat(c.LogFormat),
		Enabled: c.LogEnabled,
	})
	if c.LibPath != "" {
		SetLibraryPath(c.LibPath)
	}
}

// JoinOptions fills the credential, CA and polling fields of a JoinOptions
// from c.
func (c *Config) JoinOptions(meetingUUID, streamID, serverURLs string) JoinOptions {
	return JoinOptions{
		MeetingUUID:  meetingUUID,
		StreamID:     streamID,
		ServerURLs:   serverURLs,
		ClientID:     c.Client,
		ClientSecret: c.Secret,
		CA:           c.CA,
		PollInterval: c.PollInterval,
	}
}
