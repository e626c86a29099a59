package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const envPrefix = "SOURCECHAT"

type Config struct {
	Mode Mode `mapstructure:"mode"`

	Port string `mapstructure:"port"`

	GCPProjectID string `mapstructure:"gcp_project"`
	GCPLocation  string `mapstructure:"gcp_location"`
	ModelName    string `mapstructure:"model_name"`

	StorageBackend string `mapstructure:"storage_backend"` // "memory" or "firestore"
	AnswerBackend  string `mapstructure:"answer_backend"`  // "mock", "http" or "vertex"

	BackendURL    string        `mapstructure:"backend_url"`
	AskPath       string        `mapstructure:"ask_path"`
	ConfirmPath   string        `mapstructure:"confirm_path"`
	ModelProvider string        `mapstructure:"model_provider"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`

	CountdownSeconds int    `mapstructure:"countdown_seconds"`
	MockSuggestion   string `mapstructure:"mock_suggestion"`

	Verbose bool `mapstructure:"verbose"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeLocal))
	v.SetDefault("port", "8080")
	v.SetDefault("gcp_project", "")
	v.SetDefault("gcp_location", "us-central1")
	v.SetDefault("model_name", "gemini-2.5-flash-lite")
	v.SetDefault("storage_backend", "memory")
	v.SetDefault("answer_backend", "mock")
	v.SetDefault("backend_url", "http://localhost:3000")
	v.SetDefault("ask_path", "/api/ask")
	v.SetDefault("confirm_path", "/api/confirm-source")
	v.SetDefault("model_provider", "gemini")
	// zero keeps the transport's own behaviour
	v.SetDefault("http_timeout", time.Duration(0))
	v.SetDefault("countdown_seconds", 5)
	v.SetDefault("mock_suggestion", "")
	v.SetDefault("verbose", false)
}

// Load reads SOURCECHAT_* env vars and, when path is set, a config file.
// Env wins over the file, the file wins over defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Mode = parseMode(string(cfg.Mode))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gcp":
		return ModeGCP
	default:
		return ModeLocal
	}
}

// Validate checks the combinations that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return fmt.Errorf("%s_GCP_PROJECT must be set in gcp mode", envPrefix)
	}
	switch c.StorageBackend {
	case "memory":
	case "firestore":
		if c.GCPProjectID == "" {
			return fmt.Errorf("%s_GCP_PROJECT is required for firestore storage", envPrefix)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	switch c.AnswerBackend {
	case "mock":
	case "http":
		if c.BackendURL == "" {
			return fmt.Errorf("%s_BACKEND_URL is required for http answer backend", envPrefix)
		}
	case "vertex":
		if c.GCPProjectID == "" || c.GCPLocation == "" {
			return fmt.Errorf("%s_GCP_PROJECT and %s_GCP_LOCATION must be set for vertex", envPrefix, envPrefix)
		}
	default:
		return fmt.Errorf("unknown answer backend %q", c.AnswerBackend)
	}
	if c.CountdownSeconds < 1 {
		return fmt.Errorf("countdown seconds must be at least 1")
	}
	return nil
}
