package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Env            string        `yaml:"env"`
	Addr           string        `yaml:"addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	APITimeout     time.Duration `yaml:"timeout"`
	DatabasePath   string        `yaml:"database_path"`
	TokenDuration  time.Duration `yaml:"token_duration"`
	MigrateOnStart bool          `yaml:"migrate_on_start"`
	Workers        int           `yaml:"workers"`
	EngineConfig   EngineConfig  `yaml:"engine"`
	Ollama         OllamaConfig  `yaml:"ollama"`
	Email          EmailConfig   `yaml:"email"`
	Geo            GeoConfig     `yaml:"geo"`
	Redis          RedisConfig   `yaml:"redis"`
}

// EngineConfig selects the model and prompt templates used for listing copy.
type EngineConfig struct {
	Model           string        `yaml:"model"`
	TemplateVersion string        `yaml:"template_version"`
	Timeout         time.Duration `yaml:"timeout"`
}

type OllamaConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	DefaultModelNames       []string      `yaml:"models"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

// EmailConfig configures the transactional mail sender. When Enabled is false
// messages are only logged.
type EmailConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Region          string   `yaml:"region"`
	From            string   `yaml:"from"`
	AdminRecipients []string `yaml:"admin_recipients"`
	SiteURL         string   `yaml:"site_url"`
}

// GeoConfig configures the routing API used for landmark distances.
type GeoConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Profile string        `yaml:"profile"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig is optional; an empty Addr keeps wizard drafts in SQLite.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	DraftTTL time.Duration `yaml:"draft_ttl"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 24 * time.Hour

	cfg := &Config{
		Env:           getEnv("REALTY_ENV", "production"),
		Addr:          getEnv("REALTY_ADDR", ":8080"),
		JWTSecret:     getEnv("REALTY_JWT_SECRET", insecureJWTSecret),
		APITimeout:    apiTimeout,
		DatabasePath:  getEnv("REALTY_DATABASE_PATH", "realty.db"),
		TokenDuration: tokenDuration,
		Workers:       getEnvInt("REALTY_WORKERS", 2),
		EngineConfig: EngineConfig{
			Model: getEnv("REALTY_AI_MODEL", "llama3"),
		},
		Ollama: OllamaConfig{
			BaseURL: getEnv("REALTY_OLLAMA_URL", ""),
		},
		Email: EmailConfig{
			Enabled: getEnv("REALTY_EMAIL_ENABLED", "") == "true",
			Region:  getEnv("AWS_REGION", ""),
			From:    getEnv("REALTY_EMAIL_FROM", ""),
		},
		Geo: GeoConfig{
			BaseURL: getEnv("REALTY_GEO_URL", ""),
			APIKey:  getEnv("REALTY_GEO_API_KEY", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REALTY_REDIS_ADDR", ""),
			Password: getEnv("REALTY_REDIS_PASSWORD", ""),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks required settings and fills defaults for the optional
// upstream clients.
func (c *Config) Validate() error {
	env := os.Getenv("REALTY_ENV")
	if env == "" {
		env = c.Env
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == insecureJWTSecret && env != "development" {
		return errors.New("jwt_secret uses the insecure default; set REALTY_JWT_SECRET")
	}
	if c.EngineConfig.Model == "" {
		return errors.New("engine.model is required")
	}
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = 24 * time.Hour
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.EngineConfig.TemplateVersion == "" {
		c.EngineConfig.TemplateVersion = "v1"
	}
	if c.EngineConfig.Timeout <= 0 {
		c.EngineConfig.Timeout = 60 * time.Second
	}

	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = 60 * time.Second
	}
	if c.Ollama.Retries == 0 {
		c.Ollama.Retries = 2
	}
	if c.Ollama.Backoff <= 0 {
		c.Ollama.Backoff = 500 * time.Millisecond
	}
	if c.Ollama.CircuitFailureThreshold <= 0 {
		c.Ollama.CircuitFailureThreshold = 5
	}
	if c.Ollama.CircuitReset <= 0 {
		c.Ollama.CircuitReset = 30 * time.Second
	}

	if c.Email.Enabled {
		if c.Email.Region == "" {
			return errors.New("email.region is required when email is enabled")
		}
		if c.Email.From == "" {
			return errors.New("email.from is required when email is enabled")
		}
	}
	if c.Email.From == "" {
		c.Email.From = "noreply@example.com"
	}

	if c.Geo.Profile == "" {
		c.Geo.Profile = "driving"
	}
	if c.Geo.Timeout <= 0 {
		c.Geo.Timeout = 10 * time.Second
	}

	if c.Redis.DraftTTL <= 0 {
		c.Redis.DraftTTL = 7 * 24 * time.Hour
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}
