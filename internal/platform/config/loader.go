package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable that points at the YAML file.
const EnvConfigPath = "ALTTEXT_CONFIG"

// Loader reads defaults, then the YAML file, then environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader for config.yaml (or $ALTTEXT_CONFIG).
func NewLoader() *Loader {
	path := "config.yaml"
	if p, ok := os.LookupEnv(EnvConfigPath); ok && p != "" {
		path = p
	}
	return &Loader{
		useDotEnv: true,
		path:      path,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the YAML file location.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// WithEnv replaces the environment lookup (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the configuration. A missing YAML file is not an error; the
// returned Path is then "defaults".
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// .env is optional
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	source := l.path

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", l.path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		source = "defaults"
	default:
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: source}, nil
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.env("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := l.env("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if v, ok := l.env("OPENAI_API_KEY"); ok {
			cfg.LLM.APIKey = v
		}
	default:
		if v, ok := l.env("GEMINI_API_KEY"); ok {
			cfg.LLM.APIKey = v
		}
	}

	if v, ok := l.env("HF_API_TOKEN"); ok {
		for name, p := range cfg.Captioner.Providers {
			if p.Type == "huggingface" && p.APIKey == "" {
				p.APIKey = v
				cfg.Captioner.Providers[name] = p
			}
		}
	}
	if v, ok := l.env("OPENAI_API_KEY"); ok {
		for name, p := range cfg.Captioner.Providers {
			if p.Type == "openai" && p.APIKey == "" {
				p.APIKey = v
				cfg.Captioner.Providers[name] = p
			}
		}
	}

	if v, ok := l.env("PINECONE_API_KEY"); ok {
		cfg.Vector.Pinecone.APIKey = v
	}
	if v, ok := l.env("REDIS_ADDR"); ok {
		cfg.Vector.Redis.Addr = v
	}
	if v, ok := l.env("MINIO_ACCESS_KEY"); ok {
		cfg.Archive.Minio.AccessKey = v
	}
	if v, ok := l.env("MINIO_SECRET_KEY"); ok {
		cfg.Archive.Minio.SecretKey = v
	}
	if v, ok := l.env("JWT_SECRET"); ok {
		cfg.Auth.JWTSecret = v
	}
	return nil
}

var (
	captionerTypes = map[string]bool{"huggingface": true, "ollama": true, "openai": true}
	llmProviders   = map[string]bool{"gemini": true, "openai": true}
	vectorDrivers  = map[string]bool{"memory": true, "redis": true, "pinecone": true}
	archiveDrivers = map[string]bool{"none": true, "local": true, "minio": true}
)

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Upload.MaxBytes <= 0 || cfg.Upload.MedicalMaxBytes <= 0 {
		return fmt.Errorf("upload limits must be positive")
	}
	if len(cfg.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("upload.allowed_extensions must not be empty")
	}

	if _, ok := cfg.Captioner.Providers[cfg.Captioner.Provider]; !ok {
		return fmt.Errorf("captioner provider %q is not defined", cfg.Captioner.Provider)
	}
	for name, p := range cfg.Captioner.Providers {
		if !captionerTypes[p.Type] {
			return fmt.Errorf("captioner %q has unsupported type %q", name, p.Type)
		}
	}
	for imageType, name := range cfg.Captioner.Routes {
		if _, ok := cfg.Captioner.Providers[name]; !ok {
			return fmt.Errorf("captioner route %q points at unknown provider %q", imageType, name)
		}
	}

	if !llmProviders[strings.ToLower(cfg.LLM.Provider)] {
		return fmt.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
	if !vectorDrivers[cfg.Vector.Driver] {
		return fmt.Errorf("unsupported vector driver: %s", cfg.Vector.Driver)
	}
	if cfg.Vector.Dimension < 0 {
		return fmt.Errorf("vector dimension must not be negative")
	}
	if !archiveDrivers[cfg.Archive.Driver] {
		return fmt.Errorf("unsupported archive driver: %s", cfg.Archive.Driver)
	}
	if cfg.Storage.Driver != "sqlite" {
		return fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	return nil
}
