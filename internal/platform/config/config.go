package config

import (
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Upload    UploadConfig    `yaml:"upload"`
	Security  SecurityConfig  `yaml:"security"`
	Captioner CaptionerConfig `yaml:"captioner"`
	LLM       LLMConfig       `yaml:"llm"`
	Vector    VectorConfig    `yaml:"vector"`
	Storage   StorageConfig   `yaml:"storage"`
	Archive   ArchiveConfig   `yaml:"archive"`
	TTS       TTSConfig       `yaml:"tts"`
	Auth      AuthConfig      `yaml:"auth"`
}

type ServerConfig struct {
	IP              string        `yaml:"ip"`
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// UploadConfig bounds multipart uploads per route family.
type UploadConfig struct {
	Dir               string   `yaml:"dir"`
	MaxBytes          int64    `yaml:"max_bytes"`
	MedicalMaxBytes   int64    `yaml:"medical_max_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	MedicalExtensions []string `yaml:"medical_extensions"`
}

// SecurityConfig bounds decoded image dimensions.
type SecurityConfig struct {
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	MaxPixels      int64    `yaml:"max_pixels"`
	AllowedFormats []string `yaml:"allowed_formats"`
	EnableDeepScan bool     `yaml:"enable_deep_scan"`
}

// CaptionerConfig selects the default captioner and optional per image
// type overrides.
type CaptionerConfig struct {
	Provider  string                     `yaml:"provider"`
	Providers map[string]CaptionProvider `yaml:"providers"`
	Routes    map[string]string          `yaml:"routes"`
	Timeout   time.Duration              `yaml:"timeout"`
}

type CaptionProvider struct {
	Type    string `yaml:"type"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Prompt  string `yaml:"prompt"`
}

type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"url"`
	TextModel       string        `yaml:"text_model"`
	VisionModel     string        `yaml:"vision_model"`
	EmbeddingModel  string        `yaml:"embedding_model"`
	Temperature     float32       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

type VectorConfig struct {
	Driver    string         `yaml:"driver"`
	Index     string         `yaml:"index"`
	Dimension int            `yaml:"dimension"`
	Metric    string         `yaml:"metric"`
	Namespace string         `yaml:"namespace"`
	Redis     RedisConfig    `yaml:"redis"`
	Pinecone  PineconeConfig `yaml:"pinecone"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type PineconeConfig struct {
	APIKey     string `yaml:"api_key"`
	ControlURL string `yaml:"control_url"`
	Host       string `yaml:"host"`
	Cloud      string `yaml:"cloud"`
	Region     string `yaml:"region"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ArchiveConfig struct {
	Driver string      `yaml:"driver"`
	Minio  MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type TTSConfig struct {
	Voice string `yaml:"voice"`
}

type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	JWTSecret  string        `yaml:"jwt_secret"`
	AdminToken string        `yaml:"admin_token"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
}
