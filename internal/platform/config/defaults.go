package config

import "time"

const (
	DefaultIndexName  = "alt-text-context"
	DefaultBLIPModel  = "Salesforce/blip-image-captioning-base"
	DefaultHFEndpoint = "https://api-inference.huggingface.co/models"
)

// DefaultConfig returns a configuration that runs locally with the memory
// vector store and the Hugging Face captioner.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            5000,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     60 * time.Second,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Upload: UploadConfig{
			Dir:               "uploads",
			MaxBytes:          16 << 20,
			MedicalMaxBytes:   32 << 20,
			AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
			MedicalExtensions: []string{"png", "jpg", "jpeg", "gif", "tiff", "dcm"},
		},
		Security: SecurityConfig{
			MaxWidth:       8192,
			MaxHeight:      8192,
			MaxPixels:      40_000_000,
			AllowedFormats: []string{"png", "jpeg", "gif", "webp", "bmp", "tiff"},
			EnableDeepScan: true,
		},
		Captioner: CaptionerConfig{
			Provider: "blip",
			Providers: map[string]CaptionProvider{
				"blip": {
					Type:    "huggingface",
					Model:   DefaultBLIPModel,
					BaseURL: DefaultHFEndpoint,
				},
			},
			Routes:  map[string]string{},
			Timeout: 60 * time.Second,
		},
		LLM: LLMConfig{
			Provider:        "gemini",
			TextModel:       "gemini-1.5-flash",
			VisionModel:     "gemini-1.5-flash-002",
			EmbeddingModel:  "text-embedding-004",
			Temperature:     0.7,
			MaxOutputTokens: 2048,
			Timeout:         90 * time.Second,
		},
		Vector: VectorConfig{
			Driver:    "memory",
			Index:     DefaultIndexName,
			Dimension: 512,
			Metric:    "cosine",
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "alttext:vector:",
			},
			Pinecone: PineconeConfig{
				ControlURL: "https://api.pinecone.io",
				Cloud:      "aws",
				Region:     "us-east-1",
			},
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "data/alttext.db",
		},
		Archive: ArchiveConfig{
			Driver: "none",
			Minio: MinioConfig{
				Endpoint: "127.0.0.1:9000",
				Bucket:   "alttext-uploads",
			},
		},
		TTS: TTSConfig{
			Voice: "en-US-AriaNeural",
		},
		Auth: AuthConfig{
			Enabled:  false,
			TokenTTL: 12 * time.Hour,
		},
	}
}
