package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/appealai/ticket-intake/constants"
)

// Config holds all application configuration
type Config struct {
	Server Server
	Upload Upload
	OCR    OCR
	Events Events
	Queue  Queue
}

// Server holds HTTP server configuration
type Server struct {
	Addr            string
	LogLevel        string
	RatePerSec      float64
	RateBurst       int
	ShutdownTimeout time.Duration
}

// Upload holds the validation policy for incoming files.
// AllowedTypes is an exact-membership set; MaxSizeMB converts to bytes
// at 1,048,576 bytes per MB.
type Upload struct {
	AllowedTypes []string
	MaxSizeMB    int
}

// MaxSizeBytes returns the upload ceiling in bytes.
func (u Upload) MaxSizeBytes() int64 {
	return int64(u.MaxSizeMB) * constants.BytesPerMB
}

// Allows reports whether the declared media type is accepted.
func (u Upload) Allows(mediaType string) bool {
	for _, t := range u.AllowedTypes {
		if t == mediaType {
			return true
		}
	}
	return false
}

// OCR holds recognition-engine configuration
type OCR struct {
	Tesseract   string
	Language    string
	TessdataDir string
	PSM         int
	OEM         int
}

// Events holds optional NATS publisher configuration
type Events struct {
	NATSURL string
	Subject string
}

// Queue holds worker pool configuration
type Queue struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: Server{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			RatePerSec:      getEnvAsFloat64("UPLOAD_RATE_PER_SEC", 5),
			RateBurst:       getEnvAsInt("UPLOAD_RATE_BURST", 10),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Upload: Upload{
			AllowedTypes: getEnvAsList("ALLOWED_MEDIA_TYPES", constants.DefaultAllowedMediaTypes),
			MaxSizeMB:    getEnvAsInt("MAX_UPLOAD_MB", constants.DefaultMaxUploadMB),
		},
		OCR: OCR{
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Language:    getEnv("OCR_LANG", "eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			PSM:         getEnvAsInt("OCR_PSM", 0),
			OEM:         getEnvAsInt("OCR_OEM", 0),
		},
		Events: Events{
			NATSURL: getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_SUBJECT", "intake.completed"),
		},
		Queue: Queue{
			Workers:        getEnvAsInt("QUEUE_WORKERS", 4),
			Size:           getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return NewAppError("CONFIG_ERROR", "ALLOWED_MEDIA_TYPES must name at least one type", ErrInvalidInput)
	}
	if c.Upload.MaxSizeMB <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_UPLOAD_MB must be positive", ErrInvalidInput)
	}
	if c.Queue.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "QUEUE_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
