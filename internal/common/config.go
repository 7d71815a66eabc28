package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	OCR        OCRConfig
	Extraction ExtractionConfig
	Ingest     IngestConfig
}

// DatabaseConfig holds database-related configuration.
// DSN selects the backend: postgres:// and postgresql:// use pgx, anything else is a SQLite DSN.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	AutoMigrate      bool
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	HTTPAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine           string // "tesseract" | "azure"
	Pdftoppm         string
	Tesseract        string
	TesseractLang    string
	TessdataDir      string
	DPI              int
	MaxPages         int
	PSM              int
	Preprocess       bool
	ArtifactCacheDir string
	AzureEndpoint    string
	AzureKey         string
}

// ExtractionConfig holds the layout constants and output checks.
type ExtractionConfig struct {
	RowHeightFactor      float64
	FallbackRowThreshold float64
	DateAnchorX          float64
	ValidateSchema       bool
}

// IngestConfig holds queue and filesystem ingestion settings.
type IngestConfig struct {
	UploadDir      string
	WatchDir       string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from a .env file (if present) and environment variables.
// Variables already set in the environment win over .env entries.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "file:bills.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			AutoMigrate:      getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr: getEnv("HTTP_ADDR", ":8081"),
		},
		OCR: OCRConfig{
			Engine:           strings.ToLower(getEnv("OCR_ENGINE", "tesseract")),
			Pdftoppm:         getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:    getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			DPI:              getEnvAsInt("OCR_DPI", 300),
			MaxPages:         getEnvAsInt("OCR_MAX_PAGES", 0),
			PSM:              getEnvAsInt("TESSERACT_PSM", 6),
			Preprocess:       getEnvAsBool("OCR_PREPROCESS", true),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
			AzureEndpoint:    getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:         getEnv("AZURE_VISION_KEY", ""),
		},
		Extraction: ExtractionConfig{
			RowHeightFactor:      getEnvAsFloat64("ROW_HEIGHT_FACTOR", 0.8),
			FallbackRowThreshold: getEnvAsFloat64("ROW_THRESHOLD_FALLBACK", 15),
			DateAnchorX:          getEnvAsFloat64("DATE_ANCHOR_X", 250),
			ValidateSchema:       getEnvAsBool("VALIDATE_SCHEMA", true),
		},
		Ingest: IngestConfig{
			UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
			WatchDir:       getEnv("WATCH_DIR", ""),
			Workers:        getEnvAsInt("INGEST_WORKERS", 4),
			QueueSize:      getEnvAsInt("INGEST_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("INGEST_PROCESS_TIMEOUT", 3*time.Minute),
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "tesseract":
	case "azure":
		if c.OCR.AzureEndpoint == "" || c.OCR.AzureKey == "" {
			return NewAppError("CONFIG_ERROR", "AZURE_VISION_ENDPOINT and AZURE_VISION_KEY are required for the azure engine", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be tesseract or azure", ErrInvalidInput)
	}
	if c.Extraction.RowHeightFactor <= 0 {
		return NewAppError("CONFIG_ERROR", "ROW_HEIGHT_FACTOR must be positive", ErrInvalidInput)
	}
	if c.Extraction.FallbackRowThreshold <= 0 {
		return NewAppError("CONFIG_ERROR", "ROW_THRESHOLD_FALLBACK must be positive", ErrInvalidInput)
	}
	if c.Ingest.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "INGEST_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}

// IsPostgresDSN reports whether dsn targets Postgres rather than SQLite.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
