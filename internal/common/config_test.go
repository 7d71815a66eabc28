package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("ROW_HEIGHT_FACTOR", "")
	t.Setenv("DATE_ANCHOR_X", "")

	cfg := LoadConfig()

	assert.Contains(t, cfg.Database.DSN, "bills.db")
	assert.Equal(t, 0.8, cfg.Extraction.RowHeightFactor)
	assert.Equal(t, 15.0, cfg.Extraction.FallbackRowThreshold)
	assert.Equal(t, 250.0, cfg.Extraction.DateAnchorX)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://u:p@localhost:5432/bills")
	t.Setenv("DATE_ANCHOR_X", "310.5")
	t.Setenv("INGEST_PROCESS_TIMEOUT", "45s")
	t.Setenv("VALIDATE_SCHEMA", "false")
	t.Setenv("OCR_ENGINE", "Azure")
	t.Setenv("AZURE_VISION_ENDPOINT", "https://example.cognitiveservices.azure.com/")
	t.Setenv("AZURE_VISION_KEY", "k")

	cfg := LoadConfig()

	assert.True(t, IsPostgresDSN(cfg.Database.DSN))
	assert.Equal(t, 310.5, cfg.Extraction.DateAnchorX)
	assert.Equal(t, 45*time.Second, cfg.Ingest.ProcessTimeout)
	assert.False(t, cfg.Extraction.ValidateSchema)
	assert.Equal(t, "azure", cfg.OCR.Engine)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "paddle" }},
		{"azure without key", func(c *Config) { c.OCR.Engine = "azure"; c.OCR.AzureKey = "" }},
		{"zero row factor", func(c *Config) { c.Extraction.RowHeightFactor = 0 }},
		{"no workers", func(c *Config) { c.Ingest.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var appErr *AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "CONFIG_ERROR", appErr.Code)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
