package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.AIBaseURL)
	assert.Equal(t, defaultTextModels, cfg.TextModels)
	assert.Equal(t, defaultVisionModels, cfg.VisionModels)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "data/lpfolio.db", cfg.DatabasePath)
	assert.True(t, cfg.ClaimThreshold.IsPositive())
}

func TestLoadModelListParsing(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("AI_TEXT_MODELS", " model-a , model-b,,model-c ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"model-a", "model-b", "model-c"}, cfg.TextModels)
}

func TestLoadDurationAndDecimalOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("AI_REQUEST_TIMEOUT", "10s")
	t.Setenv("CLAIM_THRESHOLD", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "2.5", cfg.ClaimThreshold.String())
}
