package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "messaging.events", cfg.AMQPExchange)
	assert.Equal(t, 1200*time.Millisecond, cfg.TypingTTL)
	assert.Equal(t, 15*time.Minute, cfg.SignedURLTTL)
	assert.False(t, cfg.DebugRoutes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TYPING_TTL", "3s")
	t.Setenv("DEBUG_ROUTES", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.TypingTTL)
	assert.True(t, cfg.DebugRoutes)
}
