package config

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rmanova/internal/errors"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"RMANOVA_WORKERS", "RMANOVA_CHUNK_SIZE", "RMANOVA_TOLERANCE", "RMANOVA_ADDR", "RMANOVA_MAX_BODY_BYTES", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cfg.Engine.Workers, 1)
	assert.Equal(t, 4096, cfg.Engine.ChunkSize)
	assert.Equal(t, 1e-6, cfg.Verify.Tolerance)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("RMANOVA_WORKERS", "3")
	t.Setenv("RMANOVA_CHUNK_SIZE", "128")
	t.Setenv("RMANOVA_TOLERANCE", "1e-8")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.Workers)
	assert.Equal(t, 128, cfg.Engine.ChunkSize)
	assert.Equal(t, 1e-8, cfg.Verify.Tolerance)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"RMANOVA_WORKERS":   "0",
		"RMANOVA_TOLERANCE": "-1",
		"LOG_LEVEL":         "loud",
		"LOG_FORMAT":        "xml",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromEnv()
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid))
		})
	}
}

func TestFromEnv_Malformed(t *testing.T) {
	cases := map[string]string{
		"RMANOVA_WORKERS":        "four",
		"RMANOVA_CHUNK_SIZE":     "1.5",
		"RMANOVA_TOLERANCE":      "tiny",
		"RMANOVA_MAX_BODY_BYTES": "64MB",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			cfg, err := FromEnv()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, stderrors.Is(err, errors.ErrConfigInvalid))
			assert.Contains(t, err.Error(), key)
		})
	}
}
