package trailsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 10, cfg.NormalBatchLimit)
	require.Equal(t, 5, cfg.SatelliteBatchLimit)
	require.Equal(t, 3, cfg.UltraBatchLimit)
	require.Equal(t, time.Second, cfg.BaseBackoff)
	require.Equal(t, 60*time.Second, cfg.MaxBackoff)
}

func TestLoadEnvConfigOverridesAndClamps(t *testing.T) {
	t.Setenv(EnvNormalBatchLimit, "20")
	t.Setenv(EnvSatelliteBatchLimit, "0")     // below floor, clamps to 1
	t.Setenv(EnvUltraBatchLimit, "9999")      // above ceiling, clamps to 100
	t.Setenv(EnvBaseBackoffMS, "250")
	t.Setenv(EnvMaxSendAttempts, "not-a-number") // falls back to default
	t.Setenv(EnvBackendMaxBatch, "50")

	cfg := LoadEnvConfig()
	require.Equal(t, 20, cfg.NormalBatchLimit)
	require.Equal(t, 1, cfg.SatelliteBatchLimit)
	require.Equal(t, 100, cfg.UltraBatchLimit)
	require.Equal(t, 250*time.Millisecond, cfg.BaseBackoff)
	require.Equal(t, 0, cfg.MaxSendAttempts)
	require.Equal(t, 50, cfg.BackendMaxMessageBatch)
}

func TestValidateRejectsLimitOverBackendMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NormalBatchLimit = 30
	cfg.BackendMaxMessageBatch = 25

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrConfig)
	require.Contains(t, err.Error(), "NormalBatchLimit")
}

func TestValidateRejectsBadBackoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBackoff = cfg.BaseBackoff - time.Millisecond
	require.ErrorIs(t, cfg.Validate(), ErrConfig)

	cfg = DefaultConfig()
	cfg.BaseBackoff = 0
	require.ErrorIs(t, cfg.Validate(), ErrConfig)
}

func TestValidateRejectsZeroBatchLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UltraBatchLimit = 0
	require.ErrorIs(t, cfg.Validate(), ErrConfig)
}
