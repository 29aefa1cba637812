package pacing

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpuslab/quantang-cli/internal/config"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(7, 13))
}

func TestDelay_WithinJitterBounds(t *testing.T) {
	cfg := config.PacingConfig{
		BaseDelayMs:      2000,
		JitterMinMs:      500,
		JitterMaxMs:      2000,
		ExtraJitterMaxMs: 1000,
		MaxDelayMs:       8000,
		RetryFactor:      0.3,
		MultiplierCap:    2.0,
	}
	g := NewGovernor(cfg, testRNG())

	for range 200 {
		d := g.Delay(0)
		assert.GreaterOrEqual(t, d, 2500*time.Millisecond)
		assert.LessOrEqual(t, d, 5000*time.Millisecond)
	}
}

func TestDelay_RetryMultiplier(t *testing.T) {
	// Jitter ranges collapsed to zero so the multiplier is observable.
	cfg := config.PacingConfig{
		BaseDelayMs:   1000,
		RetryFactor:   0.3,
		MultiplierCap: 2.0,
	}
	g := NewGovernor(cfg, testRNG())

	assert.Equal(t, 1000*time.Millisecond, g.Delay(0))
	assert.Equal(t, 1600*time.Millisecond, g.Delay(2))
	// retry 10 would be 4x, capped at 2x
	assert.Equal(t, 2000*time.Millisecond, g.Delay(10))
}

func TestDelay_ClampedBeforeMultiplier(t *testing.T) {
	cfg := config.PacingConfig{
		BaseDelayMs:   10000,
		MaxDelayMs:    8000,
		RetryFactor:   0.3,
		MultiplierCap: 2.0,
	}
	g := NewGovernor(cfg, testRNG())

	// Clamp applies to the jittered delay; the retry multiplier may then
	// exceed the clamp.
	assert.Equal(t, 8000*time.Millisecond, g.Delay(0))
	assert.Equal(t, 16000*time.Millisecond, g.Delay(10))
}

func TestWait_Cancelled(t *testing.T) {
	cfg := config.PacingConfig{BaseDelayMs: 60000}
	g := NewGovernor(cfg, testRNG())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Wait(ctx, 0)
	require.Error(t, err)
}

func TestWait_ZeroConfigReturnsImmediately(t *testing.T) {
	g := NewGovernor(config.PacingConfig{}, testRNG())

	start := time.Now()
	require.NoError(t, g.Wait(context.Background(), 0))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCooldown_WithinRange(t *testing.T) {
	cfg := config.PacingConfig{CooldownMinMs: 1, CooldownMaxMs: 5}
	g := NewGovernor(cfg, testRNG())

	require.NoError(t, g.Cooldown(context.Background()))
}

func TestBackoff_ScalesWithRetries(t *testing.T) {
	cfg := config.PacingConfig{BackoffMs: 1}
	g := NewGovernor(cfg, testRNG())

	start := time.Now()
	require.NoError(t, g.Backoff(context.Background(), 2))
	assert.GreaterOrEqual(t, time.Since(start), 3*time.Millisecond)
}
