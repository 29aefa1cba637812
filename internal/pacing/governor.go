// Package pacing computes and enforces inter-request delay: per-attempt
// adaptive delay with jitter, a pool-wide minimum spacing between any two
// outbound requests, and extended cooldowns after defense verdicts.
package pacing

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/corpuslab/quantang-cli/internal/config"
)

// Governor paces outbound requests. It is safe for concurrent use: the
// global floor is enforced by a shared rate limiter regardless of how
// many identities or workers are active.
type Governor struct {
	cfg   config.PacingConfig
	rng   *rand.Rand
	floor *rate.Limiter
}

// NewGovernor builds a governor from config. The random source is
// injected so jitter draws are deterministic under test.
func NewGovernor(cfg config.PacingConfig, rng *rand.Rand) *Governor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	floor := rate.NewLimiter(rate.Inf, 1)
	if cfg.GlobalFloorMs > 0 {
		interval := time.Duration(cfg.GlobalFloorMs) * time.Millisecond
		floor = rate.NewLimiter(rate.Every(interval), 1)
	}
	return &Governor{cfg: cfg, rng: rng, floor: floor}
}

// Delay computes the pre-request delay for the given retry index:
// clamp(base + jitter + extra_jitter, 0, max) * min(1 + retry*k, cap).
func (g *Governor) Delay(retryIndex int) time.Duration {
	d := time.Duration(g.cfg.BaseDelayMs) * time.Millisecond
	d += g.uniform(g.cfg.JitterMinMs, g.cfg.JitterMaxMs)
	d += g.uniform(0, g.cfg.ExtraJitterMaxMs)

	if maxDelay := time.Duration(g.cfg.MaxDelayMs) * time.Millisecond; maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	if d < 0 {
		d = 0
	}

	mult := 1 + float64(retryIndex)*g.cfg.RetryFactor
	if g.cfg.MultiplierCap > 0 && mult > g.cfg.MultiplierCap {
		mult = g.cfg.MultiplierCap
	}
	return time.Duration(float64(d) * mult)
}

// Wait sleeps the computed delay, then blocks on the global inter-request
// floor. Consulted before every network call.
func (g *Governor) Wait(ctx context.Context, retryIndex int) error {
	if err := sleep(ctx, g.Delay(retryIndex)); err != nil {
		return err
	}
	if err := g.floor.Wait(ctx); err != nil {
		return eris.Wrap(err, "pacing: global floor wait")
	}
	return nil
}

// Cooldown imposes the extended pause after a Blocked/Captcha/403
// verdict, drawn uniformly from the configured cooldown range.
func (g *Governor) Cooldown(ctx context.Context) error {
	d := g.uniform(g.cfg.CooldownMinMs, g.cfg.CooldownMaxMs)
	zap.L().Info("pacing: defense cooldown", zap.Duration("duration", d))
	return sleep(ctx, d)
}

// Backoff sleeps the short transport-failure backoff, scaled by how many
// retries the target has already burned.
func (g *Governor) Backoff(ctx context.Context, retryIndex int) error {
	d := time.Duration(g.cfg.BackoffMs) * time.Millisecond * time.Duration(retryIndex+1)
	return sleep(ctx, d)
}

func (g *Governor) uniform(minMs, maxMs int) time.Duration {
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	ms := minMs + g.rng.IntN(maxMs-minMs+1)
	return time.Duration(ms) * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
