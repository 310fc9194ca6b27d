// internal/humanoid/pacer.go
// Package humanoid paces the submission loop so interactions are spaced
// like a person filling in a form: a random pause between submissions, an
// optional ceiling on submissions per minute, and short, smoothly varying
// hesitations before clicks.
package humanoid

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/formpilot/internal/config"
)

// Perlin parameters for the hesitation drift.
const (
	noiseAlpha = 2.0
	noiseBeta  = 2.0
	noiseN     = int32(3)
	noiseStep  = 0.37
)

// Pacer spaces out actions. It is safe for concurrent use.
type Pacer struct {
	min, max time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	noise *perlin.Perlin
	t     float64

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer builds a pacer from the submit settings. A zero rate disables
// the per-minute ceiling.
func NewPacer(cfg config.SubmitConfig, rng *rand.Rand, logger *zap.Logger) *Pacer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p := &Pacer{
		min:    cfg.PauseMin,
		max:    cfg.PauseMax,
		logger: logger.Named("pacer"),
		rng:    rng,
		noise:  perlin.NewPerlin(noiseAlpha, noiseBeta, noiseN, rng.Int63()),
		sleep:  Sleep,
	}
	if p.max < p.min {
		p.max = p.min
	}
	if cfg.RatePerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60.0), 1)
	}
	return p
}

// Between waits before the next submission: a uniform pause in
// [PauseMin, PauseMax], then the rate limiter if one is configured.
func (p *Pacer) Between(ctx context.Context) error {
	d := p.pauseDuration()
	p.logger.Debug("Pausing between submissions.", zap.Duration("pause", d))
	if err := p.sleep(ctx, d); err != nil {
		return err
	}
	return p.Wait(ctx)
}

// Wait blocks until the rate limiter admits another submission.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Hesitate pauses for roughly base before an interaction. Consecutive
// hesitations drift smoothly between half and one and a half times base.
func (p *Pacer) Hesitate(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	return p.sleep(ctx, p.hesitation(base))
}

func (p *Pacer) pauseDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	span := p.max - p.min
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(p.rng.Int63n(int64(span)+1))
}

func (p *Pacer) hesitation(base time.Duration) time.Duration {
	p.mu.Lock()
	p.t += noiseStep
	n := p.noise.Noise1D(p.t)
	p.mu.Unlock()

	factor := 1.0 + math.Max(-0.5, math.Min(0.5, n))
	return time.Duration(float64(base) * factor)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
