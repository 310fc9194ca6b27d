// internal/resolve/resolve.go
// Package resolve implements an ordered fallback chain of element lookup
// strategies. Each strategy locates something to act on within a bounded
// wait; the first one whose action also succeeds wins.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/observability"
)

// Action is a resolved, ready-to-perform interaction such as a click.
type Action interface {
	Do(ctx context.Context) error
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context) error

// Do calls f(ctx).
func (f ActionFunc) Do(ctx context.Context) error { return f(ctx) }

// Strategy locates an element and returns the action to perform on it.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context) (Action, error)
}

type funcStrategy struct {
	name string
	fn   func(ctx context.Context) (Action, error)
}

func (s funcStrategy) Name() string                                { return s.name }
func (s funcStrategy) Resolve(ctx context.Context) (Action, error) { return s.fn(ctx) }

// StrategyFunc builds a named Strategy from a function.
func StrategyFunc(name string, fn func(ctx context.Context) (Action, error)) Strategy {
	return funcStrategy{name: name, fn: fn}
}

// Attempt records the failure of a single strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// ExhaustedError is returned when every strategy in a chain failed.
type ExhaustedError struct {
	Chain    string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Strategy
	}
	return fmt.Sprintf("%s: all %d strategies failed (%s)", e.Chain, len(e.Attempts), strings.Join(names, ", "))
}

// Unwrap exposes the per-strategy errors to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = fmt.Errorf("%s: %w", a.Strategy, a.Err)
	}
	return errors.Join(errs...)
}

// ErrNoStrategies is returned by Run on an empty chain.
var ErrNoStrategies = errors.New("resolve: chain has no strategies")

// Chain is an ordered list of strategies, highest priority first.
type Chain struct {
	Name       string
	Strategies []Strategy
	logger     *zap.Logger
}

// NewChain builds a chain. A nil logger disables logging.
func NewChain(name string, logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{Name: name, Strategies: strategies, logger: logger.With(zap.String(observability.KeyChain, name))}
}

// Run tries each strategy in order. Each one gets at most timeout to
// resolve and act; a non-positive timeout leaves only ctx as the bound.
// It returns the winning strategy's name, an *ExhaustedError when all of
// them failed, or the context error if ctx ended first.
func (c *Chain) Run(ctx context.Context, timeout time.Duration) (string, error) {
	if len(c.Strategies) == 0 {
		return "", ErrNoStrategies
	}

	exhausted := &ExhaustedError{Chain: c.Name}
	for _, s := range c.Strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		err := c.try(ctx, s, timeout)
		if err == nil {
			c.logger.Debug("Strategy succeeded.", zap.String("strategy", s.Name()))
			return s.Name(), nil
		}
		// The caller's context takes precedence over a per-strategy failure.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Debug("Strategy failed.", zap.String("strategy", s.Name()), zap.Error(err))
		exhausted.Attempts = append(exhausted.Attempts, Attempt{Strategy: s.Name(), Err: err})
	}
	return "", exhausted
}

func (c *Chain) try(ctx context.Context, s Strategy, timeout time.Duration) error {
	opCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	action, err := s.Resolve(opCtx)
	if err != nil {
		return err
	}
	if action == nil {
		return errors.New("strategy resolved no action")
	}
	return action.Do(opCtx)
}
