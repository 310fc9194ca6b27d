// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pauser spaces out interactions. humanoid.Pacer satisfies it.
type Pauser interface {
	Hesitate(ctx context.Context, base time.Duration) error
}

// SessionOptions tune the timing of page interactions.
type SessionOptions struct {
	NavigationTimeout time.Duration
	ScrollPause       time.Duration
	ClickPause        time.Duration
	// Pauser, when set, replaces fixed pauses with varied ones.
	Pauser Pauser
}

// Session is a single browser tab. All submissions of a run share one.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	opts   SessionOptions
}

func newSession(allocatorCtx context.Context, logger *zap.Logger, opts SessionOptions) (*Session, error) {
	id := uuid.NewString()
	l := logger.With(zap.String("session_id", id))

	ctx, cancel := chromedp.NewContext(allocatorCtx, chromedp.WithLogf(l.Sugar().Debugf))
	// The first Run starts the tab.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 60 * time.Second
	}
	return &Session{id: id, ctx: ctx, cancel: cancel, logger: l, opts: opts}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Close closes the tab.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// runActions executes chromedp actions bound to both the tab lifetime and
// the caller's context.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		// Report the caller's cancellation rather than the derived one.
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, context.Canceled) {
			return ctxErr
		}
	}
	return err
}

// Navigate loads url and waits for the document to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating session.", zap.String("url", url))

	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	if err := s.runActions(navCtx, chromedp.Navigate(url)); err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, s.opts.NavigationTimeout, navCtx.Err())
		}
		if ctx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// WaitReady waits until selector matches an element in the document.
func (s *Session) WaitReady(ctx context.Context, selector string) error {
	if err := s.runActions(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	return nil
}

// Location returns the current document URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.runActions(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("could not read location: %w", err)
	}
	return loc, nil
}

// HTML returns the serialized document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.runActions(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("could not read document: %w", err)
	}
	return html, nil
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.runActions(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("could not capture screenshot: %w", err)
	}
	return buf, nil
}

// ScrollToBottom scrolls the window to the end of the document.
func (s *Session) ScrollToBottom(ctx context.Context) error {
	if err := s.runActions(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil)); err != nil {
		return fmt.Errorf("could not scroll: %w", err)
	}
	return s.pause(ctx, s.opts.ScrollPause)
}

// RunScript evaluates expression and stores its result in res, which may
// be nil.
func (s *Session) RunScript(ctx context.Context, expression string, res interface{}) error {
	if err := s.runActions(ctx, chromedp.Evaluate(expression, res)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

func (s *Session) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if s.opts.Pauser != nil {
		return s.opts.Pauser.Hesitate(ctx, d)
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

// CombineContext returns a context derived from ctx1, whose values it
// keeps, that is canceled when either ctx1 or ctx2 is done. chromedp needs
// ctx1 for the target while ctx2 carries the operation deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)
	if deadline, ok := ctx2.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, deadline)
		inner := cancel
		cancel = func() { cancelDeadline(); inner() }
	}

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
