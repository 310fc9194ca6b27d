// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/browser/persona"
	"github.com/xkilldash9x/formpilot/internal/config"
)

// Manager owns the Chrome process. Sessions (tabs) are derived from its
// allocator context.
type Manager struct {
	logger  *zap.Logger
	cfg     config.BrowserConfig
	persona persona.Persona

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
}

// NewManager launches the browser and verifies it responds.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		logger:  logger.Named("browser"),
		cfg:     cfg,
		persona: persona.FromConfig(cfg),
	}
	if err := m.launch(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launch(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator.", zap.Bool("headless", m.cfg.Headless))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(m.cfg)...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	timeout := m.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	testCtx, cancelTest := context.WithTimeout(allocCtx, timeout)
	defer cancelTest()
	testCtx, cancelTab := chromedp.NewContext(testCtx)
	defer cancelTab()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// DefaultAllocatorOptions assembles the Chrome flags for the configured
// browser on top of chromedp's defaults.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	// Later flags replace earlier ones with the same name, so the defaults
	// can be overridden in place. A false boolean flag is omitted.
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags := allocatorFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	width, height := cfg.WindowWidth, cfg.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}

	flags := map[string]interface{}{
		"headless":                  cfg.Headless,
		"ignore-certificate-errors": cfg.IgnoreTLSErrors,
		"disable-extensions":        true,
		"disable-gpu":               true,
		"window-size":               fmt.Sprintf("%d,%d", width, height),
	}
	if cfg.UserAgent != "" {
		flags["user-agent"] = cfg.UserAgent
	}

	// Custom arguments from config.yaml.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}

	// Required when running inside containers.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}
	return flags
}

// NewSession opens a tab and applies the persona to it.
func (m *Manager) NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	s, err := newSession(m.allocatorCtx, m.logger, opts)
	if err != nil {
		return nil, err
	}
	if err := s.runActions(ctx, persona.Apply(m.persona, s.logger)); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to apply browser persona: %w", err)
	}
	return s, nil
}

// Shutdown terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.allocatorCancel == nil {
		return nil
	}
	m.logger.Info("Shutting down browser process.")
	m.allocatorCancel()
	select {
	case <-m.allocatorCtx.Done():
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded before the browser exited.", zap.Error(ctx.Err()))
		return ctx.Err()
	}
	return nil
}
