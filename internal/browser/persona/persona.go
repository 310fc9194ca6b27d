// internal/browser/persona/persona.go
// Package persona presents the configured user agent and locale settings
// to every page a session loads.
package persona

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
)

// Persona defines the browser characteristics presented to the form host.
type Persona struct {
	UserAgent string
	Platform  string
	Languages []string
	Timezone  string
	Locale    string
}

// Default is used for any value the configuration leaves empty.
var Default = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	Platform:  "Win32",
	Languages: []string{"en-US", "en"},
	Locale:    "en-US",
}

// FromConfig builds a persona from the browser settings.
func FromConfig(cfg config.BrowserConfig) Persona {
	p := Default
	if cfg.UserAgent != "" {
		p.UserAgent = cfg.UserAgent
	}
	if cfg.Platform != "" {
		p.Platform = cfg.Platform
	}
	if len(cfg.Languages) > 0 {
		p.Languages = cfg.Languages
	}
	if cfg.Timezone != "" {
		p.Timezone = cfg.Timezone
	}
	if cfg.Locale != "" {
		p.Locale = cfg.Locale
	}
	return p
}

// AcceptLanguage renders the languages as an Accept-Language header value
// with descending quality weights, e.g. "en-US,en;q=0.9".
func (p Persona) AcceptLanguage() string {
	if len(p.Languages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.Languages[0])
	for i := 1; i < len(p.Languages); i++ {
		q := 1.0 - float64(i)*0.1
		if q < 0.5 {
			q = 0.5
		}
		fmt.Fprintf(&b, ",%s;q=%.1f", p.Languages[i], q)
	}
	return b.String()
}

// Apply returns the CDP actions that present the persona to the target.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying browser persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("platform", p.Platform),
	)

	al := p.AcceptLanguage()
	tasks := chromedp.Tasks{
		emulation.SetUserAgentOverride(p.UserAgent).
			WithPlatform(p.Platform).
			WithAcceptLanguage(al),
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(strings.ReplaceAll(p.Locale, "_", "-")))
	}
	if al != "" {
		tasks = append(tasks, network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": al}))
	}
	return tasks
}
