// internal/confirm/confirm.go
// Package confirm decides whether a submitted form reached its confirmation
// state, from the page text or the resulting URL.
package confirm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
)

// Markers are the signals of a recorded response.
type Markers struct {
	Phrases    []string
	URLMarkers []string
}

// MarkersFromConfig copies the markers out of the confirm settings.
func MarkersFromConfig(cfg config.ConfirmConfig) Markers {
	return Markers{Phrases: cfg.Phrases, URLMarkers: cfg.URLMarkers}
}

// Signal names what produced a confirmation.
type Signal string

const (
	SignalNone   Signal = ""
	SignalPhrase Signal = "phrase"
	SignalURL    Signal = "url"
)

// Outcome is the result of a confirmation check.
type Outcome struct {
	Confirmed bool
	Signal    Signal
	Marker    string
}

// Match reports whether the page text contains any phrase or the URL
// contains any URL marker. Script and style contents are not page text. Unparseable HTML only disables the phrase check.
func Match(html, url string, m Markers) Outcome {
	for _, marker := range m.URLMarkers {
		if marker != "" && strings.Contains(url, marker) {
			return Outcome{Confirmed: true, Signal: SignalURL, Marker: marker}
		}
	}
	if html == "" || len(m.Phrases) == 0 {
		return Outcome{}
	}

	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return Outcome{}
	}
	for _, phrase := range m.Phrases {
		if phrase == "" {
			continue
		}
		expr := fmt.Sprintf("//*[not(self::script) and not(self::style)][contains(text(), %s)]", xpathLiteral(phrase))
		node, err := htmlquery.Query(doc, expr)
		if err == nil && node != nil {
			return Outcome{Confirmed: true, Signal: SignalPhrase, Marker: phrase}
		}
	}
	return Outcome{}
}

// xpathLiteral quotes s for use in an XPath 1.0 expression, which has no
// escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// Page is the view of the browser the checker needs.
type Page interface {
	Location(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
}

// Checker polls a page until it confirms or the timeout passes.
type Checker struct {
	markers  Markers
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewChecker builds a checker from the confirm settings.
func NewChecker(cfg config.ConfirmConfig, logger *zap.Logger) *Checker {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		markers:  MarkersFromConfig(cfg),
		timeout:  timeout,
		interval: interval,
		logger:   logger.Named("confirm"),
	}
}

// Await polls the page. Running out of time yields an unconfirmed outcome,
// not an error; only cancellation of ctx is returned as one.
func (c *Checker) Await(ctx context.Context, page Page) (Outcome, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if out := c.check(waitCtx, page); out.Confirmed {
			c.logger.Debug("Confirmation found.", zap.String("signal", string(out.Signal)), zap.String("marker", out.Marker))
			return out, nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
			c.logger.Debug("Confirmation timed out.", zap.Duration("timeout", c.timeout))
			return Outcome{}, nil
		}
	}
}

func (c *Checker) check(ctx context.Context, page Page) Outcome {
	url, err := page.Location(ctx)
	if err != nil {
		c.logger.Debug("Could not read location.", zap.Error(err))
	}
	if out := Match("", url, c.markers); out.Confirmed {
		return out
	}
	html, err := page.HTML(ctx)
	if err != nil {
		c.logger.Debug("Could not read document.", zap.Error(err))
		return Outcome{}
	}
	return Match(html, url, c.markers)
}
