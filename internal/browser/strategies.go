// internal/browser/strategies.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/resolve"
)

// CSSPrefix marks a control selector as CSS instead of XPath.
const CSSPrefix = "css:"

// ControlSpec describes how to locate one navigation control (Next or
// Submit) on the current page.
type ControlSpec struct {
	Label          string
	XPaths         []string
	ContainerXPath string
	Script         bool
	// SubmitForm lets the script fallback submit the first form when no
	// labelled button exists.
	SubmitForm bool
	// BeforeScript runs just before the script fallback, e.g. to capture a
	// screenshot of the page that defeated the selectors.
	BeforeScript func(ctx context.Context)
}

// ControlStrategies returns the lookup strategies for a control in
// priority order: each selector, then the script fallback, then the last
// element of the navigation container.
func (s *Session) ControlStrategies(spec ControlSpec) []resolve.Strategy {
	strategies := make([]resolve.Strategy, 0, len(spec.XPaths)+2)
	for i, sel := range spec.XPaths {
		if css, ok := strings.CutPrefix(sel, CSSPrefix); ok {
			strategies = append(strategies, s.CSSStrategy(fmt.Sprintf("css[%d]", i), css))
			continue
		}
		strategies = append(strategies, s.XPathStrategy(fmt.Sprintf("xpath[%d]", i), sel))
	}
	if spec.Script && spec.Label != "" {
		strategies = append(strategies, s.ScriptStrategy(spec.Label, spec.SubmitForm, spec.BeforeScript))
	}
	if spec.ContainerXPath != "" {
		strategies = append(strategies, s.LastMatchStrategy(spec.ContainerXPath))
	}
	return strategies
}

// XPathStrategy clicks the first visible node matching xpath.
func (s *Session) XPathStrategy(name, xpath string) resolve.Strategy {
	return &queryStrategy{s: s, name: name, selector: xpath}
}

// CSSStrategy clicks the first visible node matching a CSS selector.
func (s *Session) CSSStrategy(name, selector string) resolve.Strategy {
	return &queryStrategy{s: s, name: name, selector: selector, css: true}
}

type queryStrategy struct {
	s        *Session
	name     string
	selector string
	css      bool
}

func (q *queryStrategy) Name() string { return q.name }

func (q *queryStrategy) Resolve(ctx context.Context) (resolve.Action, error) {
	var by chromedp.QueryOption = chromedp.BySearch
	if q.css {
		by = chromedp.ByQuery
	}
	nodes, err := q.s.findNodes(ctx, q.selector, by)
	if err != nil {
		return nil, fmt.Errorf("selector not found %q: %w", q.selector, err)
	}
	q.s.logger.Debug("Found control.", zap.String("strategy", q.name), zap.String("selector", q.selector))
	target := nodes[0]
	return resolve.ActionFunc(func(ctx context.Context) error {
		return q.s.clickNode(ctx, target)
	}), nil
}

// controlScript clicks the first role=button element whose text contains
// the label, or submits the first form when allowed. It reports what it
// did.
const controlScript = `(() => {
  const label = %s;
  const submitForm = %t;
  const buttons = document.querySelectorAll('div[role="button"]');
  for (const b of buttons) {
    if (b.textContent.includes(label)) {
      b.click();
      return "clicked";
    }
  }
  const forms = document.getElementsByTagName('form');
  if (submitForm && forms.length > 0) {
    forms[0].submit();
    return "submitted";
  }
  return "";
})()`

// ScriptStrategy clicks the labelled control from page script.
func (s *Session) ScriptStrategy(label string, submitForm bool, before func(ctx context.Context)) resolve.Strategy {
	return &scriptStrategy{s: s, label: label, submitForm: submitForm, before: before}
}

type scriptStrategy struct {
	s          *Session
	label      string
	submitForm bool
	before     func(ctx context.Context)
}

func (*scriptStrategy) Name() string { return "script" }

func (st *scriptStrategy) source() string {
	return fmt.Sprintf(controlScript, strconv.Quote(st.label), st.submitForm)
}

func (st *scriptStrategy) Resolve(ctx context.Context) (resolve.Action, error) {
	return resolve.ActionFunc(func(ctx context.Context) error {
		if st.before != nil {
			st.before(ctx)
		}
		var outcome string
		if err := st.s.RunScript(ctx, st.source(), &outcome); err != nil {
			return err
		}
		if outcome == "" {
			return fmt.Errorf("no %q button on page: %w", st.label, ErrNoElement)
		}
		st.s.logger.Debug("Script fallback acted.", zap.String("outcome", outcome))
		return nil
	}), nil
}

// LastMatchStrategy scrolls to the bottom of the page and clicks the last
// node matching xpath.
func (s *Session) LastMatchStrategy(xpath string) resolve.Strategy {
	return &lastMatchStrategy{s: s, xpath: xpath}
}

type lastMatchStrategy struct {
	s     *Session
	xpath string
}

func (*lastMatchStrategy) Name() string { return "last-match" }

func (l *lastMatchStrategy) Resolve(ctx context.Context) (resolve.Action, error) {
	if err := l.s.ScrollToBottom(ctx); err != nil {
		return nil, err
	}
	nodes, err := l.s.findNodes(ctx, l.xpath, chromedp.BySearch)
	if err != nil {
		if errors.Is(err, ErrNoElement) {
			return nil, err
		}
		return nil, fmt.Errorf("selector not found %q: %w", l.xpath, err)
	}
	last := nodes[len(nodes)-1]
	return resolve.ActionFunc(func(ctx context.Context) error {
		return l.s.clickNode(ctx, last)
	}), nil
}
