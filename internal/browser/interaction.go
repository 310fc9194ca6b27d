// internal/browser/interaction.go
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrNoElement is returned when a lookup matched nothing.
var ErrNoElement = errors.New("no matching element")

// RadioGroups counts the options of each question container, in document
// order.
func (s *Session) RadioGroups(ctx context.Context, questionSel, optionSel string) ([]int, error) {
	groups, err := s.queryAll(ctx, questionSel, nil)
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(groups))
	for i, g := range groups {
		options, err := s.queryAll(ctx, optionSel, g)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		counts[i] = len(options)
	}
	return counts, nil
}

// ChooseRadio scrolls the option into view and clicks it. A click that
// fails is retried once through page script.
func (s *Session) ChooseRadio(ctx context.Context, questionSel, optionSel string, group, option int) error {
	groups, err := s.queryAll(ctx, questionSel, nil)
	if err != nil {
		return err
	}
	if group < 0 || group >= len(groups) {
		return fmt.Errorf("question %d: %w", group+1, ErrNoElement)
	}
	options, err := s.queryAll(ctx, optionSel, groups[group])
	if err != nil {
		return err
	}
	if option < 0 || option >= len(options) {
		return fmt.Errorf("question %d option %d: %w", group+1, option+1, ErrNoElement)
	}
	return s.clickNode(ctx, options[option])
}

// clickNode scrolls n to the center of the viewport and clicks it, falling
// back to a script click.
func (s *Session) clickNode(ctx context.Context, n *cdp.Node) error {
	if err := s.callOnNode(ctx, n, `function() { this.scrollIntoView({block: 'center'}); }`); err != nil {
		s.logger.Debug("Scroll into view failed.", zap.Error(err))
	}
	if err := s.pause(ctx, s.opts.ClickPause); err != nil {
		return err
	}

	clickErr := s.runActions(ctx, chromedp.MouseClickNode(n))
	if clickErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logger.Debug("Direct click failed, using script click.", zap.Error(clickErr))
	if err := s.callOnNode(ctx, n, `function() { this.click(); }`); err != nil {
		return fmt.Errorf("click failed: %w", errors.Join(clickErr, err))
	}
	return nil
}

// callOnNode runs a function declaration with the node bound to this.
func (s *Session) callOnNode(ctx context.Context, n *cdp.Node, fn string) error {
	return s.runActions(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		_, exc, err := runtime.CallFunctionOn(fn).WithObjectID(obj.ObjectID).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		return nil
	}))
}

// queryAll returns the nodes matching a CSS selector without waiting,
// optionally scoped to a parent node.
func (s *Session) queryAll(ctx context.Context, selector string, parent *cdp.Node) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}
	if err := s.runActions(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return nodes, nil
}

// findNodes waits until sel matches at least one visible node.
func (s *Session) findNodes(ctx context.Context, sel string, by chromedp.QueryOption) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := s.runActions(ctx,
		chromedp.WaitVisible(sel, by),
		chromedp.Nodes(sel, &nodes, by),
	); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNoElement
	}
	return nodes, nil
}
