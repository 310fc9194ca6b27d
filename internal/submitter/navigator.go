// internal/submitter/navigator.go
package submitter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/browser"
	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/form"
	"github.com/xkilldash9x/formpilot/internal/resolve"
)

// advance is the result of leaving a page.
type advance int

const (
	advanceNone      advance = iota // still on the page
	advanceNext                     // moved to the following page
	advanceSubmitted                // the submit control was used
	advanceMissed                   // final page, submit control not found
)

// navigator performs the per-page steps of one attempt.
type navigator struct {
	page      Page
	nav       config.NavigationConfig
	form      config.FormConfig
	picker    *form.Picker
	randomize bool
	shots     *screenshots
	logger    *zap.Logger
	attempt   int

	// used collects the winning strategy of every chain run.
	used []string
	// captured lists the screenshots taken during the attempt.
	captured []string
}

// answerPage selects one radio option per question container on the
// current page. offset is the survey index of the page's first question.
// It returns the number of containers found.
func (n *navigator) answerPage(ctx context.Context, offset int) (int, error) {
	counts, err := n.page.RadioGroups(ctx, n.form.QuestionSelector, n.form.OptionSelector)
	if err != nil {
		return 0, fmt.Errorf("could not list questions: %w", err)
	}
	n.logger.Info("Found questions on page.", zap.Int("count", len(counts)))

	for i, options := range counts {
		question := offset + i
		if options == 0 {
			n.logger.Info("No options found for question.", zap.Int("question", question+1))
			continue
		}
		idx := n.picker.IndexFor(question, options, n.randomize)
		if err := n.page.ChooseRadio(ctx, n.form.QuestionSelector, n.form.OptionSelector, i, idx); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			// A question that cannot be answered is left for the form's own
			// validation to report.
			n.logger.Warn("Could not select option.", zap.Int("question", question+1), zap.Int("option", idx), zap.Error(err))
			continue
		}
		n.logger.Debug("Selected option.", zap.Int("question", question+1), zap.Int("option", idx))
	}
	return len(counts), nil
}

// leave moves off the current page. Non-final pages try Next and then
// Submit, for forms that end earlier than configured. The final page only
// tries Submit.
func (n *navigator) leave(ctx context.Context, final bool) (advance, error) {
	if !final {
		_, err := n.run(ctx, "next", n.control(n.nav.NextLabel, n.nav.NextXPaths, false))
		if err == nil {
			return advanceNext, nil
		}
		if !isExhausted(err) {
			return advanceNone, err
		}
		n.logger.Info("Next control not found, trying submit.", zap.Error(err))

		if _, err := n.run(ctx, "submit", n.control(n.nav.SubmitLabel, n.nav.SubmitXPaths, true)); err != nil {
			return advanceNone, err
		}
		return advanceSubmitted, nil
	}

	_, err := n.run(ctx, "submit", n.control(n.nav.SubmitLabel, n.nav.SubmitXPaths, true))
	switch {
	case err == nil:
		return advanceSubmitted, nil
	case isExhausted(err):
		n.logger.Warn("Submit control not found, checking confirmation anyway.", zap.Error(err))
		return advanceMissed, err
	default:
		return advanceNone, err
	}
}

func (n *navigator) control(label string, xpaths []string, submit bool) browser.ControlSpec {
	spec := browser.ControlSpec{
		Label:  label,
		XPaths: xpaths,
		Script: n.nav.ScriptFallback,
	}
	// The container fallback clicks whatever comes last, which is only
	// ever the submit control.
	if submit {
		spec.ContainerXPath = n.nav.ContainerXPath
		spec.SubmitForm = true
		spec.BeforeScript = func(ctx context.Context) {
			if path := n.shots.capture(ctx, n.page, beforeSubmitName(n.attempt)); path != "" {
				n.captured = append(n.captured, path)
			}
		}
	}
	return spec
}

func (n *navigator) run(ctx context.Context, name string, spec browser.ControlSpec) (string, error) {
	chain := resolve.NewChain(name, n.logger, n.page.ControlStrategies(spec)...)
	winner, err := chain.Run(ctx, n.nav.StrategyTimeout)
	if err != nil {
		return "", err
	}
	n.logger.Info("Clicked control.", zap.String("control", name), zap.String("strategy", winner))
	n.used = append(n.used, name+":"+winner)
	return winner, nil
}

func isExhausted(err error) bool {
	var exhausted *resolve.ExhaustedError
	return errors.As(err, &exhausted) || errors.Is(err, resolve.ErrNoStrategies)
}
