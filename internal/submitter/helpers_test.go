package submitter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xkilldash9x/formpilot/internal/browser"
	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/form"
	"github.com/xkilldash9x/formpilot/internal/report"
	"github.com/xkilldash9x/formpilot/internal/resolve"
)

var errMissing = errors.New("element not found")

// fakePage simulates a paged form. Next advances the page index; Submit
// moves to the response URL when confirmOnSubmit is set. With formPages
// set, the last page has no Next control.
type fakePage struct {
	mu sync.Mutex

	navigateErr     error
	onNavigate      func()
	groups          [][]int
	missing         map[string]bool
	confirmOnSubmit bool
	formPages       int

	visited  []string
	chosen   [][2]int
	clicks   []string
	page     int
	location string
	shots    int
	specs    []browser.ControlSpec
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = append(p.visited, url)
	if p.onNavigate != nil {
		p.onNavigate()
		return ctx.Err()
	}
	if p.navigateErr != nil {
		return p.navigateErr
	}
	p.page = 0
	p.location = url
	return nil
}

func (p *fakePage) WaitReady(ctx context.Context, selector string) error { return nil }

func (p *fakePage) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	return "<html><body><p>Please answer</p></body></html>", nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shots++
	return []byte("\x89PNG"), nil
}

func (p *fakePage) RadioGroups(ctx context.Context, questionSel, optionSel string) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page < len(p.groups) {
		return p.groups[p.page], nil
	}
	return nil, nil
}

func (p *fakePage) ChooseRadio(ctx context.Context, questionSel, optionSel string, group, option int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chosen = append(p.chosen, [2]int{group, option})
	return nil
}

func (p *fakePage) ControlStrategies(spec browser.ControlSpec) []resolve.Strategy {
	p.mu.Lock()
	p.specs = append(p.specs, spec)
	lastPage := p.formPages > 0 && p.page >= p.formPages-1
	p.mu.Unlock()

	if p.missing[spec.Label] || (spec.Label == "Next" && lastPage) {
		return []resolve.Strategy{
			resolve.StrategyFunc("xpath[0]", func(ctx context.Context) (resolve.Action, error) {
				return nil, errMissing
			}),
			resolve.StrategyFunc("script", func(ctx context.Context) (resolve.Action, error) {
				return resolve.ActionFunc(func(ctx context.Context) error {
					if spec.BeforeScript != nil {
						spec.BeforeScript(ctx)
					}
					return errMissing
				}), nil
			}),
		}
	}
	return []resolve.Strategy{
		resolve.StrategyFunc("xpath[0]", func(ctx context.Context) (resolve.Action, error) {
			return resolve.ActionFunc(func(ctx context.Context) error {
				p.mu.Lock()
				defer p.mu.Unlock()
				p.clicks = append(p.clicks, spec.Label)
				switch {
				case spec.Label == "Next":
					p.page++
				case p.confirmOnSubmit:
					p.location = "https://example.test/forms/d/e/abc/formResponse"
				}
				return nil
			}), nil
		}),
	}
}

type fakeRecorder struct {
	startErr error
	started  int
	attempts []report.Attempt
	finished *report.Run
}

func (r *fakeRecorder) StartRun(ctx context.Context, run *report.Run) error {
	r.started++
	return r.startErr
}

func (r *fakeRecorder) RecordAttempt(ctx context.Context, runID string, a report.Attempt) error {
	r.attempts = append(r.attempts, a)
	return nil
}

func (r *fakeRecorder) FinishRun(ctx context.Context, run *report.Run) error {
	r.finished = run
	return nil
}

type pacerFunc func(ctx context.Context) error

func (f pacerFunc) Between(ctx context.Context) error { return f(ctx) }

const testBase = "https://example.test/forms/d/e/abc/viewform?usp=pp_url"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.FormCfg.BaseURL = testBase
	cfg.FormCfg.FormURL = "https://example.test/forms/d/e/abc/viewform"
	cfg.FormCfg.Pages = config.MaxPages
	cfg.NavigationCfg.PostLoadWait = 0
	cfg.NavigationCfg.StrategyTimeout = time.Second
	cfg.ConfirmCfg.Timeout = 60 * time.Millisecond
	cfg.ConfirmCfg.PollInterval = 5 * time.Millisecond
	cfg.ArtifactsCfg.Dir = t.TempDir()
	cfg.SubmitCfg.PauseMin = 0
	cfg.SubmitCfg.PauseMax = 0
	return cfg
}

func testSurvey() *form.Survey {
	return &form.Survey{Name: "test", Fields: []form.Field{
		{Name: "market", Options: []string{"Middlemen", "Local market", "Cooperatives"}, Default: "Middlemen"},
		{Name: "location", Options: []string{"Urban", "Rural", "Peri-urban"}, Default: "Peri-urban"},
		{Name: "future", Options: []string{"Yes, definitely", "Probably"}, Default: "Probably", Pinned: true},
	}}
}

func testMapping() form.Mapping {
	return form.Mapping{"market": "entry.123", "location": "entry.207", "future": "entry.300"}
}

func newTestSubmitter(t *testing.T, cfg *config.Config, page *fakePage, opts Options) *Submitter {
	t.Helper()
	opts.Page = page
	if opts.Survey == nil {
		opts.Survey = testSurvey()
	}
	if opts.Mapping == nil {
		opts.Mapping = testMapping()
	}
	s, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}
