// internal/submitter/interfaces.go
package submitter

import (
	"context"

	"github.com/xkilldash9x/formpilot/internal/browser"
	"github.com/xkilldash9x/formpilot/internal/report"
	"github.com/xkilldash9x/formpilot/internal/resolve"
)

// Page is the browser tab the submitter drives. *browser.Session
// implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context, selector string) error
	Location(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	RadioGroups(ctx context.Context, questionSel, optionSel string) ([]int, error)
	ChooseRadio(ctx context.Context, questionSel, optionSel string, group, option int) error
	ControlStrategies(spec browser.ControlSpec) []resolve.Strategy
}

var _ Page = (*browser.Session)(nil)

// Pacer spaces out submissions. *humanoid.Pacer implements it.
type Pacer interface {
	Between(ctx context.Context) error
}

// Recorder persists run history. *store.Store implements it.
type Recorder interface {
	StartRun(ctx context.Context, run *report.Run) error
	RecordAttempt(ctx context.Context, runID string, a report.Attempt) error
	FinishRun(ctx context.Context, run *report.Run) error
}
