// internal/submitter/states.go
package submitter

import (
	"fmt"

	"github.com/xkilldash9x/formpilot/internal/report"
)

var pageStates = []report.State{report.StatePage1, report.StatePage2, report.StatePage3}

// pageState returns the state for the 1-based page number.
func pageState(page int) report.State {
	return pageStates[page-1]
}

// transitions lists the legal moves of the per-submission state machine.
// Forms shorter than three pages go from their last page straight to
// SUBMITTED, and any page may abort.
var transitions = map[report.State][]report.State{
	report.StateStart:     {report.StatePage1, report.StateAborted},
	report.StatePage1:     {report.StatePage2, report.StateSubmitted, report.StateAborted},
	report.StatePage2:     {report.StatePage3, report.StateSubmitted, report.StateAborted},
	report.StatePage3:     {report.StateSubmitted, report.StateAborted},
	report.StateSubmitted: {report.StateConfirmed, report.StateUnconfirmed, report.StateAborted},
}

// machine tracks one attempt's state and rejects illegal moves.
type machine struct {
	state   report.State
	history []report.State
}

func newMachine() *machine {
	return &machine{state: report.StateStart, history: []report.State{report.StateStart}}
}

func (m *machine) to(next report.State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			m.history = append(m.history, next)
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", m.state, next)
}
