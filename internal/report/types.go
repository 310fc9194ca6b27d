// internal/report/types.go
package report

import (
	"time"
)

// State is a position in the per-submission state machine.
type State string

const (
	StateStart       State = "START"
	StatePage1       State = "PAGE_1"
	StatePage2       State = "PAGE_2"
	StatePage3       State = "PAGE_3"
	StateSubmitted   State = "SUBMITTED"
	StateConfirmed   State = "CONFIRMED"
	StateUnconfirmed State = "UNCONFIRMED"
	StateAborted     State = "ABORTED"
)

// Terminal reports whether an attempt can end in s.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateUnconfirmed, StateAborted:
		return true
	}
	return false
}

// Attempt is the record of one navigation cycle.
type Attempt struct {
	Number       int           `json:"number"`
	State        State         `json:"state"`
	URL          string        `json:"url"`
	Pages        int           `json:"pages"`
	Strategies   []string      `json:"strategies,omitempty"`
	Confirmation string        `json:"confirmation,omitempty"`
	Error        string        `json:"error,omitempty"`
	Screenshots  []string      `json:"screenshots,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}

// Run is the record of one invocation of the submission loop.
type Run struct {
	ID         string    `json:"id"`
	Survey     string    `json:"survey"`
	Mode       string    `json:"mode"`
	Requested  int       `json:"requested"`
	Randomize  bool      `json:"randomize"`
	Cancelled  bool      `json:"cancelled,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Attempts   []Attempt `json:"attempts"`
}

// Totals counts attempts per terminal state.
type Totals struct {
	Attempted   int `json:"attempted"`
	Confirmed   int `json:"confirmed"`
	Unconfirmed int `json:"unconfirmed"`
	Aborted     int `json:"aborted"`
}

// Totals tallies the run's attempts.
func (r *Run) Totals() Totals {
	t := Totals{Attempted: len(r.Attempts)}
	for _, a := range r.Attempts {
		switch a.State {
		case StateConfirmed:
			t.Confirmed++
		case StateUnconfirmed:
			t.Unconfirmed++
		case StateAborted:
			t.Aborted++
		}
	}
	return t
}
