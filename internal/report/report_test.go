package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *Run {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &Run{
		ID:        "7d4c2f1e-0000-4000-8000-000000000001",
		Survey:    "market",
		Mode:      "prefill",
		Requested: 3,
		StartedAt: start,
		Attempts: []Attempt{
			{Number: 1, State: StateConfirmed, Confirmation: "phrase", StartedAt: start},
			{Number: 2, State: StateUnconfirmed, Screenshots: []string{"form_after_submit_attempt_2.png"}},
			{Number: 3, State: StateAborted, Error: "next: all 4 strategies failed"},
		},
	}
}

func TestTotals(t *testing.T) {
	assert.Equal(t, Totals{Attempted: 3, Confirmed: 1, Unconfirmed: 1, Aborted: 1}, sampleRun().Totals())
	assert.Equal(t, Totals{}, (&Run{}).Totals())
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateConfirmed, StateUnconfirmed, StateAborted} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []State{StateStart, StatePage1, StatePage3, StateSubmitted} {
		assert.False(t, s.Terminal(), s)
	}
}

func TestSummary(t *testing.T) {
	out := Summary(sampleRun())
	assert.Contains(t, out, "Submission 1/3: CONFIRMED\n")
	assert.Contains(t, out, "Submission 3/3: ABORTED (next: all 4 strategies failed)\n")
	assert.Contains(t, out, "All submission attempts completed!\n")
	assert.Contains(t, out, "Successful: 1/3 (unconfirmed 1, aborted 1)\n")

	run := sampleRun()
	run.Cancelled = true
	assert.Contains(t, Summary(run), "Run cancelled after 3 of 3 submissions.")
}

func TestJSONReporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	r, err := New(FormatFor(path), path)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleRun()))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		ID       string    `json:"id"`
		Attempts []Attempt `json:"attempts"`
		Totals   Totals    `json:"totals"`
	}
	require.NoError(t, jsoniter.Unmarshal(data, &decoded))
	assert.Equal(t, sampleRun().ID, decoded.ID)
	assert.Len(t, decoded.Attempts, 3)
	assert.Equal(t, 1, decoded.Totals.Confirmed)
	assert.Equal(t, StateAborted, decoded.Attempts[2].State)
}

func TestNew(t *testing.T) {
	_, err := New("sarif", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")

	_, err = New("json", filepath.Join(t.TempDir(), "missing", "run.json"))
	assert.Error(t, err)

	r, err := New("text", "stdout")
	require.NoError(t, err)
	assert.NoError(t, r.Close())

	assert.Equal(t, "json", FormatFor("out/RUN.JSON"))
	assert.Equal(t, "text", FormatFor("run.txt"))
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	r := &jsonReporter{w: &nopWriteCloser{&buf}}
	require.NoError(t, r.Write(sampleRun()))

	run, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleRun().ID, run.ID)
	assert.Equal(t, sampleRun().Totals(), run.Totals())
	assert.Equal(t, "next: all 4 strategies failed", run.Attempts[2].Error)

	_, err = Decode(strings.NewReader(`{"survey": "market"}`))
	assert.ErrorContains(t, err, "no run id")
	_, err = Decode(strings.NewReader(`[`))
	assert.Error(t, err)
}
