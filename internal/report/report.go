// internal/report/report.go
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes a finished run to an output.
type Reporter interface {
	Write(run *Run) error
	Close() error
}

type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format ("json", "junit" or "text") writing to
// outputPath, or to stdout when the path is empty or "stdout".
func New(format, outputPath string) (Reporter, error) {
	var w io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"
	if isStdOut {
		w = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create report file %s: %w", outputPath, err)
		}
		w = f
	}

	switch format {
	case "json":
		return &jsonReporter{w: w}, nil
	case "junit":
		return &junitReporter{w: w}, nil
	case "text", "":
		return &textReporter{w: w}, nil
	default:
		_ = w.Close()
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// FormatFor picks the report format from a file extension.
func FormatFor(path string) string {
	switch lower := strings.ToLower(path); {
	case strings.HasSuffix(lower, ".json"):
		return "json"
	case strings.HasSuffix(lower, ".xml"):
		return "junit"
	}
	return "text"
}

// Decode reads a run written by the json reporter. The totals block is
// derived data and is ignored.
func Decode(r io.Reader) (*Run, error) {
	var run Run
	if err := json.NewDecoder(r).Decode(&run); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if run.ID == "" {
		return nil, fmt.Errorf("report has no run id")
	}
	return &run, nil
}

type jsonReporter struct {
	w io.WriteCloser
}

type jsonRun struct {
	*Run
	Totals Totals `json:"totals"`
}

func (r *jsonReporter) Write(run *Run) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonRun{Run: run, Totals: run.Totals()}); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error { return r.w.Close() }

type textReporter struct {
	w io.WriteCloser
}

func (r *textReporter) Write(run *Run) error {
	_, err := io.WriteString(r.w, Summary(run))
	return err
}

func (r *textReporter) Close() error { return r.w.Close() }

// Summary renders the per-attempt lines and the closing tally.
func Summary(run *Run) string {
	var b strings.Builder
	for _, a := range run.Attempts {
		fmt.Fprintf(&b, "Submission %d/%d: %s", a.Number, run.Requested, a.State)
		if a.Error != "" {
			fmt.Fprintf(&b, " (%s)", a.Error)
		}
		b.WriteByte('\n')
	}
	t := run.Totals()
	if run.Cancelled {
		fmt.Fprintf(&b, "Run cancelled after %d of %d submissions.\n", t.Attempted, run.Requested)
	} else {
		b.WriteString("All submission attempts completed!\n")
	}
	fmt.Fprintf(&b, "Successful: %d/%d (unconfirmed %d, aborted %d)\n", t.Confirmed, run.Requested, t.Unconfirmed, t.Aborted)
	return b.String()
}
