// internal/report/junit.go
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"
)

// junitReporter renders a run as a JUnit XML suite, one test case per
// attempt, so CI systems can chart submissions. Unconfirmed attempts are
// failures; aborted attempts are errors.
type junitReporter struct {
	w io.WriteCloser
}

func (r *junitReporter) Write(run *Run) error {
	doc := JUnit(run)
	if _, err := doc.WriteTo(r.w); err != nil {
		return fmt.Errorf("failed to write junit report: %w", err)
	}
	return nil
}

func (r *junitReporter) Close() error { return r.w.Close() }

// JUnit builds the XML document for run.
func JUnit(run *Run) *etree.Document {
	t := run.Totals()
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", "formpilot/"+run.Survey)
	suite.CreateAttr("tests", strconv.Itoa(t.Attempted))
	suite.CreateAttr("failures", strconv.Itoa(t.Unconfirmed))
	suite.CreateAttr("errors", strconv.Itoa(t.Aborted))
	suite.CreateAttr("skipped", strconv.Itoa(max(run.Requested-t.Attempted, 0)))
	if !run.StartedAt.IsZero() {
		suite.CreateAttr("timestamp", run.StartedAt.UTC().Format(time.RFC3339))
	}
	if !run.FinishedAt.IsZero() && !run.StartedAt.IsZero() {
		suite.CreateAttr("time", seconds(run.FinishedAt.Sub(run.StartedAt)))
	}

	props := suite.CreateElement("properties")
	addProperty(props, "run_id", run.ID)
	addProperty(props, "mode", run.Mode)
	addProperty(props, "randomize", strconv.FormatBool(run.Randomize))
	if run.Cancelled {
		addProperty(props, "cancelled", "true")
	}

	for _, a := range run.Attempts {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("classname", "formpilot."+run.Survey)
		tc.CreateAttr("name", fmt.Sprintf("submission %d", a.Number))
		tc.CreateAttr("time", seconds(a.Duration))

		switch a.State {
		case StateUnconfirmed:
			f := tc.CreateElement("failure")
			f.CreateAttr("type", string(a.State))
			f.CreateAttr("message", "no confirmation marker found")
			if a.Error != "" {
				f.SetText(a.Error)
			}
		case StateAborted:
			e := tc.CreateElement("error")
			e.CreateAttr("type", string(a.State))
			e.CreateAttr("message", a.Error)
		}

		out := fmt.Sprintf("url: %s\npages: %d\n", a.URL, a.Pages)
		if a.Confirmation != "" {
			out += "confirmation: " + a.Confirmation + "\n"
		}
		for _, s := range a.Screenshots {
			out += "screenshot: " + s + "\n"
		}
		tc.CreateElement("system-out").SetText(out)
	}

	doc.Indent(2)
	return doc
}

func addProperty(props *etree.Element, name, value string) {
	p := props.CreateElement("property")
	p.CreateAttr("name", name)
	p.CreateAttr("value", value)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
