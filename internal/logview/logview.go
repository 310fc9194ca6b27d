// internal/logview/logview.go
// Package logview reads the JSON log file written by the observability
// package and renders the entries of interest, optionally following the
// file as a run progresses.
package logview

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpcloud/tail"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/formpilot/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry is one decoded log line. Fields other than the ones named here are
// kept in Extra.
type Entry struct {
	Time    string `json:"ts"`
	Level   string `json:"level"`
	Logger  string `json:"logger"`
	Message string `json:"msg"`
	RunID   string `json:"run_id"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`

	Extra map[string]interface{} `json:"-"`
}

// Filter selects entries. The zero value matches everything at info and
// above.
type Filter struct {
	RunID    string
	MinLevel zapcore.Level
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(e.Level)); err != nil {
		// Unknown levels are shown rather than hidden.
		return true
	}
	return lvl >= f.MinLevel
}

// Parse decodes a single JSON log line. Lines that are not JSON objects,
// such as a panic trace written by hand, are reported as not ok.
func Parse(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var e Entry
	if err := json.UnmarshalFromString(line, &e); err != nil {
		return Entry{}, false
	}
	var all map[string]interface{}
	if err := json.UnmarshalFromString(line, &all); err == nil {
		for _, k := range []string{"ts", "level", "logger", "msg", observability.KeyRunID, observability.KeyAttempt, "error", "caller", "stacktrace"} {
			delete(all, k)
		}
		if len(all) > 0 {
			e.Extra = all
		}
	}
	return e, true
}

// Format renders an entry as a single console line.
func Format(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", e.Time, strings.ToUpper(e.Level), e.Message)
	if e.Attempt > 0 {
		fmt.Fprintf(&b, " attempt=%d", e.Attempt)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " error=%q", e.Error)
	}
	return b.String()
}

// Options configure Stream.
type Options struct {
	Path   string
	Follow bool
	Filter Filter
}

// Stream reads the log file and calls emit for every matching entry. With
// Follow it keeps reading across rotations until ctx is cancelled;
// otherwise it returns at end of file.
func Stream(ctx context.Context, opts Options, emit func(Entry)) error {
	cfg := tail.Config{
		Follow:    opts.Follow,
		ReOpen:    opts.Follow,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	}
	t, err := tail.TailFile(opts.Path, cfg)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				// Lines closes before the tailer records its exit reason.
				<-t.Dead()
				return t.Err()
			}
			if line.Err != nil {
				return fmt.Errorf("error reading log file: %w", line.Err)
			}
			e, ok := Parse(line.Text)
			if !ok || !opts.Filter.Match(e) {
				continue
			}
			emit(e)
		}
	}
}
