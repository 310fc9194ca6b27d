package confirm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var defaultMarkers = Markers{
	Phrases:    []string{"Your response has been recorded", "Form submitted", "Thanks"},
	URLMarkers: []string{"formResponse", "closedform"},
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		html string
		url  string
		want Outcome
	}{
		{
			name: "confirmation phrase",
			html: fixture(t, "recorded.html"),
			url:  "https://docs.google.com/forms/d/e/abc/viewform",
			want: Outcome{Confirmed: true, Signal: SignalPhrase, Marker: "Your response has been recorded"},
		},
		{
			name: "url marker",
			url:  "https://docs.google.com/forms/d/e/abc/formResponse",
			want: Outcome{Confirmed: true, Signal: SignalURL, Marker: "formResponse"},
		},
		{
			name: "closed form",
			html: "<html></html>",
			url:  "https://docs.google.com/forms/d/e/abc/closedform",
			want: Outcome{Confirmed: true, Signal: SignalURL, Marker: "closedform"},
		},
		{
			name: "phrase only inside script",
			html: fixture(t, "unanswered.html"),
			url:  "https://docs.google.com/forms/d/e/abc/viewform",
			want: Outcome{},
		},
		{
			name: "nothing",
			html: "<html><body><p>Please answer all questions</p></body></html>",
			url:  "https://docs.google.com/forms/d/e/abc/viewform",
			want: Outcome{},
		},
		{
			name: "empty page",
			want: Outcome{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.html, tt.url, defaultMarkers))
		})
	}
}

func TestMatch_PhraseMustBeText(t *testing.T) {
	// Attribute values are not text nodes.
	html := `<html><body><div title="Form submitted">pending</div></body></html>`
	assert.False(t, Match(html, "", Markers{Phrases: []string{"Form submitted"}}).Confirmed)
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'Thanks'", xpathLiteral("Thanks"))
	assert.Equal(t, `"We've got it"`, xpathLiteral("We've got it"))
	assert.Equal(t, `concat('a"b', "'", 'c')`, xpathLiteral(`a"b'c`))

	html := `<html><body><p>We've recorded "it"</p></body></html>`
	out := Match(html, "", Markers{Phrases: []string{`We've recorded "it"`}})
	assert.True(t, out.Confirmed)
}

type fakePage struct {
	url   string
	html  string
	after int32
	calls atomic.Int32
	err   error
}

func (p *fakePage) Location(ctx context.Context) (string, error) {
	if p.calls.Add(1) > p.after {
		return p.url, nil
	}
	return "https://example.test/viewform", p.err
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	return p.html, p.err
}

func newChecker(timeout time.Duration) *Checker {
	return NewChecker(config.ConfirmConfig{
		Phrases:      defaultMarkers.Phrases,
		URLMarkers:   defaultMarkers.URLMarkers,
		Timeout:      timeout,
		PollInterval: 10 * time.Millisecond,
	}, zap.NewNop())
}

func TestChecker_ConfirmsAfterPolling(t *testing.T) {
	page := &fakePage{url: "https://example.test/formResponse", after: 3}
	out, err := newChecker(5*time.Second).Await(context.Background(), page)
	require.NoError(t, err)
	assert.True(t, out.Confirmed)
	assert.GreaterOrEqual(t, page.calls.Load(), int32(4))
}

func TestChecker_TimeoutIsUnconfirmed(t *testing.T) {
	page := &fakePage{url: "https://example.test/viewform", html: "<p>nope</p>", err: errors.New("tab busy")}
	start := time.Now()
	out, err := newChecker(80*time.Millisecond).Await(context.Background(), page)
	require.NoError(t, err)
	assert.False(t, out.Confirmed)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestChecker_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newChecker(time.Second).Await(ctx, &fakePage{})
	assert.ErrorIs(t, err, context.Canceled)
}
