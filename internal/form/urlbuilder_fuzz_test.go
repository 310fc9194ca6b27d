package form

import (
	"net/url"
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
)

// FuzzBuildURL feeds arbitrary answer text through the builder and checks
// that every value decodes back from the query string unchanged.
func FuzzBuildURL(f *testing.F) {
	f.Add([]byte("Middlemen"))
	f.Add([]byte("Yes, definitely & more = 100%"))
	f.Add([]byte{0xff, 0xfe, '+', ' ', '#'})

	const base = "https://example.test/forms/d/e/abc/viewform?usp=pp_url"
	fields := []Field{{Name: "market"}, {Name: "location"}, {Name: "feedback"}}
	m := Mapping{"market": "entry.1", "location": "entry.2", "feedback": "entry.3"}

	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		answers := Answers{}
		for _, field := range fields {
			v, err := c.GetString()
			if err != nil {
				return
			}
			answers[field.Name] = v
		}

		got, err := BuildURL(base, m, fields, answers)
		if err != nil {
			t.Fatalf("BuildURL: %v", err)
		}
		if !strings.HasPrefix(got, base+"&") {
			t.Fatalf("base not preserved: %q", got)
		}
		u, err := url.Parse(got)
		if err != nil {
			t.Fatalf("unparseable url %q: %v", got, err)
		}
		q, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			t.Fatalf("unparseable query %q: %v", u.RawQuery, err)
		}
		for _, field := range fields {
			id := m[field.Name]
			if vals := q[id]; len(vals) != 1 || vals[0] != answers[field.Name] {
				t.Fatalf("%s: got %q, want [%q]", id, vals, answers[field.Name])
			}
		}
	})
}
