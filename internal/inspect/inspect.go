// Package inspect outlines the questions of a form page so a field
// mapping or survey definition can be written for it.
package inspect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xkilldash9x/formpilot/internal/form"
)

// Question is one radio question found on the page.
type Question struct {
	Index   int      `json:"index"`
	Title   string   `json:"title"`
	Entry   string   `json:"entry,omitempty"`
	Options []string `json:"options"`
}

// Outline is the structure of a form page.
type Outline struct {
	Title     string     `json:"title"`
	Action    string     `json:"action,omitempty"`
	Method    string     `json:"method,omitempty"`
	Questions []Question `json:"questions"`
}

// Selectors locate question containers and their options.
type Selectors struct {
	Question string
	Option   string
}

// DefaultSelectors match the listitem/radio roles used by hosted forms.
var DefaultSelectors = Selectors{
	Question: `div[role="listitem"]`,
	Option:   `div[role="radio"]`,
}

// Parse builds an outline from an HTML document.
func Parse(r io.Reader, sel Selectors) (*Outline, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not parse form page: %w", err)
	}

	out := &Outline{Title: strings.TrimSpace(doc.Find("title").First().Text())}
	if f := doc.Find("form").First(); f.Length() > 0 {
		out.Action, _ = f.Attr("action")
		out.Method, _ = f.Attr("method")
	}

	doc.Find(sel.Question).Each(func(i int, q *goquery.Selection) {
		question := Question{Index: i + 1, Title: questionTitle(q)}
		q.Find(sel.Option).Each(func(_ int, o *goquery.Selection) {
			question.Options = append(question.Options, optionLabel(o))
		})
		q.Find(`input[name^="entry."], textarea[name^="entry."]`).EachWithBreak(func(_ int, in *goquery.Selection) bool {
			name, _ := in.Attr("name")
			question.Entry = strings.TrimSuffix(name, "_sentinel")
			return false
		})
		out.Questions = append(out.Questions, question)
	})
	return out, nil
}

func questionTitle(q *goquery.Selection) string {
	if h := q.Find(`[role="heading"]`).First(); h.Length() > 0 {
		return collapse(h.Text())
	}
	return collapse(q.Contents().First().Text())
}

func optionLabel(o *goquery.Selection) string {
	for _, attr := range []string{"data-value", "aria-label"} {
		if v, ok := o.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return collapse(o.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Load reads a form page from an http(s) URL or a local file.
func Load(ctx context.Context, client *http.Client, target, userAgent string, sel Selectors) (*Outline, error) {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		f, err := os.Open(target)
		if err != nil {
			return nil, fmt.Errorf("could not open form page: %w", err)
		}
		defer f.Close()
		return Parse(f, sel)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch form page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch form page: unexpected status %s", resp.Status)
	}
	body, err := utf8Body(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return Parse(body, sel)
}

// DraftMapping pairs survey fields with question entries in page order.
// Questions without an entry identifier are skipped.
func DraftMapping(fields []form.Field, o *Outline) form.Mapping {
	m := make(form.Mapping, len(fields))
	i := 0
	for _, q := range o.Questions {
		if i >= len(fields) {
			break
		}
		if q.Entry == "" {
			continue
		}
		m[fields[i].Name] = q.Entry
		i++
	}
	return m
}

// Render writes the outline as indented text.
func Render(w io.Writer, o *Outline) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Form: %s\n", o.Title)
	if o.Action != "" {
		fmt.Fprintf(&b, "Action: %s %s\n", strings.ToUpper(o.Method), o.Action)
	}
	fmt.Fprintf(&b, "Questions: %d\n", len(o.Questions))
	for _, q := range o.Questions {
		fmt.Fprintf(&b, "\n%2d. %s", q.Index, q.Title)
		if q.Entry != "" {
			fmt.Fprintf(&b, " [%s]", q.Entry)
		}
		b.WriteByte('\n')
		if len(q.Options) == 0 {
			b.WriteString("    (no radio options)\n")
		}
		for j, opt := range q.Options {
			fmt.Fprintf(&b, "    %d) %s\n", j, opt)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
