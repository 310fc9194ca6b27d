package form

import (
	"net/url"
	"strings"
)

// BuildURL appends one "&key=value" pair per field to base, in field order.
// The key is the field's mapped identifier and the value is query escaped,
// so "Local market" becomes "Local+market". A base without a query gets a
// "?" first. A fragment on base is moved after the pairs.
func BuildURL(base string, m Mapping, fields []Field, answers Answers) (string, error) {
	if err := m.Validate(fields); err != nil {
		return "", err
	}
	base, fragment, hasFragment := strings.Cut(base, "#")

	var b strings.Builder
	b.WriteString(base)
	if !strings.Contains(base, "?") {
		b.WriteByte('?')
	}
	for _, f := range fields {
		v, ok := answers[f.Name]
		if !ok {
			v = f.Default
		}
		b.WriteByte('&')
		b.WriteString(m[f.Name])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	if hasFragment {
		b.WriteByte('#')
		b.WriteString(fragment)
	}
	return b.String(), nil
}
