package form

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Mapping maps semantic field names to the form's internal parameter
// identifiers, e.g. "market" -> "entry.123456".
type Mapping map[string]string

// MappingError reports mapping keys that a survey needs but the mapping
// file does not provide.
type MappingError struct {
	Source  string
	Missing []string
	Empty   []string
}

func (e *MappingError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing keys: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Empty) > 0 {
		parts = append(parts, "empty identifiers: "+strings.Join(e.Empty, ", "))
	}
	src := e.Source
	if src == "" {
		src = "field mapping"
	}
	return fmt.Sprintf("%s is incomplete (%s)", src, strings.Join(parts, "; "))
}

// LoadMapping reads a JSON field mapping from path.
func LoadMapping(path string) (Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open field mapping: %w", err)
	}
	defer f.Close()

	m, err := ParseMapping(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseMapping decodes a JSON object of string values.
func ParseMapping(r io.Reader) (Mapping, error) {
	var m Mapping
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("could not decode field mapping: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("field mapping must be a JSON object")
	}
	return m, nil
}

// Write encodes the mapping as indented JSON with sorted keys.
func (m Mapping) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Validate checks that every field has a non-empty identifier.
func (m Mapping) Validate(fields []Field) error {
	merr := &MappingError{}
	for _, f := range fields {
		id, ok := m[f.Name]
		switch {
		case !ok:
			merr.Missing = append(merr.Missing, f.Name)
		case strings.TrimSpace(id) == "":
			merr.Empty = append(merr.Empty, f.Name)
		}
	}
	if len(merr.Missing) == 0 && len(merr.Empty) == 0 {
		return nil
	}
	sort.Strings(merr.Missing)
	sort.Strings(merr.Empty)
	return merr
}

// Key returns the parameter identifier for a field name.
func (m Mapping) Key(name string) (string, bool) {
	id, ok := m[name]
	return id, ok && id != ""
}
