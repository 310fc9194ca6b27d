package form

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed surveys/*.yaml
var builtinFS embed.FS

// BuiltinPrefix selects an embedded survey, e.g. "builtin:donation".
const BuiltinPrefix = "builtin:"

// MaxPages bounds the page count a survey may declare.
const MaxPages = 3

// DefaultSurvey is used when no survey file is configured.
const DefaultSurvey = "market"

// Field is a single question: its candidate values and the value used when
// answers are not randomized.
type Field struct {
	Name    string   `yaml:"name"`
	Options []string `yaml:"options"`
	Default string   `yaml:"default"`
	// Pinned fields keep their default even when answers are randomized.
	Pinned bool `yaml:"pinned"`
}

// DefaultIndex returns the position of Default in Options, or 0.
func (f Field) DefaultIndex() int {
	for i, o := range f.Options {
		if o == f.Default {
			return i
		}
	}
	return 0
}

// Survey is the ordered list of fields of one form. The order drives both
// URL construction and direct-mode question matching.
type Survey struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Pages is the number of form pages the fields are spread over. Zero
	// means a single page.
	Pages  int     `yaml:"pages"`
	Fields []Field `yaml:"fields"`
}

// PageCount returns the declared page count, at least 1.
func (s *Survey) PageCount() int {
	if s.Pages < 1 {
		return 1
	}
	return s.Pages
}

// SurveyError lists every problem found in a survey definition.
type SurveyError struct {
	Survey   string
	Problems []string
}

func (e *SurveyError) Error() string {
	return fmt.Sprintf("survey %q is invalid: %s", e.Survey, strings.Join(e.Problems, "; "))
}

// Validate checks names, option pools and defaults.
func (s *Survey) Validate() error {
	serr := &SurveyError{Survey: s.Name}
	if len(s.Fields) == 0 {
		serr.Problems = append(serr.Problems, "no fields defined")
	}
	if s.Pages < 0 || s.Pages > MaxPages {
		serr.Problems = append(serr.Problems, fmt.Sprintf("pages must be between 0 and %d", MaxPages))
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			serr.Problems = append(serr.Problems, fmt.Sprintf("field %d has no name", i+1))
			continue
		}
		if seen[f.Name] {
			serr.Problems = append(serr.Problems, fmt.Sprintf("field %q is defined twice", f.Name))
		}
		seen[f.Name] = true
		if len(f.Options) == 0 {
			serr.Problems = append(serr.Problems, fmt.Sprintf("field %q has no options", f.Name))
			continue
		}
		if f.Default == "" {
			serr.Problems = append(serr.Problems, fmt.Sprintf("field %q has no default", f.Name))
		} else if !contains(f.Options, f.Default) {
			serr.Problems = append(serr.Problems, fmt.Sprintf("field %q default %q is not one of its options", f.Name, f.Default))
		}
	}
	if len(serr.Problems) > 0 {
		return serr
	}
	return nil
}

// FieldNames returns the field names in survey order.
func (s *Survey) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name.
func (s *Survey) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ParseSurvey decodes and validates a YAML survey definition.
func ParseSurvey(r io.Reader) (*Survey, error) {
	var s Survey
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("could not decode survey: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSurvey loads a survey from a YAML file, or an embedded one when the
// reference starts with "builtin:". An empty reference selects the default.
func LoadSurvey(ref string) (*Survey, error) {
	if ref == "" {
		ref = BuiltinPrefix + DefaultSurvey
	}
	if name, ok := strings.CutPrefix(ref, BuiltinPrefix); ok {
		return Builtin(name)
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("could not open survey: %w", err)
	}
	defer f.Close()

	s, err := ParseSurvey(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	return s, nil
}

// Builtin returns one of the embedded surveys by name.
func Builtin(name string) (*Survey, error) {
	f, err := builtinFS.Open(path.Join("surveys", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown builtin survey %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	defer f.Close()
	return ParseSurvey(f)
}

// BuiltinNames lists the embedded survey names.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("surveys")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
