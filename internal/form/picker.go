package form

import (
	"math/rand"
)

// Answers holds one chosen value per field name.
type Answers map[string]string

// Picker chooses answer values for a survey.
type Picker struct {
	survey *Survey
	rng    *rand.Rand
}

// NewPicker returns a picker drawing from rng. A nil rng is only valid for
// fixed answers.
func NewPicker(s *Survey, rng *rand.Rand) *Picker {
	return &Picker{survey: s, rng: rng}
}

// Fixed returns every field's default value.
func (p *Picker) Fixed() Answers {
	a := make(Answers, len(p.survey.Fields))
	for _, f := range p.survey.Fields {
		a[f.Name] = f.Default
	}
	return a
}

// Random draws each value uniformly from its pool. Pinned fields keep their
// default.
func (p *Picker) Random() Answers {
	a := make(Answers, len(p.survey.Fields))
	for _, f := range p.survey.Fields {
		if f.Pinned || len(f.Options) == 0 {
			a[f.Name] = f.Default
			continue
		}
		a[f.Name] = f.Options[p.rng.Intn(len(f.Options))]
	}
	return a
}

// Pick returns Random answers when randomize is set, otherwise Fixed.
func (p *Picker) Pick(randomize bool) Answers {
	if randomize && p.rng != nil {
		return p.Random()
	}
	return p.Fixed()
}

// IndexFor picks an option position for the i-th question on a page that
// renders n options. Questions past the end of the survey use the first
// option. The result is always in [0, n) for n > 0.
func (p *Picker) IndexFor(question, n int, randomize bool) int {
	if n <= 0 {
		return -1
	}
	if question < 0 || question >= len(p.survey.Fields) {
		return 0
	}
	f := p.survey.Fields[question]
	idx := f.DefaultIndex()
	if randomize && !f.Pinned && p.rng != nil {
		idx = p.rng.Intn(n)
	}
	if idx >= n {
		idx = 0
	}
	return idx
}
