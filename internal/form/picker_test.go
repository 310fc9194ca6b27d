package form

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPicker_FixedIsDeterministic(t *testing.T) {
	s, err := Builtin("market")
	require.NoError(t, err)

	a := NewPicker(s, rand.New(rand.NewSource(1))).Pick(false)
	b := NewPicker(s, rand.New(rand.NewSource(2))).Pick(false)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("fixed answers differ (-a +b):\n%s", diff)
	}
	assert.Equal(t, "Local market", a["purchase_place"])
}

func TestPicker_RandomStaysInPool(t *testing.T) {
	s, err := Builtin("donation")
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		answers := NewPicker(s, rand.New(rand.NewSource(seed))).Random()

		require.Len(rt, answers, len(s.Fields))
		for _, f := range s.Fields {
			v := answers[f.Name]
			assert.Contains(rt, f.Options, v)
			if f.Pinned {
				assert.Equal(rt, f.Default, v)
			}
		}
	})
}

func TestPicker_IndexFor(t *testing.T) {
	s := &Survey{Name: "t", Fields: []Field{
		{Name: "a", Options: []string{"x", "y", "z"}, Default: "z"},
		{Name: "b", Options: []string{"x", "y"}, Default: "y", Pinned: true},
	}}
	p := NewPicker(s, rand.New(rand.NewSource(7)))

	assert.Equal(t, 2, p.IndexFor(0, 3, false))
	assert.Equal(t, 0, p.IndexFor(0, 2, false), "default past rendered options falls back to first")
	assert.Equal(t, 1, p.IndexFor(1, 5, true), "pinned ignores randomize")
	assert.Equal(t, 0, p.IndexFor(9, 4, true), "question past survey uses first option")
	assert.Equal(t, -1, p.IndexFor(0, 0, true))

	rapid.Check(t, func(rt *rapid.T) {
		q := rapid.IntRange(-2, 5).Draw(rt, "question")
		n := rapid.IntRange(1, 10).Draw(rt, "options")
		r := rapid.Bool().Draw(rt, "randomize")
		idx := p.IndexFor(q, n, r)
		if idx < 0 || idx >= n {
			rt.Fatalf("index %d out of [0,%d)", idx, n)
		}
	})
}

func TestPicker_NilRandFallsBackToFixed(t *testing.T) {
	s, err := Builtin("market")
	require.NoError(t, err)
	p := NewPicker(s, nil)
	assert.Equal(t, p.Fixed(), p.Pick(true))
}
