package form

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinSurveys(t *testing.T) {
	assert.Equal(t, []string{"donation", "market"}, BuiltinNames())

	market, err := Builtin("market")
	require.NoError(t, err)
	assert.Len(t, market.Fields, 16)
	assert.Equal(t, "market", market.Fields[0].Name)
	assert.Equal(t, "Middlemen", market.Fields[0].Default)
	assert.Equal(t, 1, market.PageCount())

	// Anchored pools are shared between the yes/no style questions.
	certified, ok := market.Field("certified")
	require.True(t, ok)
	assert.Equal(t, []string{"Yes", "No", "May be", "I will try"}, certified.Options)

	donation, err := Builtin("donation")
	require.NoError(t, err)
	last := donation.Fields[len(donation.Fields)-1]
	assert.True(t, last.Pinned)
	assert.Equal(t, "Yes, definitely", last.Default)
	assert.Equal(t, 0, last.DefaultIndex())
}

func TestLoadSurvey(t *testing.T) {
	t.Run("empty ref selects default", func(t *testing.T) {
		s, err := LoadSurvey("")
		require.NoError(t, err)
		assert.Equal(t, DefaultSurvey, s.Name)
	})

	t.Run("unknown builtin", func(t *testing.T) {
		_, err := LoadSurvey("builtin:nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "available: donation, market")
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
name: tiny
fields:
  - name: color
    options: [Red, Green]
    default: Green
`), 0o600))
		s, err := LoadSurvey(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"color"}, s.FieldNames())
		assert.Equal(t, 1, s.Fields[0].DefaultIndex())
	})

	t.Run("invalid file", func(t *testing.T) {
		_, err := LoadSurvey(filepath.Join("testdata", "bad_default.yaml"))
		require.Error(t, err)

		var serr *SurveyError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "broken", serr.Survey)
		assert.Len(t, serr.Problems, 3)
		assert.Contains(t, err.Error(), `default "Blue" is not one of its options`)
		assert.Contains(t, err.Error(), `field "color" is defined twice`)
		assert.Contains(t, err.Error(), `field "color" has no options`)
	})

	t.Run("unknown keys rejected", func(t *testing.T) {
		_, err := ParseSurvey(strings.NewReader("name: x\nfieldz: []\n"))
		require.Error(t, err)
	})
}

func TestSurveyValidate_Empty(t *testing.T) {
	err := (&Survey{Name: "empty"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fields defined")
}

func TestSurveyPages(t *testing.T) {
	s := &Survey{Name: "paged", Fields: []Field{{Name: "a", Options: []string{"x"}, Default: "x"}}}
	assert.Equal(t, 1, s.PageCount(), "undeclared means one page")

	s.Pages = 3
	require.NoError(t, s.Validate())
	assert.Equal(t, 3, s.PageCount())

	for _, pages := range []int{-1, MaxPages + 1} {
		s.Pages = pages
		err := s.Validate()
		var serr *SurveyError
		require.True(t, errors.As(err, &serr), "pages=%d", pages)
		assert.Contains(t, err.Error(), "pages must be between 0 and 3")
	}
}
