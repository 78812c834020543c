package bundle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_StripsBOMAndMarker(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"bundle": true, "greeting": {"greeting": "Hello"}}`)...)

	b, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, b.Consolidated)
	assert.NotContains(t, b.Entries, MarkerKey)

	s, ok := Lookup(b, []string{"greeting", "greeting"})
	require.True(t, ok)
	assert.Equal(t, "Hello", s)
}

func TestParse_Malformed(t *testing.T) {
	for _, data := range []string{`{"broken":`, `["not", "an", "object"]`, `{} {}`} {
		_, err := Parse([]byte(data))
		require.Error(t, err, data)
		assert.True(t, errors.Is(err, ErrMalformed), data)
	}
}

func TestMarshal_StableAndIndented(t *testing.T) {
	b := New()
	b.Entries["zeta"] = map[string]any{"b": "2", "a": "1"}
	b.Entries["alpha"] = "<b>bold</b> & more"
	b.Consolidated = true

	out, err := b.Marshal()
	require.NoError(t, err)

	want := `{
  "alpha": "<b>bold</b> & more",
  "bundle": true,
  "zeta": {
    "a": "1",
    "b": "2"
  }
}
`
	assert.Equal(t, want, string(out))

	again, err := Parse(out)
	require.NoError(t, err)
	out2, err := again.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2))
}

func TestMarshal_KeepsNumbers(t *testing.T) {
	b, err := Parse([]byte(`{"c": {"count": 1.50, "label": "x"}}`))
	require.NoError(t, err)

	out, err := b.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"count": 1.50`)
}

func TestWalkLookupAssign(t *testing.T) {
	b, err := Parse([]byte(`{"list": {"items": ["one", "two"], "n": 3}, "title": {"text": ""}}`))
	require.NoError(t, err)

	var paths [][]string
	Walk(b, func(p []string, _ string) { paths = append(paths, p) })
	assert.Equal(t, [][]string{
		{"list", "items", "0"},
		{"list", "items", "1"},
		{"title", "text"},
	}, paths)

	Assign(b, []string{"list", "items", "1"}, "deux")
	Assign(b, []string{"title", "text"}, "Titre")
	Assign(b, []string{"fresh", "a", "b"}, "new")

	for path, want := range map[string][]string{
		"deux":  {"list", "items", "1"},
		"Titre": {"title", "text"},
		"new":   {"fresh", "a", "b"},
	} {
		got, ok := Lookup(b, want)
		require.True(t, ok, path)
		assert.Equal(t, path, got)
	}

	total, translated, untranslated := b.Stats()
	assert.Equal(t, 4, total)
	assert.Equal(t, 4, translated)
	assert.Equal(t, 0, untranslated)
}

func TestAssign_Arrays(t *testing.T) {
	b, err := Parse([]byte(`{"card": {"items": ["un", "deux"], "labels": {"0": "zéro"}}}`))
	require.NoError(t, err)

	Assign(b, []string{"card", "items", "3"}, "quatre")
	Assign(b, []string{"card", "labels", "1"}, "un")
	Assign(b, []string{"fresh", "list", "1", "text"}, "b")
	Assign(b, []string{"fresh", "keyed", "01"}, "x")

	out, err := b.Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{
  "card": {
    "items": [
      "un",
      "deux",
      null,
      "quatre"
    ],
    "labels": {
      "0": "zéro",
      "1": "un"
    }
  },
  "fresh": {
    "keyed": {
      "01": "x"
    },
    "list": [
      null,
      {
        "text": "b"
      }
    ]
  }
}
`, string(out))
}

func TestClone_IsDeep(t *testing.T) {
	b, err := Parse([]byte(`{"c": {"k": "v"}}`))
	require.NoError(t, err)

	c := b.Clone()
	Assign(c, []string{"c", "k"}, "changed")

	s, _ := Lookup(b, []string{"c", "k"})
	assert.Equal(t, "v", s)
}

func TestSetLanguages_DefaultFirst(t *testing.T) {
	s := Set{}
	s.Bundle("fr")
	s.Bundle("")
	s.Bundle("de")
	assert.Equal(t, []string{"", "de", "fr"}, s.Languages())
}
