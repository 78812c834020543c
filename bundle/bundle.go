// Package bundle implements the per-language translation bundles that
// bundlesync consolidates from component fragments.
//
// A bundle maps a translation key (the component name) to that component's
// fragment, an arbitrary JSON value whose string leaves are the localizable
// texts. A consolidated bundle is written with an extra marker field:
//
//	{
//	  "bundle": true,
//	  "greeting": {
//	    "greeting": "Bonjour"
//	  }
//	}
//
// Serialization is stable: keys are sorted and the indentation is two spaces,
// so that a steady-state run produces byte-identical files.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/minios-linux/bundlesync/item"
)

// MarkerKey is the field that distinguishes a consolidated bundle from a raw
// fragment dump.
const MarkerKey = "bundle"

// ErrMalformed is returned when a bundle or fragment is not valid JSON.
var ErrMalformed = errors.New("malformed bundle")

// Bundle holds the translations of exactly one language.
type Bundle struct {
	// Entries maps translation key to JSON value (string, number, bool,
	// nil, []any or map[string]any).
	Entries map[string]any
	// Consolidated marks a bundle produced by consolidation.
	Consolidated bool
}

// Set maps a language code to its Bundle. The empty code is the source
// (default) language.
type Set map[string]*Bundle

// New returns an empty bundle.
func New() *Bundle {
	return &Bundle{Entries: make(map[string]any)}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Parse decodes a bundle. A leading byte-order mark is ignored and a
// boolean marker field sets Consolidated.
func Parse(data []byte) (*Bundle, error) {
	v, err := ParseValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrMalformed, v)
	}

	b := &Bundle{Entries: obj}
	if marker, ok := obj[MarkerKey].(bool); ok {
		b.Consolidated = marker
		delete(obj, MarkerKey)
	}
	return b, nil
}

// ParseValue decodes any JSON document, keeping numbers as json.Number so
// that they survive a round trip unchanged.
func ParseValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(item.StripBOM(data)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformed)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serializes the bundle with sorted keys and 2-space indentation.
// The marker field is included when the bundle is consolidated.
func (b *Bundle) Marshal() ([]byte, error) {
	out := make(map[string]any, len(b.Entries)+1)
	for k, v := range b.Entries {
		out[k] = v
	}
	if b.Consolidated {
		out[MarkerKey] = true
	}
	return MarshalValue(out)
}

// MarshalValue serializes a single JSON value the same way bundles are
// serialized. HTML characters are not escaped.
func MarshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Get returns the value stored under key.
func (b *Bundle) Get(key string) (any, bool) {
	if b == nil {
		return nil, false
	}
	v, ok := b.Entries[key]
	return v, ok
}

// Keys returns the bundle keys, sorted.
func (b *Bundle) Keys() []string {
	keys := make([]string, 0, len(b.Entries))
	for k := range b.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the bundle.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return New()
	}
	c := &Bundle{
		Entries:      make(map[string]any, len(b.Entries)),
		Consolidated: b.Consolidated,
	}
	for k, v := range b.Entries {
		c.Entries[k] = CloneValue(v)
	}
	return c
}

// Stats returns (total, translated, untranslated) counts of string leaves.
func (b *Bundle) Stats() (total, translated, untranslated int) {
	Walk(b, func(_ []string, s string) {
		total++
		if s != "" {
			translated++
		} else {
			untranslated++
		}
	})
	return
}

// Languages returns the languages of the set, the default ("") first and
// the rest sorted.
func (s Set) Languages() []string {
	langs := make([]string, 0, len(s))
	for lang := range s {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Bundle returns the bundle for lang, creating it if needed.
func (s Set) Bundle(lang string) *Bundle {
	b, ok := s[lang]
	if !ok {
		b = New()
		s[lang] = b
	}
	return b
}
