// Package xliff converts bundle sets to and from XLIFF 1.2 documents,
// the format handed to translators.
//
// Every string leaf of the source-language bundle becomes one trans-unit.
// The unit id is the leaf path joined with dots:
//
//	<trans-unit id="greeting.title">
//	  <source>Hello</source>
//	  <target state="translated">Bonjour</target>
//	</trans-unit>
//
// Untranslated leaves are written with an empty target and state="new".
// When a document is parsed back, only units with a non-empty target
// overwrite the base bundle; everything else keeps the base value.
package xliff

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/minios-linux/bundlesync/bundle"
	"github.com/minios-linux/bundlesync/langmeta"
)

// Namespace is the XLIFF 1.2 namespace.
const Namespace = "urn:oasis:names:tc:xliff:document:1.2"

// Target states written by Render.
const (
	StateNew        = "new"
	StateTranslated = "translated"
)

// ErrMalformedDocument is returned when a document cannot be parsed.
var ErrMalformedDocument = errors.New("malformed XLIFF document")

// ---------------------------------------------------------------------------
// Document model
// ---------------------------------------------------------------------------

type document struct {
	XMLName xml.Name    `xml:"xliff"`
	Xmlns   string      `xml:"xmlns,attr,omitempty"`
	Version string      `xml:"version,attr"`
	Files   []fileBlock `xml:"file"`
}

type fileBlock struct {
	Original       string `xml:"original,attr"`
	Datatype       string `xml:"datatype,attr"`
	SourceLanguage string `xml:"source-language,attr"`
	TargetLanguage string `xml:"target-language,attr,omitempty"`
	Body           group  `xml:"body"`
}

// group is used for both <body> and nested <group> elements.
type group struct {
	Groups []group     `xml:"group"`
	Units  []transUnit `xml:"trans-unit"`
}

type transUnit struct {
	ID     string  `xml:"id,attr"`
	Source string  `xml:"source"`
	Target *target `xml:"target"`
}

type target struct {
	State string `xml:"state,attr,omitempty"`
	Text  string `xml:",chardata"`
}

// ---------------------------------------------------------------------------
// Codec
// ---------------------------------------------------------------------------

// Options are passed through from configuration.
type Options struct {
	// Original is the file/@original attribute (default "bundle.json").
	Original string `yaml:"original,omitempty"`
	// Datatype is the file/@datatype attribute (default "plaintext").
	Datatype string `yaml:"datatype,omitempty"`
}

// Codec renders and parses XLIFF documents. It is safe for concurrent use.
type Codec struct {
	opts Options
}

// New creates a codec.
func New(opts Options) *Codec {
	if opts.Original == "" {
		opts.Original = "bundle.json"
	}
	if opts.Datatype == "" {
		opts.Datatype = "plaintext"
	}
	return &Codec{opts: opts}
}

// Render converts the source bundle set[""] and the target bundle
// set[dstLang] into one XLIFF document. srcLang is only used for the
// document header.
func (c *Codec) Render(ctx context.Context, set bundle.Set, srcLang, dstLang string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dstLang == "" {
		return nil, fmt.Errorf("rendering XLIFF: empty target language")
	}

	src := set[""]
	dst := set[dstLang]

	var units []transUnit
	seen := make(map[string]bool)
	bundle.Walk(src, func(path []string, source string) {
		id := joinID(path)
		seen[id] = true
		text, _ := bundle.Lookup(dst, path)
		units = append(units, newUnit(id, source, text))
	})
	// Leaves that only exist in the target still need to round-trip.
	bundle.Walk(dst, func(path []string, text string) {
		id := joinID(path)
		if seen[id] || text == "" {
			return
		}
		units = append(units, newUnit(id, "", text))
	})

	doc := document{
		Xmlns:   Namespace,
		Version: "1.2",
		Files: []fileBlock{{
			Original:       c.opts.Original,
			Datatype:       c.opts.Datatype,
			SourceLanguage: langmeta.Canonical(srcLang),
			TargetLanguage: langmeta.Canonical(dstLang),
			Body:           group{Units: units},
		}},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("rendering XLIFF for %s: %w", dstLang, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func newUnit(id, source, text string) transUnit {
	state := StateNew
	if text != "" {
		state = StateTranslated
	}
	return transUnit{ID: id, Source: source, Target: &target{State: state, Text: text}}
}

// Parse reads an XLIFF document and overlays its translated units on a copy
// of base. A nil base starts from an empty bundle. Keys the document does
// not mention keep their base values.
func (c *Codec) Parse(ctx context.Context, data []byte, base *bundle.Bundle) (*bundle.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc.Version != "" && !strings.HasPrefix(doc.Version, "1.") {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedDocument, doc.Version)
	}

	out := base.Clone()
	for _, f := range doc.Files {
		if err := overlay(out, f.Body); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func overlay(b *bundle.Bundle, g group) error {
	for _, u := range g.Units {
		if u.ID == "" {
			return fmt.Errorf("%w: trans-unit without id", ErrMalformedDocument)
		}
		if u.Target == nil || u.Target.Text == "" {
			continue
		}
		bundle.Assign(b, splitID(u.ID), u.Target.Text)
	}
	for _, sub := range g.Groups {
		if err := overlay(b, sub); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Unit ids
// ---------------------------------------------------------------------------

// joinID joins path segments with dots, escaping '\' and '.' inside
// segments with a backslash.
func joinID(path []string) string {
	var b strings.Builder
	for i, seg := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		for _, r := range seg {
			if r == '.' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitID reverses joinID.
func splitID(id string) []string {
	var parts []string
	var cur strings.Builder
	escaped := false
	for _, r := range id {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(parts, cur.String())
}
