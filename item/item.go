// Package item models the files that flow through a bundlesync run.
//
// An Item is an in-memory file-to-be: a root directory, a slash-separated
// path relative to that root, raw content, and a classification computed
// once from the path. The engine mutates Content only; persisting Items is
// the job of a writer (see package fsio).
//
// Recognized layouts (path suffixes, case-sensitive):
//
//	bundle.json                               default-language bundle
//	locales/bundle.<lang>.json                per-language bundle
//	xliff/bundle.<lang>.xlf                   per-language XLIFF document
//	<elements>/**/locales/<component>.<lang>.json  component fragment
//	<elements>/**/locales/<component>.json         default-language fragment
package item

import (
	"bytes"
	"path"
	"sort"
	"strings"
)

// Kind identifies what an Item is.
type Kind int

const (
	// KindOther is any file the engine does not interpret.
	KindOther Kind = iota
	// KindDefaultBundle is the consolidated default-language bundle.
	KindDefaultBundle
	// KindLangBundle is a consolidated per-language bundle.
	KindLangBundle
	// KindInterchange is a per-language XLIFF document.
	KindInterchange
	// KindFragment is a per-component locale fragment.
	KindFragment
)

func (k Kind) String() string {
	switch k {
	case KindDefaultBundle:
		return "default-bundle"
	case KindLangBundle:
		return "bundle"
	case KindInterchange:
		return "xliff"
	case KindFragment:
		return "fragment"
	}
	return "other"
}

// Class is the classification of a path.
type Class struct {
	Kind Kind
	// Component is set for fragments only.
	Component string
	// Lang is the language code. Empty for the default bundle and for
	// default-language fragments.
	Lang string
}

// IsBundleFile reports whether the class names a file regenerated by
// consolidation (bundles and XLIFF documents).
func (c Class) IsBundleFile() bool {
	switch c.Kind {
	case KindDefaultBundle, KindLangBundle, KindInterchange:
		return true
	}
	return false
}

// Item is one file flowing through the engine.
type Item struct {
	// Root is the directory Path is relative to.
	Root string
	// Path is slash-separated and relative to Root.
	Path    string
	Content []byte
	Class   Class
}

// New creates an Item and classifies its path. elementsDir restricts where
// fragments are recognized; empty means anywhere.
func New(root, p string, content []byte, elementsDir string) *Item {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return &Item{
		Root:    root,
		Path:    p,
		Content: content,
		Class:   Classify(p, elementsDir),
	}
}

// Classify derives the Class of a slash-separated relative path.
func Classify(p, elementsDir string) Class {
	base := path.Base(p)
	dir := path.Dir(p)

	// Bundle files only count at their canonical locations; elsewhere they
	// are neither bundles nor fragments of a "bundle" component.
	if base == "bundle.json" {
		if p == BundlePath("") {
			return Class{Kind: KindDefaultBundle}
		}
		return Class{Kind: KindOther}
	}
	if lang, ok := bundleLang(base, ".json"); ok {
		if p == BundlePath(lang) {
			return Class{Kind: KindLangBundle, Lang: lang}
		}
		return Class{Kind: KindOther}
	}
	if lang, ok := bundleLang(base, ".xlf"); ok {
		if p == InterchangePath(lang) {
			return Class{Kind: KindInterchange, Lang: lang}
		}
		return Class{Kind: KindOther}
	}

	if path.Base(dir) != "locales" || !strings.HasSuffix(base, ".json") {
		return Class{Kind: KindOther}
	}
	if elementsDir != "" && elementsDir != "." {
		prefix := strings.TrimSuffix(path.Clean(elementsDir), "/") + "/"
		if !strings.HasPrefix(p, prefix) {
			return Class{Kind: KindOther}
		}
	}

	name := strings.TrimSuffix(base, ".json")
	component, rest, hasLang := strings.Cut(name, ".")
	if component == "" {
		return Class{Kind: KindOther}
	}
	if !hasLang {
		return Class{Kind: KindFragment, Component: component}
	}
	// "foo.fr.bak" still denotes language "fr".
	lang, _, _ := strings.Cut(rest, ".")
	if lang == "" {
		return Class{Kind: KindOther}
	}
	return Class{Kind: KindFragment, Component: component, Lang: lang}
}

// bundleLang matches "bundle.<lang><ext>" where lang has no dots.
func bundleLang(base, ext string) (string, bool) {
	if !strings.HasPrefix(base, "bundle.") || !strings.HasSuffix(base, ext) {
		return "", false
	}
	lang := strings.TrimSuffix(strings.TrimPrefix(base, "bundle."), ext)
	if lang == "" || strings.ContainsAny(lang, "./") {
		return "", false
	}
	return lang, true
}

// ---------------------------------------------------------------------------
// Canonical output paths
// ---------------------------------------------------------------------------

// BundlePath returns the canonical bundle path for a language ("" = default).
func BundlePath(lang string) string {
	if lang == "" {
		return "bundle.json"
	}
	return "locales/bundle." + lang + ".json"
}

// InterchangePath returns the canonical XLIFF path for a target language.
func InterchangePath(lang string) string {
	return "xliff/bundle." + lang + ".xlf"
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StripBOM removes a leading UTF-8 byte-order mark.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// Sort orders items by basename with "bundle.*" files first, so that the
// bundles and XLIFF documents of a language precede the fragments that
// depend on them. Ties are broken by full path.
func Sort(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		bi, bj := path.Base(items[i].Path), path.Base(items[j].Path)
		ai, aj := strings.HasPrefix(bi, "bundle."), strings.HasPrefix(bj, "bundle.")
		if ai != aj {
			return ai
		}
		if bi != bj {
			return bi < bj
		}
		return items[i].Path < items[j].Path
	})
}
