// Package langmeta provides language tag canonicalization and display
// metadata (native names and emoji flags) used by the XLIFF header and the
// CLI status output.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Tag  string
	Name string
	Flag string
}

// canonicalize is the fallback for codes x/text does not know:
// "pt_br" -> "pt-BR".
func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

func parse(lang string) (language.Tag, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return language.Und, false
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// Canonical returns the BCP 47 form of a language code as used in XLIFF
// source-language/target-language attributes. Unknown codes are normalized
// syntactically.
func Canonical(lang string) string {
	if tag, ok := parse(lang); ok {
		return tag.String()
	}
	return canonicalize(lang)
}

// Resolve returns best-effort metadata for a language code. The name is the
// language's own name for itself; unknown codes pass through unchanged with
// no flag.
func Resolve(lang string) Meta {
	tag, ok := parse(lang)
	if !ok {
		return Meta{Tag: canonicalize(lang), Name: lang}
	}

	m := Meta{Tag: tag.String(), Name: display.Self.Name(tag)}
	if m.Name == "" {
		m.Name = lang
	}
	if region, conf := tag.Region(); conf != language.No {
		m.Flag = FlagFromRegion(region.String())
	}
	return m
}

// FlagFromRegion converts a two-letter region code into a flag emoji.
func FlagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	region = strings.ToUpper(region)
	var b strings.Builder
	for _, r := range region {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}
