package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DetectLanguages finds target languages from existing bundles
// (locales/bundle.<lang>.json) and XLIFF documents (xliff/bundle.<lang>.xlf)
// below srcPath.
func DetectLanguages(srcPath string) []string {
	seen := make(map[string]bool)
	for _, dir := range []struct{ name, ext string }{
		{"locales", ".json"},
		{"xliff", ".xlf"},
	} {
		entries, err := os.ReadDir(filepath.Join(srcPath, dir.name))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasPrefix(name, "bundle.") || !strings.HasSuffix(name, dir.ext) {
				continue
			}
			lang := strings.TrimSuffix(strings.TrimPrefix(name, "bundle."), dir.ext)
			if lang != "" && !strings.Contains(lang, ".") {
				seen[lang] = true
			}
		}
	}

	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
