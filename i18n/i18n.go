// Package i18n translates the CLI's own messages.
//
// Catalogs are gettext .po files embedded from
// locales/<lang>/LC_MESSAGES/bundlesync.po. Messages are written in English;
// English therefore needs no catalog and an unmatched language falls back to
// the msgid.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

//go:embed all:locales
var locales embed.FS

const domain = "bundlesync"

var po *gotext.Locale

// Available lists the languages that have an embedded catalog, sorted.
func Available() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(locales, "locales/"+e.Name()+"/LC_MESSAGES/"+domain+".po"); err == nil {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs
}

// Init selects the catalog that best matches lang, or the user's locale
// environment when lang is empty. It returns the catalog language, or ""
// when messages stay in English.
func Init(lang string) string {
	po = nil
	if lang == "" {
		lang = localeFromEnv()
	}
	if lang == "" {
		return ""
	}

	avail := Available()
	supported := []language.Tag{language.English}
	for _, l := range avail {
		supported = append(supported, language.Make(l))
	}
	want, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return ""
	}
	_, idx, conf := language.NewMatcher(supported).Match(want)
	if idx == 0 || conf == language.No {
		return ""
	}

	chosen := avail[idx-1]
	po = gotext.NewLocaleFSWithPath(chosen, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
	return chosen
}

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms and picks the form for n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// localeFromEnv reads the gettext variables in priority order
// (LANGUAGE, LC_ALL, LC_MESSAGES, LANG) and returns the first usable value
// without its encoding suffix. "C" and "POSIX" mean untranslated.
func localeFromEnv() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		val, _, _ = strings.Cut(val, ".")
		val, _, _ = strings.Cut(val, "@")
		if val != "" && val != "C" && val != "POSIX" {
			return val
		}
	}
	return ""
}
