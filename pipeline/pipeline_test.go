package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/bundlesync/bundle"
	"github.com/minios-linux/bundlesync/item"
	"github.com/minios-linux/bundlesync/lockfile"
)

func newItems(files map[string]string) []*item.Item {
	var items []*item.Item
	for p, content := range files {
		items = append(items, item.New("/project", p, []byte(content), ""))
	}
	item.Sort(items)
	return items
}

func byPath(items []*item.Item) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.Path] = string(it.Content)
	}
	return out
}

func countKind(items []*item.Item, kind item.Kind, lang string) int {
	n := 0
	for _, it := range items {
		if it.Class.Kind == kind && it.Class.Lang == lang {
			n++
		}
	}
	return n
}

func TestRun_FirstRunWithoutPriorBundles(t *testing.T) {
	res, err := Run(context.Background(), newItems(map[string]string{
		"locales/greeting.fr.json": `{"greeting":"Bonjour"}`,
		"locales/greeting.json":    `{"greeting":"Hello"}`,
	}), Config{})
	require.NoError(t, err)

	files := byPath(res.Items)

	def, err := bundle.Parse([]byte(files["bundle.json"]))
	require.NoError(t, err)
	assert.True(t, def.Consolidated)
	s, _ := bundle.Lookup(def, []string{"greeting", "greeting"})
	assert.Equal(t, "Hello", s)

	fr, err := bundle.Parse([]byte(files["locales/bundle.fr.json"]))
	require.NoError(t, err)
	s, _ = bundle.Lookup(fr, []string{"greeting", "greeting"})
	assert.Equal(t, "Bonjour", s)

	doc := files["xliff/bundle.fr.xlf"]
	assert.Contains(t, doc, `<trans-unit id="greeting.greeting">`)
	assert.Contains(t, doc, `<source>Hello</source>`)
	assert.Contains(t, doc, `<target state="translated">Bonjour</target>`)

	assert.Equal(t, []LangStats{
		{Lang: "", Total: 1, Translated: 1},
		{Lang: "fr", Total: 1, Translated: 1},
	}, res.Stats())
}

func TestRun_RestoresRegeneratedFragment(t *testing.T) {
	res, err := Run(context.Background(), newItems(map[string]string{
		"locales/bundle.fr.json":   `{"bundle": true, "greeting": {"greeting": "Bonjour"}}`,
		"locales/greeting.fr.json": `{"greeting":""}`,
		"locales/greeting.json":    `{"greeting":"Hello"}`,
	}), Config{})
	require.NoError(t, err)

	files := byPath(res.Items)
	assert.JSONEq(t, `{"greeting":"Bonjour"}`, files["locales/greeting.fr.json"])
	assert.Contains(t, files["xliff/bundle.fr.xlf"], `<target state="translated">Bonjour</target>`)
}

func TestRun_ExportCompleteness(t *testing.T) {
	res, err := Run(context.Background(), newItems(map[string]string{
		"src/a/locales/a.json":    `{"t":"A"}`,
		"src/a/locales/a.de.json": `{"t":"A-de"}`,
		"src/a/locales/a.fr.json": `{"t":"A-fr"}`,
		"src/b/locales/b.json":    `{"t":"B"}`,
		"src/b/locales/b.ja.json": `{"t":""}`,
		"bundle.json":             `{"a": {"t": "stale"}}`,
		"xliff/bundle.it.xlf":     `<xliff version="1.2"></xliff>`,
	}), Config{Root: "/project"})
	require.NoError(t, err)

	assert.Equal(t, 1, countKind(res.Items, item.KindDefaultBundle, ""))
	for _, lang := range []string{"de", "fr", "ja"} {
		assert.Equal(t, 1, countKind(res.Items, item.KindLangBundle, lang), lang)
		assert.Equal(t, 1, countKind(res.Items, item.KindInterchange, lang), lang)
	}

	// languages only known from stale interchange documents are not exported
	assert.Equal(t, 0, countKind(res.Items, item.KindInterchange, "it"))
	assert.NotContains(t, byPath(res.Items)["bundle.json"], "stale")
}

func TestRun_SteadyStateIsIdempotent(t *testing.T) {
	lock := lockfile.New()
	cfg := Config{Lock: lock, SourceLang: "en"}

	first, err := Run(context.Background(), newItems(map[string]string{
		"src/card/locales/card.json":    `{"title":"Title","body":{"text":"Body & <b>more</b>"},"items":["one","two"]}`,
		"src/card/locales/card.fr.json": `{"title":"Titre","body":{"text":""}}`,
		"src/card/locales/card.de.json": `{"title":"Titel","items":["eins"]}`,
	}), cfg)
	require.NoError(t, err)

	second, err := Run(context.Background(), clone(first.Items), cfg)
	require.NoError(t, err)
	third, err := Run(context.Background(), clone(second.Items), cfg)
	require.NoError(t, err)

	assert.Equal(t, byPath(second.Items), byPath(third.Items))
	for p, content := range byPath(first.Items) {
		assert.Equal(t, content, byPath(second.Items)[p], p)
	}
}

func TestRun_TranslatorEditsFlowBack(t *testing.T) {
	lock := lockfile.New()
	cfg := Config{Lock: lock}

	first, err := Run(context.Background(), newItems(map[string]string{
		"locales/greeting.json":    `{"greeting":"Hello"}`,
		"locales/greeting.fr.json": `{"greeting":""}`,
	}), cfg)
	require.NoError(t, err)

	next := clone(first.Items)
	for _, it := range next {
		if it.Path == "xliff/bundle.fr.xlf" {
			require.Contains(t, string(it.Content), `<target state="new"></target>`)
			it.Content = []byte(strings.Replace(string(it.Content),
				`<target state="new"></target>`,
				`<target state="translated">Bonjour</target>`, 1))
		}
	}

	second, err := Run(context.Background(), next, cfg)
	require.NoError(t, err)

	files := byPath(second.Items)
	assert.JSONEq(t, `{"greeting":"Bonjour"}`, files["locales/greeting.fr.json"])
	assert.Contains(t, files["locales/bundle.fr.json"], `"greeting": "Bonjour"`)
	assert.Contains(t, files["xliff/bundle.fr.xlf"], `<target state="translated">Bonjour</target>`)
}

func TestRun_ArrayEditsFromXLIFFWithoutBundle(t *testing.T) {
	first, err := Run(context.Background(), newItems(map[string]string{
		"locales/card.json":    `{"items":["one","two"]}`,
		"locales/card.fr.json": `{"items":["",""]}`,
	}), Config{})
	require.NoError(t, err)

	var next []*item.Item
	for _, it := range clone(first.Items) {
		switch it.Path {
		case "locales/bundle.fr.json":
			continue
		case "xliff/bundle.fr.xlf":
			require.Contains(t, string(it.Content), `<trans-unit id="card.items.0">`)
			it.Content = []byte(strings.Replace(string(it.Content),
				`<target state="new"></target>`,
				`<target state="translated">un</target>`, 1))
		}
		next = append(next, it)
	}

	second, err := Run(context.Background(), next, Config{})
	require.NoError(t, err)

	files := byPath(second.Items)
	assert.JSONEq(t, `{"items":["un",""]}`, files["locales/card.fr.json"])
	assert.Contains(t, files["xliff/bundle.fr.xlf"], `<target state="translated">un</target>`)
}

func TestRun_ChangedSourceResetsTranslation(t *testing.T) {
	lock := lockfile.New()
	cfg := Config{Lock: lock}

	first, err := Run(context.Background(), newItems(map[string]string{
		"locales/greeting.json":    `{"greeting":"Hello"}`,
		"locales/greeting.fr.json": `{"greeting":"Bonjour"}`,
	}), cfg)
	require.NoError(t, err)

	next := clone(first.Items)
	for _, it := range next {
		if it.Path == "locales/greeting.json" {
			it.Content = []byte(`{"greeting":"Good evening"}`)
		}
	}

	second, err := Run(context.Background(), next, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Leverage.Reset)
	assert.JSONEq(t, `{"greeting":""}`, byPath(second.Items)["locales/greeting.fr.json"])
}

func TestRun_MalformedBundleAborts(t *testing.T) {
	res, err := Run(context.Background(), newItems(map[string]string{
		"bundle.json":              `{"oops"`,
		"locales/greeting.fr.json": `{"greeting":""}`,
	}), Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, bundle.ErrMalformed)
	assert.Nil(t, res)
}

func clone(items []*item.Item) []*item.Item {
	var out []*item.Item
	for _, it := range items {
		out = append(out, item.New(it.Root, it.Path, append([]byte(nil), it.Content...), ""))
	}
	item.Sort(out)
	return out
}
