package fsio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/bundlesync/item"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "bundle.json", `{}`)
	writeFile(t, root, "locales/bundle.fr.json", `{}`)
	writeFile(t, root, "xliff/bundle.fr.xlf", `<xliff/>`)
	writeFile(t, root, "src/card/locales/card.fr.json", `{}`)
	writeFile(t, root, "src/card/locales/card.json", `{}`)
	writeFile(t, root, "src/card/card.html", `<dom-module>`)
	writeFile(t, root, "other/locales/x.fr.json", `{}`)
	writeFile(t, root, "node_modules/pkg/locales/bundle.fr.json", `{}`)
	writeFile(t, root, "src/card/locales/bundle.fr.json", `{"stray": true}`)
	writeFile(t, root, "backup/xliff/bundle.fr.xlf", `<xliff/>`)

	items, err := Collect(root, "src")
	require.NoError(t, err)

	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
		assert.Equal(t, root, it.Root)
	}
	assert.Equal(t, []string{
		"locales/bundle.fr.json",
		"xliff/bundle.fr.xlf",
		"bundle.json",
		"src/card/locales/card.fr.json",
		"src/card/locales/card.json",
	}, paths)
	assert.Equal(t, item.Class{Kind: item.KindFragment, Component: "card", Lang: "fr"}, items[3].Class)
}

func TestWrite(t *testing.T) {
	dest := t.TempDir()
	items := []*item.Item{
		item.New(dest, "bundle.json", []byte("{}\n"), ""),
		item.New(dest, "xliff/bundle.fr.xlf", []byte("<xliff/>\n"), ""),
	}

	n, err := Write(dest, items)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dest, "xliff", "bundle.fr.xlf"))
	require.NoError(t, err)
	assert.Equal(t, "<xliff/>\n", string(data))

	items[0].Content = []byte(`{"changed": true}`)
	n, err = Write(dest, items)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
