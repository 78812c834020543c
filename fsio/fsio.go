// Package fsio connects bundlesync runs to the file system: Collect reads
// the items of a project tree and Write persists the items a run produced.
package fsio

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/minios-linux/bundlesync/item"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":             true,
	"node_modules":     true,
	"bower_components": true,
}

// Collect walks root and returns every bundle, XLIFF document and fragment
// found, ordered with item.Sort. elementsDir restricts where fragments are
// recognized (relative to root, "" = anywhere).
func Collect(root, elementsDir string) ([]*item.Item, error) {
	var items []*item.Item

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if item.Classify(rel, elementsDir).Kind == item.KindOther {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		items = append(items, item.New(root, rel, data, elementsDir))
		return nil
	})
	if err != nil {
		return nil, err
	}

	item.Sort(items)
	return items, nil
}

// Write persists items below dest. Files whose content is already up to
// date are left alone. It returns the number of files written.
func Write(dest string, items []*item.Item) (int, error) {
	written := 0
	for _, it := range items {
		path := filepath.Join(dest, filepath.FromSlash(it.Path))

		if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, it.Content) {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return written, fmt.Errorf("creating directory: %w", err)
		}
		if err := os.WriteFile(path, it.Content, 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written++
	}
	return written, nil
}
