// Package leverage aggregates component fragments into the per-language
// bundle set of a run and reuses existing translations for them.
//
// Every fragment seen is stored at set[lang][component]. Once the fragment
// stream ends, Complete aligns each translated component with the shape of
// its source-language component:
//   - string leaves missing from the translation are added as "" (untranslated)
//   - keys that no longer exist in the source are dropped
//   - a translation whose source string changed since the last run (according
//     to the lock file) is reset to ""
//
// The translated fragment items are re-serialized with the aligned content so
// that the source tree gets the same view as the bundles.
package leverage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/minios-linux/bundlesync/bundle"
	"github.com/minios-linux/bundlesync/item"
	"github.com/minios-linux/bundlesync/lockfile"
)

// Options configure a Leverager.
type Options struct {
	// Log receives progress messages. Nil disables logging.
	Log func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.Log != nil {
		o.Log(format, args...)
	}
}

// Report summarizes what Complete changed.
type Report struct {
	// Added counts untranslated leaves added to translations.
	Added int
	// Reset counts translations dropped because their source changed.
	Reset int
	// Pruned counts translated keys removed because the source lost them.
	Pruned int
}

// Leverager populates a bundle set from fragments. It is not safe for
// concurrent use; fragments are observed sequentially.
type Leverager struct {
	set  bundle.Set
	lock *lockfile.LockFile
	opts Options

	fragments []*item.Item
}

// New creates a Leverager writing into set. lock may be nil, in which case
// changed source strings are not detected.
func New(set bundle.Set, lock *lockfile.LockFile, opts Options) *Leverager {
	return &Leverager{set: set, lock: lock, opts: opts}
}

// Observe records a fragment. Items that are not fragments are ignored.
func (l *Leverager) Observe(it *item.Item) error {
	if it.Class.Kind != item.KindFragment {
		return nil
	}
	v, err := bundle.ParseValue(it.Content)
	if err != nil {
		return fmt.Errorf("%s: %w", it.Path, err)
	}
	l.set.Bundle(it.Class.Lang).Entries[it.Class.Component] = v
	if it.Class.Lang != "" {
		l.fragments = append(l.fragments, it)
	}
	return nil
}

// Complete finalizes the bundle set. It must be called once, after the last
// Observe.
func (l *Leverager) Complete() (Report, error) {
	var rep Report
	src := l.set[""]

	for _, lang := range l.set.Languages() {
		if lang == "" || src == nil {
			continue
		}
		dst := l.set[lang]
		for _, component := range dst.Keys() {
			sv, ok := src.Entries[component]
			if !ok {
				continue
			}
			dst.Entries[component] = l.align(&rep, component, nil, sv, dst.Entries[component])
		}
	}

	for _, it := range l.fragments {
		v, _ := l.set[it.Class.Lang].Get(it.Class.Component)
		data, err := bundle.MarshalValue(v)
		if err != nil {
			return rep, fmt.Errorf("%s: %w", it.Path, err)
		}
		it.Content = data
	}

	if l.lock != nil && src != nil {
		for _, component := range src.Keys() {
			entries := make(map[string]string)
			walkStrings(nil, src.Entries[component], func(path []string, s string) {
				entries[leafKey(path)] = s
			})
			l.lock.Record(component, entries)
		}
		l.lock.Clean(src.Keys())
	}

	if rep.Added+rep.Reset+rep.Pruned > 0 {
		l.opts.log("leverage: %d added, %d reset, %d pruned", rep.Added, rep.Reset, rep.Pruned)
	}
	return rep, nil
}

func (l *Leverager) align(rep *Report, component string, path []string, src, dst any) any {
	switch s := src.(type) {
	case string:
		d, ok := dst.(string)
		if !ok {
			rep.Added++
			return ""
		}
		if d != "" && l.lock != nil && l.lock.SourceChanged(component, leafKey(path), s) {
			rep.Reset++
			return ""
		}
		return d

	case map[string]any:
		dm, _ := dst.(map[string]any)
		if da, ok := dst.([]any); ok {
			dm = objectFromArray(da)
		}
		for k := range dm {
			if _, ok := s[k]; !ok {
				rep.Pruned++
			}
		}
		out := make(map[string]any, len(s))
		for k, sv := range s {
			var dv any
			if dm != nil {
				dv = dm[k]
			}
			out[k] = l.align(rep, component, append(path, k), sv, dv)
		}
		return out

	case []any:
		da, _ := dst.([]any)
		if dm, ok := dst.(map[string]any); ok {
			da = arrayFromObject(dm)
		}
		out := make([]any, len(s))
		for i, sv := range s {
			var dv any
			if i < len(da) {
				dv = da[i]
			}
			out[i] = l.align(rep, component, append(path, strconv.Itoa(i)), sv, dv)
		}
		return out
	}

	if dst != nil {
		return dst
	}
	return bundle.CloneValue(src)
}

// objectFromArray and arrayFromObject let a translation whose container
// kind differs from the source (an XLIFF id like "items.0" carries no
// container type) line up by index.
func objectFromArray(a []any) map[string]any {
	m := make(map[string]any, len(a))
	for i, e := range a {
		m[strconv.Itoa(i)] = e
	}
	return m
}

func arrayFromObject(m map[string]any) []any {
	var a []any
	for k, e := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) {
			continue
		}
		for len(a) <= i {
			a = append(a, nil)
		}
		a[i] = e
	}
	return a
}

func walkStrings(path []string, v any, fn func([]string, string)) {
	switch t := v.(type) {
	case string:
		fn(path, t)
	case map[string]any:
		for k, e := range t {
			walkStrings(append(path, k), e, fn)
		}
	case []any:
		for i, e := range t {
			walkStrings(append(path, strconv.Itoa(i)), e, fn)
		}
	}
}

func leafKey(path []string) string {
	return strings.Join(path, "/")
}
