package bundle

import (
	"sort"
	"strconv"
)

// Walk calls fn for every string leaf of the bundle in sorted key order.
// The path starts with the bundle key; array elements use their index.
func Walk(b *Bundle, fn func(path []string, s string)) {
	if b == nil {
		return
	}
	for _, k := range b.Keys() {
		walkValue([]string{k}, b.Entries[k], fn)
	}
}

func walkValue(path []string, v any, fn func([]string, string)) {
	switch t := v.(type) {
	case string:
		fn(append([]string(nil), path...), t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkValue(append(path, k), t[k], fn)
		}
	case []any:
		for i, e := range t {
			walkValue(append(path, strconv.Itoa(i)), e, fn)
		}
	}
}

// Lookup returns the string leaf at path.
func Lookup(b *Bundle, path []string) (string, bool) {
	if b == nil || len(path) == 0 {
		return "", false
	}
	v, ok := b.Entries[path[0]]
	if !ok {
		return "", false
	}
	for _, seg := range path[1:] {
		switch t := v.(type) {
		case map[string]any:
			if v, ok = t[seg]; !ok {
				return "", false
			}
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return "", false
			}
			v = t[i]
		default:
			return "", false
		}
	}
	s, ok := v.(string)
	return s, ok
}

// Assign stores s at path, creating intermediate values as needed.
// Canonical decimal segments index arrays: an existing array grows to fit
// the index (new slots are null) and a missing value becomes an array.
// Other segments address objects; an existing scalar in the way is replaced
// with an object, an existing array is converted to one keyed by index.
func Assign(b *Bundle, path []string, s string) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		b.Entries[path[0]] = s
		return
	}
	b.Entries[path[0]] = assignValue(b.Entries[path[0]], path[1:], s)
}

// maxArrayIndex bounds array growth from a single segment.
const maxArrayIndex = 1 << 16

func arrayIndex(seg string) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i > maxArrayIndex || strconv.Itoa(i) != seg {
		return 0, false
	}
	return i, true
}

func assignValue(v any, path []string, s string) any {
	if len(path) == 0 {
		return s
	}
	seg := path[0]

	switch t := v.(type) {
	case []any:
		if i, ok := arrayIndex(seg); ok {
			for len(t) <= i {
				t = append(t, nil)
			}
			t[i] = assignValue(t[i], path[1:], s)
			return t
		}
		obj := make(map[string]any, len(t)+1)
		for i, e := range t {
			obj[strconv.Itoa(i)] = e
		}
		obj[seg] = assignValue(obj[seg], path[1:], s)
		return obj

	case map[string]any:
		t[seg] = assignValue(t[seg], path[1:], s)
		return t

	case nil:
		if i, ok := arrayIndex(seg); ok {
			arr := make([]any, i+1)
			arr[i] = assignValue(nil, path[1:], s)
			return arr
		}
	}

	return map[string]any{seg: assignValue(nil, path[1:], s)}
}

// CloneValue deep-copies a decoded JSON value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		c := make(map[string]any, len(t))
		for k, e := range t {
			c[k] = CloneValue(e)
		}
		return c
	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = CloneValue(e)
		}
		return c
	}
	return v
}
