// Package jsonwalk walks decoded JSON document trees: structural diffing,
// keyword scanning, path addressing, and copy/compare helpers. Paths use
// dotted object keys with bracketed array indices, e.g. "a.b[2].c"; the
// document root is addressed as ".".
package jsonwalk

import (
	"fmt"
	"sort"
)

// Diff returns the paths at which the two trees differ: value changes, type
// changes, added or removed keys, and array length changes. Object keys are
// visited in sorted order so output is deterministic. Equal trees produce an
// empty result.
func Diff(a, b any) []string {
	var paths []string
	diffValue(a, b, "", &paths)
	return paths
}

func diffValue(a, b any, path string, out *[]string) {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			record(path, out)
			return
		}
		for _, k := range unionKeys(av, bv) {
			aChild, inA := av[k]
			bChild, inB := bv[k]
			child := childPath(path, k)
			if inA && inB {
				diffValue(aChild, bChild, child, out)
				continue
			}
			record(child, out)
		}
	case []any:
		bv, ok := b.([]any)
		if !ok {
			record(path, out)
			return
		}
		n := len(av)
		if len(bv) < n {
			n = len(bv)
		}
		for i := 0; i < n; i++ {
			diffValue(av[i], bv[i], indexPath(path, i), out)
		}
		for i := n; i < len(av); i++ {
			record(indexPath(path, i), out)
		}
		for i := n; i < len(bv); i++ {
			record(indexPath(path, i), out)
		}
	default:
		if _, ok := b.(map[string]any); ok {
			record(path, out)
			return
		}
		if _, ok := b.([]any); ok {
			record(path, out)
			return
		}
		if !DeepEqual(a, b) {
			record(path, out)
		}
	}
}

// DeepEqual reports whether two document values are structurally equal.
// Numeric leaves compare by value, so documents built in code (int) match
// documents decoded from JSON (float64).
func DeepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bc, present := bv[k]
			if !present || !DeepEqual(v, bc) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		if af, aok := toFloat(a); aok {
			bf, bok := toFloat(b)
			return bok && af == bf
		}
		return a == b
	}
}

// DeepCopy returns a copy of v sharing no mutable containers with the
// original. Scalars are returned as-is.
func DeepCopy(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			out[k] = DeepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, val := range tv {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		return v
	}
}

func record(path string, out *[]string) {
	if path == "" {
		path = "."
	}
	*out = append(*out, path)
}

func childPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func indexPath(prefix string, i int) string {
	return fmt.Sprintf("%s[%d]", prefix, i)
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
