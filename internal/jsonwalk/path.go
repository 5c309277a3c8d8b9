package jsonwalk

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

type segment struct {
	key     string
	indices []int
}

func parsePath(path string) ([]segment, error) {
	if path == "" || path == "." {
		return nil, nil
	}
	parts := strings.Split(path, ".")
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, eris.Errorf("jsonwalk: empty segment in path %q", path)
		}
		seg := segment{key: part}
		if i := strings.IndexByte(part, '['); i >= 0 {
			seg.key = part[:i]
			for _, m := range indexPattern.FindAllStringSubmatch(part[i:], -1) {
				idx, err := strconv.Atoi(m[1])
				if err != nil {
					return nil, eris.Wrapf(err, "jsonwalk: bad index in path %q", path)
				}
				seg.indices = append(seg.indices, idx)
			}
			if seg.key == "" && len(seg.indices) == 0 {
				return nil, eris.Errorf("jsonwalk: bad segment %q in path %q", part, path)
			}
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// GetPath resolves a dotted path like "a.b[2].c" against a document.
// The second return is false when any segment is missing or out of range.
func GetPath(doc any, path string) (any, bool) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, false
	}
	current := doc
	for _, seg := range segs {
		if seg.key != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = m[seg.key]
			if !ok {
				return nil, false
			}
		}
		for _, idx := range seg.indices {
			arr, ok := current.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}
	return current, true
}

// SetPath writes value at a dotted path, creating intermediate objects for
// missing keys. Array hops must already exist at the referenced index.
func SetPath(doc map[string]any, path string, value any) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return eris.New("jsonwalk: cannot set document root")
	}

	var current any = doc
	for _, seg := range segs[:len(segs)-1] {
		current, err = descend(current, seg, path)
		if err != nil {
			return err
		}
	}

	last := segs[len(segs)-1]
	if len(last.indices) == 0 {
		m, ok := current.(map[string]any)
		if !ok {
			return eris.Errorf("jsonwalk: %q is not an object in path %q", last.key, path)
		}
		m[last.key] = value
		return nil
	}

	m, ok := current.(map[string]any)
	if !ok {
		return eris.Errorf("jsonwalk: %q is not an object in path %q", last.key, path)
	}
	target, ok := m[last.key]
	if !ok {
		return eris.Errorf("jsonwalk: missing array %q in path %q", last.key, path)
	}
	for _, idx := range last.indices[:len(last.indices)-1] {
		arr, ok := target.([]any)
		if !ok || idx < 0 || idx >= len(arr) {
			return eris.Errorf("jsonwalk: index %d out of range in path %q", idx, path)
		}
		target = arr[idx]
	}
	idx := last.indices[len(last.indices)-1]
	arr, ok := target.([]any)
	if !ok || idx < 0 || idx >= len(arr) {
		return eris.Errorf("jsonwalk: index %d out of range in path %q", idx, path)
	}
	arr[idx] = value
	return nil
}

func descend(current any, seg segment, path string) (any, error) {
	m, ok := current.(map[string]any)
	if !ok {
		return nil, eris.Errorf("jsonwalk: %q is not an object in path %q", seg.key, path)
	}
	next, ok := m[seg.key]
	if !ok {
		if len(seg.indices) > 0 {
			return nil, eris.Errorf("jsonwalk: missing array %q in path %q", seg.key, path)
		}
		created := map[string]any{}
		m[seg.key] = created
		return created, nil
	}
	for _, idx := range seg.indices {
		arr, ok := next.([]any)
		if !ok || idx < 0 || idx >= len(arr) {
			return nil, eris.Errorf("jsonwalk: index %d out of range in path %q", idx, path)
		}
		next = arr[idx]
	}
	return next, nil
}
