package docs

import "strings"

// splitPath resolves a spec §4.5 field path into its segments: a path
// starting with "/" is an RFC 6901 JSON Pointer (segments separated by
// "/", with "~1" and "~0" escaping "/" and "~"); anything else is a flat
// top-level field name and is treated as a single segment.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	if path[0] != '/' {
		return []string{path}
	}
	raw := strings.Split(path[1:], "/")
	segs := make([]string, len(raw))
	for i, s := range raw {
		segs[i] = unescapeToken(s)
	}
	return segs
}

// unescapeToken undoes RFC 6901 §3's escaping: "~1" decodes to "/" first,
// then "~0" decodes to "~".
func unescapeToken(s string) string {
	if !strings.Contains(s, "~") {
		return s
	}
	s = strings.ReplaceAll(s, "~1", "/")
	s = strings.ReplaceAll(s, "~0", "~")
	return s
}

// Field resolves path against doc, descending through nested objects.
// ok is false if any segment is missing or the path descends into a
// non-object. An empty path resolves to doc itself, per RFC 6901.
func Field(doc Doc, path string) (val any, ok bool) {
	if path == "" {
		return doc, true
	}
	segs := splitPath(path)
	var cur any = doc
	for _, seg := range segs {
		m, isMap := cur.(Doc)
		if !isMap {
			return nil, false
		}
		v, present := m[seg]
		if !present {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// SetField writes val at path within doc, creating intermediate objects
// as needed. It returns an error only if an intermediate segment already
// holds a non-object value. An empty path leaves doc unchanged and
// returns nil.
func SetField(doc Doc, path string, val any) error {
	if path == "" {
		return nil
	}
	segs := splitPath(path)
	m := doc
	for _, seg := range segs[:len(segs)-1] {
		next, present := m[seg]
		if !present {
			child := Doc{}
			m[seg] = child
			m = child
			continue
		}
		child, isMap := next.(Doc)
		if !isMap {
			return fieldConflictError{path: path, seg: seg}
		}
		m = child
	}
	m[segs[len(segs)-1]] = val
	return nil
}

type fieldConflictError struct {
	path, seg string
}

func (e fieldConflictError) Error() string {
	return "docs: path " + e.path + " passes through non-object field " + e.seg
}
