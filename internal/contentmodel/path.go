package contentmodel

import "strings"

// ParsePath splits a property path on "." or "/", dropping empty segments.
func ParsePath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '.' || r == '/'
	})
}

// lookup walks segments through nested maps.
func lookup(data map[string]any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return nil, false
	}
	var current any = data
	for _, segment := range segments {
		container, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = container[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
