// Package contentmodel implements the scoped property model that processors
// write into during a render.
//
// A Model is a stack of scopes. Reads walk from the current scope toward the
// root and return the closest match. Writes follow one of three localities:
// Closest descends into whichever scope already owns each container on the
// path, Root does the same against the root scope, and Isolated merges a
// fresh fragment into the current scope only.
package contentmodel

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Locality selects the write discipline for Set.
type Locality int

const (
	Closest Locality = iota
	Root
	Isolated
)

// String returns the string representation of the Locality
func (l Locality) String() string {
	switch l {
	case Closest:
		return "closest"
	case Root:
		return "root"
	case Isolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// ParseLocality converts a locality name. The empty string means Closest.
func ParseLocality(s string) (Locality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closest", "":
		return Closest, nil
	case "root":
		return Root, nil
	case "isolated":
		return Isolated, nil
	default:
		return Closest, fmt.Errorf("unknown locality %q (supported: closest, root, isolated)", s)
	}
}

type scope struct {
	parent     *scope
	data       map[string]any
	attributes map[string]any
}

func newScope(parent *scope) *scope {
	return &scope{
		parent:     parent,
		data:       make(map[string]any),
		attributes: make(map[string]any),
	}
}

// Model is a stack of property scopes. One render owns a Model at a time;
// the mutex only keeps the scope pointer consistent.
type Model struct {
	mutex   sync.Mutex
	root    *scope
	current *scope
	depth   int
}

// New creates a model whose root scope holds initial.
func New(initial map[string]any) *Model {
	root := newScope(nil)
	if initial != nil {
		root.data = Normalize(initial).(map[string]any)
	}
	return &Model{root: root, current: root}
}

// ExtendScope pushes a new scope.
func (m *Model) ExtendScope() *Model {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.push()
	return m
}

// ExtendScopeWith pushes a new scope and merges data into it.
func (m *Model) ExtendScopeWith(data map[string]any) *Model {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.push()
	if data != nil {
		mergeShallow(m.current.data, Normalize(data).(map[string]any))
	}
	return m
}

// IsolateScope pushes a new scope meant to receive Isolated writes.
func (m *Model) IsolateScope() *Model {
	return m.ExtendScope()
}

// RetractScope discards the current scope. Retracting the root does nothing.
func (m *Model) RetractScope() *Model {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.current != m.root {
		m.current = m.current.parent
		m.depth--
	}
	return m
}

// Depth returns the number of scopes above the root.
func (m *Model) Depth() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.depth
}

// must hold m.mutex
func (m *Model) push() {
	m.current = newScope(m.current)
	m.depth++
}

// Get returns the value at path from the closest scope defining it. Maps
// and lists are returned as copies.
func (m *Model) Get(path string) (any, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	v, ok := readThrough(m.current, ParsePath(path))
	if !ok {
		return nil, false
	}
	return clone(v), true
}

// Has reports whether path resolves to a non-nil value.
func (m *Model) Has(path string) bool {
	v, ok := m.Get(path)
	return ok && v != nil
}

// GetString returns the value at path as text, or "".
func (m *Model) GetString(path string) string {
	v, ok := m.Get(path)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		data, err := json.Marshal(jsonSafe(x))
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// GetBool returns the boolean at path. Strings are parsed; anything else
// is false.
func (m *Model) GetBool(path string) bool {
	v, _ := m.Get(path)
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(x)
		return err == nil && b
	default:
		return false
	}
}

func readThrough(from *scope, segments []string) (any, bool) {
	for s := from; s != nil; s = s.parent {
		if v, ok := lookup(s.data, segments); ok {
			return v, true
		}
	}
	return nil, false
}

// Set writes value at path with Closest locality.
func (m *Model) Set(path string, value any) *Model {
	return m.SetIn(path, value, Closest)
}

// SetToRoot writes value at path with Root locality.
func (m *Model) SetToRoot(path string, value any) *Model {
	return m.SetIn(path, value, Root)
}

// SetIsolated writes value at path with Isolated locality.
func (m *Model) SetIsolated(path string, value any) *Model {
	return m.SetIn(path, value, Isolated)
}

// SetIn writes value at path. An empty path is ignored.
func (m *Model) SetIn(path string, value any, locality Locality) *Model {
	segments := ParsePath(path)
	if len(segments) == 0 {
		return m
	}
	value = Normalize(value)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch locality {
	case Root:
		write(m.root, m.root.data, segments, 1, value)
	case Isolated:
		mergeShallow(m.current.data, fragment(segments, value))
	default:
		write(m.current, m.current.data, segments, 1, value)
	}
	return m
}

// write assigns value once every container on the path exists. For the
// ancestor prefix segments[:n] it reuses the container visible from `from`
// wherever it lives; a missing or non-container entry is replaced by a new
// container inside the container the walk is in.
func write(from *scope, container map[string]any, segments []string, n int, value any) {
	if n == len(segments) {
		container[segments[n-1]] = value
		return
	}

	key := segments[n-1]
	next, ok := existingContainer(from, segments[:n])
	if !ok {
		next = make(map[string]any)
		container[key] = next
	}
	write(from, next, segments, n+1, value)
}

func existingContainer(from *scope, prefix []string) (map[string]any, bool) {
	v, ok := readThrough(from, prefix)
	if !ok {
		return nil, false
	}
	container, ok := v.(map[string]any)
	return container, ok
}

// fragment builds {s0: {s1: {... sn: value}}} from fresh maps.
func fragment(segments []string, value any) map[string]any {
	out := map[string]any{segments[len(segments)-1]: value}
	for i := len(segments) - 2; i >= 0; i-- {
		out = map[string]any{segments[i]: out}
	}
	return out
}

// mergeShallow copies src into dst, descending one level into containers
// present on both sides.
func mergeShallow(dst, src map[string]any) {
	for k, v := range src {
		existing, dstOK := dst[k].(map[string]any)
		incoming, srcOK := v.(map[string]any)
		if dstOK && srcOK {
			for ik, iv := range incoming {
				existing[ik] = iv
			}
			continue
		}
		dst[k] = v
	}
}

// SetAttribute stores a side-channel value on the current scope.
// Attributes are never inherited or serialized.
func (m *Model) SetAttribute(name string, value any) *Model {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.current.attributes[name] = value
	return m
}

// Attribute reads a side-channel value from the current scope.
func (m *Model) Attribute(name string) (any, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	v, ok := m.current.attributes[name]
	return v, ok
}

// ToJSONObject merges every scope from the current one down to the root,
// closer scopes winning and nested maps merged recursively.
func (m *Model) ToJSONObject() map[string]any {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make(map[string]any)
	for s := m.current; s != nil; s = s.parent {
		mergeMissing(out, s.data)
	}
	return out
}

// mergeMissing adds entries from src that dst lacks, recursing where both
// hold maps. dst comes from closer scopes so its entries win.
func mergeMissing(dst, src map[string]any) {
	for k, v := range src {
		existing, present := dst[k]
		if !present {
			dst[k] = clone(v)
			continue
		}
		dstMap, dstOK := existing.(map[string]any)
		srcMap, srcOK := v.(map[string]any)
		if dstOK && srcOK {
			mergeMissing(dstMap, srcMap)
		}
	}
}

// ToJSONObjectKeys projects the given keys through Get. Missing keys are
// omitted.
func (m *Model) ToJSONObjectKeys(keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if v, ok := m.Get(key); ok && v != nil {
			out[key] = v
		}
	}
	return out
}

// ToJSONString encodes ToJSONObject.
func (m *Model) ToJSONString() (string, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MarshalJSON implements json.Marshaler. Times are written as RFC3339 with nanoseconds.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonSafe(m.ToJSONObject()))
}

// String returns the JSON form, or "{}" if encoding fails.
func (m *Model) String() string {
	s, err := m.ToJSONString()
	if err != nil {
		return "{}"
	}
	return s
}
