// Package types provides common type definitions used throughout Tessera.
// This package contains shared types to avoid circular dependencies between the
// store, configuration resolver, content model and pipeline packages.
package types

import (
	"sort"
)

// ComponentNode is one component type as read from the backing store. It is
// immutable once read for a given resolution pass.
type ComponentNode struct {
	// TypeName is the component type identifier (e.g., "site/components/button")
	TypeName string
	// SuperType is the immediate super-type name; empty when the type has none
	SuperType string
	// HasConfig reports whether the type carries a configuration marker
	HasConfig bool
	// Config holds the declared configuration properties, each possibly multi-valued
	Config map[string][]Value
	// Properties holds the non-configuration component properties (title, group, ...)
	Properties map[string][]Value
}

// Has reports whether the node declares the configuration property name.
func (n ComponentNode) Has(name string) bool {
	_, ok := n.Config[name]
	return ok
}

// Values returns a copy of the configuration values declared for name.
func (n ComponentNode) Values(name string) []Value {
	values, ok := n.Config[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(values))
	copy(out, values)
	return out
}

// Names returns the declared configuration property names, sorted.
func (n ComponentNode) Names() []string {
	names := make([]string, 0, len(n.Config))
	for name := range n.Config {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the node so cached chains never share maps with
// the store that produced them.
func (n ComponentNode) Clone() ComponentNode {
	return ComponentNode{
		TypeName:   n.TypeName,
		SuperType:  n.SuperType,
		HasConfig:  n.HasConfig,
		Config:     cloneValueMap(n.Config),
		Properties: cloneValueMap(n.Properties),
	}
}

func cloneValueMap(src map[string][]Value) map[string][]Value {
	if src == nil {
		return nil
	}
	dst := make(map[string][]Value, len(src))
	for name, values := range src {
		dst[name] = append([]Value(nil), values...)
	}
	return dst
}

// Resource is one component instance in the content tree being rendered.
type Resource struct {
	// Path is the content path of the instance (e.g., "/content/home/hero")
	Path string
	// TypeName is the component type the instance renders as
	TypeName string
	// Properties are the instance's own authored properties
	Properties map[string]any
}
