package configuration

import (
	"sort"

	"github.com/conneroisu/tessera/internal/types"
)

// Chain is a resolved configuration chain: leaf type first, ending at the
// last ancestor that carries a configuration marker.
type Chain []types.ComponentNode

// Clone returns a deep copy of the chain.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	out := make(Chain, len(c))
	for i, node := range c {
		out[i] = node.Clone()
	}
	return out
}

// TypeNames lists the chain's type names, leaf first.
func (c Chain) TypeNames() []string {
	names := make([]string, len(c))
	for i, node := range c {
		names[i] = node.TypeName
	}
	return names
}

// Values computes the values of property under mode.
func (c Chain) Values(property string, mode types.Mode) []types.Value {
	if len(c) == 0 {
		return nil
	}

	switch mode {
	case types.ModeShallow:
		return c[0].Values(property)
	case types.ModeMerge:
		var out []types.Value
		for _, node := range c {
			for _, v := range node.Config[property] {
				if !containsValue(out, v) {
					out = append(out, v)
				}
			}
		}
		return out
	case types.ModeCombine:
		var out []types.Value
		for _, node := range c {
			out = append(out, node.Config[property]...)
		}
		return out
	default:
		for _, node := range c {
			if node.Has(property) {
				return node.Values(property)
			}
		}
		return nil
	}
}

func containsValue(values []types.Value, v types.Value) bool {
	for _, existing := range values {
		if existing.Equal(v) {
			return true
		}
	}
	return false
}

// Names returns the sorted property names visible on the chain. shallow
// restricts the enumeration to the leaf entry, so a name defined only on an
// ancestor is excluded even though INHERIT would reach it.
func (c Chain) Names(shallow bool) []string {
	if len(c) == 0 {
		return []string{}
	}

	entries := c
	if shallow {
		entries = c[:1]
	}
	seen := make(map[string]struct{})
	for _, node := range entries {
		for name := range node.Config {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Distill maps every visible name to its resolved value. With flatten a
// single value becomes the scalar itself and an absent one becomes nil;
// without it every entry is a list.
func (c Chain) Distill(mode types.Mode, flatten bool) map[string]any {
	names := c.Names(mode == types.ModeShallow)
	out := make(map[string]any, len(names))

	for _, name := range names {
		values := c.Values(name, mode)
		switch {
		case len(values) == 0 && flatten:
			out[name] = nil
		case len(values) == 1 && flatten:
			out[name] = values[0].Interface()
		default:
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = v.Interface()
			}
			out[name] = list
		}
	}
	return out
}
