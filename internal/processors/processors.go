// Package processors contains the built-in content processors.
//
// Each processor is selected by the MERGE-resolved "categories" property of
// the rendered component type and writes one well-known top-level entry of
// the content model.
package processors

import (
	"strings"

	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/types"
)

// Categories processors select on.
const (
	ComponentCategory = "component"
	ContentCategory   = "content"
	StylingCategory   = "styling"
)

// Top-level model keys written by the built-in processors.
const (
	ConfigKey    = "config"
	ComponentKey = "component"
	ContentKey   = "content"
	StylingKey   = "styling"
)

// Defaults returns the built-in processors with their default settings.
func Defaults(reservedPrefixes []string) []pipeline.Processor {
	return []pipeline.Processor{
		NewComponentProperties(),
		NewContentProperties(reservedPrefixes),
		NewStyling(),
		NewDeserializeJSON(),
	}
}

// AppName returns the first segment of a component type name, e.g. "site"
// for "site/components/button".
func AppName(typeName string) string {
	name := strings.TrimPrefix(typeName, "/")
	if i := strings.Index(name, "/"); i >= 0 {
		return name[:i]
	}
	return name
}

// flatten turns a value list into a scalar when it holds exactly one value.
func flatten(values []types.Value) any {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0].Interface()
	default:
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v.Interface()
		}
		return out
	}
}
