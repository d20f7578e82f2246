// Package store provides the backing store that component type definitions
// are read from during configuration resolution.
//
// Access is always scoped: callers Open a Session, perform their lookups, and
// Close it on every exit path.
package store

import (
	"context"
	"strings"

	"github.com/conneroisu/tessera/internal/types"
)

// Store hands out read sessions over component definitions.
type Store interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one scoped acquisition of the backing store.
type Session interface {
	// Component returns the node for typeName. A missing type is
	// reported as (zero, false, nil); err is reserved for read failures.
	Component(ctx context.Context, typeName string) (types.ComponentNode, bool, error)
	Close() error
}

// DefaultReservedPrefixes are system property namespaces never treated as
// configuration or content.
var DefaultReservedPrefixes = []string{"jcr:", "sling:", "cq:", "rep:"}

// IsReserved reports whether name starts with one of prefixes.
func IsReserved(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
