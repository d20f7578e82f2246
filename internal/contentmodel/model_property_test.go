//go:build property

package contentmodel

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// pathGen yields one of the 27 paths over {a,b,c}^3.
func pathGen() gopter.Gen {
	return gen.IntRange(0, 26).Map(func(code int) string {
		return fmt.Sprintf("%c.%c.%c", 'a'+code%3, 'a'+(code/3)%3, 'a'+code/9)
	})
}

func TestScopeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("extend then retract leaves reads unchanged", prop.ForAll(
		func(path string, value int) bool {
			m := New(nil)
			m.Set(path, value)
			before, _ := m.Get(path)
			snapshot := m.ToJSONObject()

			m.ExtendScope().RetractScope()

			after, _ := m.Get(path)
			return reflect.DeepEqual(before, after) && reflect.DeepEqual(snapshot, m.ToJSONObject())
		},
		pathGen(), gen.Int(),
	))

	properties.Property("isolated writes vanish on retract and never reach siblings", prop.ForAll(
		func(path string, value int) bool {
			m := New(nil)
			m.IsolateScope()
			m.SetIsolated(path, value)
			visible := m.Has(path)
			m.RetractScope()
			gone := !m.Has(path)

			m.IsolateScope()
			return visible && gone && !m.Has(path)
		},
		pathGen(), gen.Int(),
	))

	properties.Property("root writes are visible from every descendant", prop.ForAll(
		func(path string, value int, depth int) bool {
			m := New(nil)
			for i := 0; i < depth; i++ {
				m.ExtendScope()
			}
			m.SetToRoot(path, value)
			for i := 0; i <= depth; i++ {
				got, ok := m.Get(path)
				if !ok || got != float64(value) {
					return false
				}
				m.RetractScope()
			}
			return true
		},
		pathGen(), gen.Int(), gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
