package configuration

import (
	"context"
	"encoding/json"
	"time"

	"github.com/conneroisu/tessera/internal/types"
)

// Configuration is a read view over one type's resolved chain. It is a
// snapshot: later invalidations do not affect an existing view.
type Configuration struct {
	typeName    string
	chain       Chain
	defaultMode types.Mode
}

// For resolves typeName and returns a view over its configuration.
func (r *Resolver) For(ctx context.Context, typeName string) *Configuration {
	return &Configuration{
		typeName:    typeName,
		chain:       r.cachedChain(ctx, typeName),
		defaultMode: r.defaultMode,
	}
}

// TypeName returns the leaf type the view was resolved for.
func (c *Configuration) TypeName() string { return c.typeName }

// Chain returns a copy of the underlying chain.
func (c *Configuration) Chain() Chain { return c.chain.Clone() }

// DefaultMode returns the mode used by the mode-default accessors.
func (c *Configuration) DefaultMode() types.Mode { return c.defaultMode }

// Values returns the raw values of name under mode.
func (c *Configuration) Values(name string, mode types.Mode) []types.Value {
	return c.chain.Values(name, mode)
}

// String returns the first value of name as a string, or "".
func (c *Configuration) String(name string) string { return c.StringIn(name, c.defaultMode) }

// StringIn is String with an explicit mode.
func (c *Configuration) StringIn(name string, mode types.Mode) string {
	return first(c.Values(name, mode), types.Value.AsString, "")
}

// Strings returns every value of name that converts to a string.
func (c *Configuration) Strings(name string) []string { return c.StringsIn(name, c.defaultMode) }

// StringsIn is Strings with an explicit mode.
func (c *Configuration) StringsIn(name string, mode types.Mode) []string {
	return all(c.Values(name, mode), types.Value.AsString)
}

// Number returns the first value of name that converts to a number, or 0.
func (c *Configuration) Number(name string) float64 { return c.NumberIn(name, c.defaultMode) }

// NumberIn is Number with an explicit mode.
func (c *Configuration) NumberIn(name string, mode types.Mode) float64 {
	return first(c.Values(name, mode), types.Value.AsNumber, 0)
}

// Numbers returns every value of name that converts to a number.
func (c *Configuration) Numbers(name string) []float64 { return c.NumbersIn(name, c.defaultMode) }

// NumbersIn is Numbers with an explicit mode.
func (c *Configuration) NumbersIn(name string, mode types.Mode) []float64 {
	return all(c.Values(name, mode), types.Value.AsNumber)
}

// Bool returns the first value of name that converts to a boolean, or false.
func (c *Configuration) Bool(name string) bool { return c.BoolIn(name, c.defaultMode) }

// BoolIn is Bool with an explicit mode.
func (c *Configuration) BoolIn(name string, mode types.Mode) bool {
	return first(c.Values(name, mode), types.Value.AsBool, false)
}

// Bools returns every value of name that converts to a boolean.
func (c *Configuration) Bools(name string) []bool { return c.BoolsIn(name, c.defaultMode) }

// BoolsIn is Bools with an explicit mode.
func (c *Configuration) BoolsIn(name string, mode types.Mode) []bool {
	return all(c.Values(name, mode), types.Value.AsBool)
}

// Date returns the first value of name that converts to a time, or the
// current time.
func (c *Configuration) Date(name string) time.Time { return c.DateIn(name, c.defaultMode) }

// DateIn is Date with an explicit mode.
func (c *Configuration) DateIn(name string, mode types.Mode) time.Time {
	if t, ok := firstOK(c.Values(name, mode), types.Value.AsDate); ok {
		return t
	}
	return time.Now()
}

// Dates returns every value of name that converts to a time.
func (c *Configuration) Dates(name string) []time.Time { return c.DatesIn(name, c.defaultMode) }

// DatesIn is Dates with an explicit mode.
func (c *Configuration) DatesIn(name string, mode types.Mode) []time.Time {
	return all(c.Values(name, mode), types.Value.AsDate)
}

// Names returns every property name visible on the chain.
func (c *Configuration) Names() []string { return c.NamesIn(c.defaultMode) }

// NamesIn returns the names visible under mode; SHALLOW lists the leaf only.
func (c *Configuration) NamesIn(mode types.Mode) []string {
	return c.chain.Names(mode == types.ModeShallow)
}

// ToMap returns the flattened distilled map under the default mode.
func (c *Configuration) ToMap() map[string]any { return c.ToMapIn(c.defaultMode, true) }

// ToMapIn returns the distilled map under mode.
func (c *Configuration) ToMapIn(mode types.Mode, flatten bool) map[string]any {
	return c.chain.Distill(mode, flatten)
}

// ToJSON encodes ToMap.
func (c *Configuration) ToJSON() ([]byte, error) {
	return json.Marshal(c.ToMap())
}

func firstOK[T any](values []types.Value, conv func(types.Value) (T, bool)) (T, bool) {
	for _, v := range values {
		if out, ok := conv(v); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

func first[T any](values []types.Value, conv func(types.Value) (T, bool), fallback T) T {
	if out, ok := firstOK(values, conv); ok {
		return out
	}
	return fallback
}

// all converts values, dropping those that fail.
func all[T any](values []types.Value, conv func(types.Value) (T, bool)) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		if converted, ok := conv(v); ok {
			out = append(out, converted)
		}
	}
	return out
}
