package contentmodel

import (
	"fmt"
	"sync"
	"time"

	"github.com/conneroisu/tessera/internal/types"
)

// Mappable is implemented by values that know their own map form.
type Mappable interface {
	ToMap() map[string]any
}

// Converter turns a value the model does not store natively into one it
// does. ok is false when the converter does not handle v.
type Converter func(v any) (out any, ok bool)

var (
	convertersMu sync.RWMutex
	converters   []Converter
)

// RegisterConverter adds fn for values of type T. Converters registered
// later take precedence.
func RegisterConverter[T any](fn func(T) any) {
	RegisterConverterFunc(func(v any) (any, bool) {
		t, ok := v.(T)
		if !ok {
			return nil, false
		}
		return fn(t), true
	})
}

// RegisterConverterFunc adds an untyped converter.
func RegisterConverterFunc(c Converter) {
	convertersMu.Lock()
	defer convertersMu.Unlock()
	converters = append([]Converter{c}, converters...)
}

func convertRegistered(v any) (any, bool) {
	convertersMu.RLock()
	defer convertersMu.RUnlock()
	for _, c := range converters {
		if out, ok := c(v); ok {
			return out, true
		}
	}
	return nil, false
}

// Normalize converts v into the model's storage form: string, float64,
// bool, time.Time, []any or map[string]any, recursively. The result never
// shares maps or slices with v.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, float64, time.Time:
		return x
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case types.Value:
		return x.Interface()
	case []types.Value:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = item.Interface()
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = Normalize(item)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = item
		}
		return out
	case map[string][]string:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = Normalize(item)
		}
		return out
	case []any:
		return normalizeSlice(x)
	case []string:
		return normalizeSlice(x)
	case []int:
		return normalizeSlice(x)
	case []float64:
		return normalizeSlice(x)
	case []bool:
		return normalizeSlice(x)
	case []map[string]any:
		return normalizeSlice(x)
	case []time.Time:
		return normalizeSlice(x)
	}

	if out, ok := convertRegistered(v); ok {
		return Normalize(out)
	}
	switch x := v.(type) {
	case Mappable:
		return Normalize(x.ToMap())
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}
	return fmt.Sprint(v)
}

func normalizeSlice[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = Normalize(item)
	}
	return out
}

// clone deep-copies a normalized value.
func clone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = clone(item)
		}
		return out
	default:
		return v
	}
}

// jsonSafe copies a normalized value replacing times with RFC3339Nano strings.
func jsonSafe(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = jsonSafe(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = jsonSafe(item)
		}
		return out
	default:
		return v
	}
}
