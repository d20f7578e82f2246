package configuration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tessera/internal/store"
	"github.com/conneroisu/tessera/internal/types"
)

func TestConfiguration_TypedAccessors(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore(
		node("app/card", "app/base", map[string][]types.Value{
			"columns": types.Values("three", 3, "4"),
			"flags":   types.Values(true, "nope", "false"),
			"since":   types.Values("garbage", since),
			"title":   types.Values("Card"),
		}),
		node("app/base", "", map[string][]types.Value{
			"columns": types.Values(12),
		}),
	)
	cfg := NewResolver(s).For(context.Background(), "app/card")

	assert.Equal(t, "app/card", cfg.TypeName())
	assert.Equal(t, "Card", cfg.String("title"))
	assert.Equal(t, "", cfg.String("missing"))
	assert.Equal(t, []string{"three", "3", "4"}, cfg.Strings("columns"))

	assert.Equal(t, 3.0, cfg.Number("columns"), "first convertible value wins")
	assert.Equal(t, []float64{3, 4}, cfg.Numbers("columns"), "failed conversions are dropped")
	assert.Equal(t, []float64{3, 4, 12}, cfg.NumbersIn("columns", types.ModeMerge))
	assert.Equal(t, 3.0, cfg.NumberIn("columns", types.ModeShallow))

	assert.True(t, cfg.Bool("flags"))
	assert.Equal(t, []bool{true, false}, cfg.Bools("flags"))
	assert.False(t, cfg.Bool("missing"))
	assert.Empty(t, cfg.BoolsIn("title", types.ModeInherit))

	assert.True(t, since.Equal(cfg.Date("since")))
	assert.Len(t, cfg.Dates("since"), 1)
	assert.WithinDuration(t, time.Now(), cfg.Date("missing"), time.Minute)
	assert.WithinDuration(t, time.Now(), cfg.DateIn("title", types.ModeShallow), time.Minute)

	assert.Equal(t, []string{"columns", "flags", "since", "title"}, cfg.Names())
	assert.Equal(t, cfg.Names(), cfg.NamesIn(types.ModeShallow))
}

func TestConfiguration_ToMapAndJSON(t *testing.T) {
	cfg := NewResolver(buttonStore()).For(context.Background(), "app/button")

	m := cfg.ToMap()
	assert.Equal(t, []any{"red", "blue"}, m["color"])
	assert.Equal(t, "S", m["size"])
	assert.Equal(t, "dark", m["theme"])

	data, err := cfg.ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m["theme"], decoded["theme"])

	merged := cfg.ToMapIn(types.ModeCombine, false)
	assert.Equal(t, []any{"red", "blue", "blue"}, merged["color"])
}

func TestConfiguration_IsSnapshot(t *testing.T) {
	r := NewResolver(buttonStore())
	cfg := r.For(context.Background(), "app/button")
	r.InvalidateAll()

	assert.Len(t, cfg.Chain(), 2)
	assert.Equal(t, types.ModeInherit, cfg.DefaultMode())
}
