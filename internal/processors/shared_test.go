package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tessera/internal/configuration"
	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/store"
	"github.com/conneroisu/tessera/internal/types"
)

func TestSharedProperties(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(types.ComponentNode{
		TypeName:  "site/components/header",
		HasConfig: true,
		Config:    map[string][]types.Value{"categories": types.Values(GlobalCategory)},
	})
	exec := pipeline.NewExecutionContext(
		types.Resource{Path: "/content/home/header", TypeName: "site/components/header"},
		configuration.NewResolver(s),
	)

	global := map[string]any{"siteName": "Tessera", "nav": map[string]any{"home": "/"}}
	globalProcessor := NewGlobalProperties(global)
	designProcessor := NewDesignProperties(map[string]any{"theme": "dark"})

	accepted, err := globalProcessor.Accepts(ctx, exec)
	require.NoError(t, err)
	assert.True(t, accepted)
	accepted, err = designProcessor.Accepts(ctx, exec)
	require.NoError(t, err)
	assert.False(t, accepted)

	engine := pipeline.NewEngine()
	require.NoError(t, engine.Register(globalProcessor, designProcessor))
	model := contentmodel.New(nil)
	require.NoError(t, engine.Execute(ctx, exec, model))

	assert.Equal(t, []string{"global-properties"}, exec.Executed())
	assert.Equal(t, "Tessera", model.GetString("global.siteName"))
	assert.Equal(t, "/", model.GetString("global.nav.home"))
	assert.False(t, model.Has(DesignKey))

	model.Set("global.siteName", "changed")
	assert.Equal(t, "Tessera", global["siteName"])
}

func TestSharedProperties_NilWritesNothing(t *testing.T) {
	model := contentmodel.New(nil)
	require.NoError(t, NewDesignProperties(nil).Process(context.Background(), nil, model))
	assert.False(t, model.Has(DesignKey))
}
