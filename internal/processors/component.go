package processors

import (
	"context"

	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/types"
)

// ComponentProperties exposes the component type to templates: its
// distilled configuration under "config" and its definition properties
// under "component". Both are written isolated so they stay in the
// component's own scope.
type ComponentProperties struct {
	pipeline.CategoryProcessor
}

// NewComponentProperties creates the processor for the "component" category.
func NewComponentProperties() *ComponentProperties {
	return &ComponentProperties{
		CategoryProcessor: pipeline.CategoryProcessor{AnyOf: []string{ComponentCategory}},
	}
}

func (p *ComponentProperties) Name() string  { return "component-properties" }
func (p *ComponentProperties) Priority() int { return pipeline.HighestPriority }

func (p *ComponentProperties) Process(ctx context.Context, exec *pipeline.ExecutionContext, model *contentmodel.Model) error {
	typeName := exec.Resource.TypeName
	model.SetIsolated(ConfigKey, exec.Resolver.DistilledMap(ctx, typeName, types.ModeInherit, true))

	component := make(map[string]any)
	if node, ok := exec.Resolver.Component(ctx, typeName); ok {
		for name, values := range node.Properties {
			component[name] = flatten(values)
		}
	}
	component["path"] = typeName
	component["appName"] = AppName(typeName)
	model.SetIsolated(ComponentKey, component)
	return nil
}

var _ pipeline.Processor = (*ComponentProperties)(nil)
