package processors

import (
	"context"

	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/pipeline"
)

// Categories and model keys of the shared property processors.
const (
	GlobalCategory = "global"
	DesignCategory = "design"

	GlobalKey = "global"
	DesignKey = "design"
)

// SharedProperties writes one map of site-wide properties under its key
// for every component of its category. A nil map writes nothing.
type SharedProperties struct {
	pipeline.CategoryProcessor
	name       string
	key        string
	properties map[string]any
}

// NewGlobalProperties exposes global site settings under "global" to
// components of the "global" category.
func NewGlobalProperties(properties map[string]any) *SharedProperties {
	return newShared("global-properties", GlobalCategory, GlobalKey, properties)
}

// NewDesignProperties exposes design settings under "design" to components
// of the "design" category.
func NewDesignProperties(properties map[string]any) *SharedProperties {
	return newShared("design-properties", DesignCategory, DesignKey, properties)
}

func newShared(name, category, key string, properties map[string]any) *SharedProperties {
	return &SharedProperties{
		CategoryProcessor: pipeline.CategoryProcessor{AnyOf: []string{category}},
		name:              name,
		key:               key,
		properties:        properties,
	}
}

func (p *SharedProperties) Name() string  { return p.name }
func (p *SharedProperties) Priority() int { return pipeline.HighestPriority }

// Process copies the properties into the model; renders never share maps.
func (p *SharedProperties) Process(_ context.Context, _ *pipeline.ExecutionContext, model *contentmodel.Model) error {
	if p.properties == nil {
		return nil
	}
	model.Set(p.key, p.properties)
	return nil
}

var _ pipeline.Processor = (*SharedProperties)(nil)
