package processors

import (
	"context"
	"strings"

	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/types"
)

// Configuration properties read by Styling.
const (
	ContainerClassesProperty    = "xk_containerClasses"
	PlaceholderTriggersProperty = "xk_placeholderTriggers"
)

// PlaceholderClass is added to components that have nothing to show in
// edit mode.
const PlaceholderClass = "xk-placeholder"

// EditModePath is the model path that switches edit-mode behavior on.
const EditModePath = "wcm.editMode"

// Styling writes the container classes of a component into "styling".
//
// In edit mode a component whose SHALLOW xk_placeholderTriggers all resolve
// to empty strings also gets the placeholder class, so authors see a box to
// click on.
type Styling struct {
	pipeline.CategoryProcessor
}

// NewStyling creates the processor for the "styling" category.
func NewStyling() *Styling {
	return &Styling{
		CategoryProcessor: pipeline.CategoryProcessor{AnyOf: []string{StylingCategory}},
	}
}

func (p *Styling) Name() string  { return "styling" }
func (p *Styling) Priority() int { return pipeline.LowPriority }

func (p *Styling) Process(ctx context.Context, exec *pipeline.ExecutionContext, model *contentmodel.Model) error {
	config := exec.Configuration(ctx)
	classes := config.StringsIn(ContainerClassesProperty, types.ModeMerge)
	styling := make(map[string]any, 3)

	if model.GetBool(EditModePath) {
		triggers := config.StringsIn(PlaceholderTriggersProperty, types.ModeShallow)
		if len(triggers) > 0 && allEmpty(model, triggers) {
			classes = append(classes, PlaceholderClass)
			styling["displayPlaceholder"] = PlaceholderClass
		}
	}

	if classes == nil {
		classes = []string{}
	}
	styling["containerClasses"] = classes
	styling["classes"] = strings.Join(classes, " ")
	model.Set(StylingKey, styling)
	return nil
}

func allEmpty(model *contentmodel.Model, paths []string) bool {
	for _, path := range paths {
		if model.GetString(path) != "" {
			return false
		}
	}
	return true
}

var _ pipeline.Processor = (*Styling)(nil)
