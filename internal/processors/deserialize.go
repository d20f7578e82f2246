package processors

import (
	"context"
	"encoding/json"

	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/types"
)

// DeserializeJSONProperty lists model paths holding JSON text.
const DeserializeJSONProperty = "xk_deserializeJSON"

// DeserializeJSON replaces string values at the MERGE-resolved
// xk_deserializeJSON paths with their decoded JSON. Values that are not
// valid JSON are left alone.
type DeserializeJSON struct {
	pipeline.CategoryProcessor
}

// NewDeserializeJSON creates the processor for the "component" category.
func NewDeserializeJSON() *DeserializeJSON {
	return &DeserializeJSON{
		CategoryProcessor: pipeline.CategoryProcessor{AnyOf: []string{ComponentCategory}},
	}
}

func (p *DeserializeJSON) Name() string  { return "deserialize-json" }
func (p *DeserializeJSON) Priority() int { return pipeline.LowPriority }

func (p *DeserializeJSON) Process(ctx context.Context, exec *pipeline.ExecutionContext, model *contentmodel.Model) error {
	paths := exec.Configuration(ctx).StringsIn(DeserializeJSONProperty, types.ModeMerge)
	for _, path := range paths {
		raw, ok := model.Get(path)
		if !ok {
			continue
		}
		text, ok := raw.(string)
		if !ok || !json.Valid([]byte(text)) {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			continue
		}
		model.Set(path, decoded)
	}
	return nil
}

var _ pipeline.Processor = (*DeserializeJSON)(nil)
