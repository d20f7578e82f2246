package processors

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"path"

	"github.com/conneroisu/tessera/internal/contentmodel"
	"github.com/conneroisu/tessera/internal/pipeline"
	"github.com/conneroisu/tessera/internal/store"
)

// ContentIDProperty holds a stable identifier derived from the content path.
const ContentIDProperty = "xk_contentId"

// NoContentID marks a resource rendered without a content path.
const NoContentID = "_NONE"

// ContentID is the md5 hex digest of a content path.
func ContentID(contentPath string) string {
	sum := md5.Sum([]byte(contentPath))
	return hex.EncodeToString(sum[:])
}

// ContentProperties copies the instance's authored properties into
// "content", adding its id, path and name. System properties are skipped.
type ContentProperties struct {
	pipeline.CategoryProcessor
	reservedPrefixes []string
}

// NewContentProperties creates the processor for the "content" category.
// A nil prefix list means store.DefaultReservedPrefixes.
func NewContentProperties(reservedPrefixes []string) *ContentProperties {
	if reservedPrefixes == nil {
		reservedPrefixes = store.DefaultReservedPrefixes
	}
	return &ContentProperties{
		CategoryProcessor: pipeline.CategoryProcessor{AnyOf: []string{ContentCategory}},
		reservedPrefixes:  reservedPrefixes,
	}
}

func (p *ContentProperties) Name() string  { return "content-properties" }
func (p *ContentProperties) Priority() int { return pipeline.HighPriority }

func (p *ContentProperties) Process(_ context.Context, exec *pipeline.ExecutionContext, model *contentmodel.Model) error {
	resource := exec.Resource
	content := make(map[string]any, len(resource.Properties)+4)
	for name, value := range resource.Properties {
		if store.IsReserved(name, p.reservedPrefixes) {
			continue
		}
		content[name] = value
	}

	if resource.Path == "" {
		content[ContentIDProperty] = NoContentID
	} else {
		id := ContentID(resource.Path)
		content[ContentIDProperty] = id
		content["id"] = id
		content["name"] = path.Base(resource.Path)
	}
	content["path"] = resource.Path
	model.Set(ContentKey, content)
	return nil
}

var _ pipeline.Processor = (*ContentProperties)(nil)
