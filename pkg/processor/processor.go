package processor

import (
	"context"
	"fmt"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// Transformer is one stage of the cleaning chain. A stage may drop
// records (validation) or rewrite them (cleaning, enrichment); returning
// an error aborts the whole run before anything is loaded.
type Transformer interface {
	Name() string
	Transform(ctx context.Context, records []types.Record) ([]types.Record, error)
}

// New creates a transformer stage from its YAML config block.
func New(cfg types.ProcessorConfig) (Transformer, error) {
	switch cfg.Type {
	case "FieldCleaner":
		return NewFieldCleaner(cfg.Config)
	case "TypeConverter":
		return NewTypeConverter(cfg.Config)
	case "RequiredFields":
		return NewRequiredFields(cfg.Config)
	case "EmailValidator":
		return NewEmailValidator(cfg.Config)
	case "Deduplicate":
		return NewDeduplicate(cfg.Config)
	case "AddMetadata":
		return NewAddMetadata(cfg.Config)
	default:
		return nil, fmt.Errorf("unsupported processor type: %s", cfg.Type)
	}
}
