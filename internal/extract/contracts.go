// Package extract loads the extraction collaborator's output for one run.
package extract

import (
	"context"

	"github.com/joseph-ayodele/form-filler/internal/entity"
)

// Extractor produces the document set for a documents directory. correctionContext carries
// quality feedback from a previous pass and may be empty.
type Extractor interface {
	Extract(ctx context.Context, dir, correctionContext string) (entity.DocumentSet, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, dir, correctionContext string) (entity.DocumentSet, error)

func (f ExtractorFunc) Extract(ctx context.Context, dir, correctionContext string) (entity.DocumentSet, error) {
	return f(ctx, dir, correctionContext)
}
