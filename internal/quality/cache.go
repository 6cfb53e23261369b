package quality

import (
	"github.com/joseph-ayodele/form-filler/internal/cache"
	"github.com/joseph-ayodele/form-filler/internal/entity"
)

// ReferenceReader reads the label/value rows of a filled sample form.
type ReferenceReader func(path string) (map[string]entity.LabeledValue, error)

// PatternCache memoizes learned reference patterns per file version.
type PatternCache struct {
	classifier Classifier
	read       ReferenceReader
	cache      *cache.Cache[map[string]entity.ReferencePattern]
}

func NewPatternCache(c Classifier, read ReferenceReader) *PatternCache {
	return &PatternCache{
		classifier: c,
		read:       read,
		cache:      cache.New[map[string]entity.ReferencePattern](),
	}
}

// Patterns returns the reference patterns for path, learning them on first use
// or after the file changed.
func (p *PatternCache) Patterns(path string) (map[string]entity.ReferencePattern, error) {
	return p.cache.GetFile(path, func(path string) (map[string]entity.ReferencePattern, error) {
		values, err := p.read(path)
		if err != nil {
			return nil, err
		}
		return p.classifier.LearnPatterns(values), nil
	})
}
