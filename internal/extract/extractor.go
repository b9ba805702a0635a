package extract

import "github.com/hyperifyio/pagetext/internal/dom"

// Extractor defines a minimal interface for extraction strategies so callers
// can swap implementations or stub them in tests.
type Extractor interface {
	// Extract converts a document snapshot into a Result.
	// Implementations should be deterministic and avoid side effects.
	Extract(doc dom.Document) Result
}

// Engine is the default Extractor bound to a fixed set of Options.
type Engine struct {
	Options Options
}

// NewEngine returns an Engine using opts.
func NewEngine(opts Options) Engine {
	return Engine{Options: opts}
}

func (e Engine) Extract(doc dom.Document) Result {
	return Extract(doc, e.Options)
}
