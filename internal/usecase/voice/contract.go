package voice

import "context"

// Extractor is an optional model-backed intent extractor consulted when
// the rule scan yields only the default intent. Rule output always wins
// on conflict.
type Extractor interface {
	Extract(ctx context.Context, text string) (Intent, map[string]string, error)
}
