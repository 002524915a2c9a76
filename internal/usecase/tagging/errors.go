package tagging

import "fmt"

// Stage identifies where in the per-candidate pipeline a resolution failed.
type Stage string

const (
	// StageFetch covers transport-level failures of the direct fetch.
	StageFetch Stage = "fetch"

	// StageFallback covers failures after a blocked classification, when
	// no fallback provider produced a title.
	StageFallback Stage = "fallback"

	// StageParse covers documents that were retrieved but carried no
	// extractable title.
	StageParse Stage = "parse"
)

// ResolveError records why one candidate URL could not be resolved to a
// title. A ResolveError never fails the batch; the candidate degrades to its
// literal URL text and the batch continues.
type ResolveError struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving %s failed at %s stage: %v", e.URL, e.Stage, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
