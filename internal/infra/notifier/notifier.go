// Package notifier provides the user-facing notification sink. Messages are
// fire-and-forget advisories (informational, warning, error); a notifier
// must never block the pipeline.
package notifier

// Notifier is the user-visible notification sink. Implementations must
// return quickly; the core treats every call as fire-and-forget.
type Notifier interface {
	// Info reports an informational message, e.g. the aggregate result of
	// a tagging batch.
	Info(msg string)

	// Warn reports an advisory condition the batch survived, e.g. a
	// rate-limited fallback provider being skipped.
	Warn(msg string)

	// Error reports a terminal failure in human-readable form. No failure
	// is silently swallowed.
	Error(msg string)
}
