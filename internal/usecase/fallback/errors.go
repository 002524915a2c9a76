package fallback

import (
	"errors"
	"fmt"
)

// ErrNoFallback indicates a blocked fetch with no fallback provider enabled.
var ErrNoFallback = errors.New("bot protection detected, no fallback configured")

// Kind discriminates provider failure modes. Callers branch on Kind via
// errors.As rather than matching message strings.
type Kind int

const (
	// KindGeneric is an ordinary provider failure carrying the provider's
	// own message.
	KindGeneric Kind = iota

	// KindRateLimited means the provider refused the request because of
	// rate limiting. The orchestrator notifies the user and continues
	// with the next provider instead of failing the candidate.
	KindRateLimited

	// KindTierInsufficient means the provider requires a paid/proxy tier
	// for this URL.
	KindTierInsufficient

	// KindNoSnapshot means the archival provider has no archived copy of
	// the URL.
	KindNoSnapshot

	// KindUnavailable means the provider service itself was unreachable
	// or answered with a non-success status.
	KindUnavailable
)

// String returns the kind's label for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTierInsufficient:
		return "tier_insufficient"
	case KindNoSnapshot:
		return "no_snapshot"
	case KindUnavailable:
		return "unavailable"
	default:
		return "generic"
	}
}

// ProviderError is a structured fallback provider failure.
type ProviderError struct {
	Kind     Kind
	Provider string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a rate-limited provider failure.
func IsRateLimited(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Kind == KindRateLimited
}
