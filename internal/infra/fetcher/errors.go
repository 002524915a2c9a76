package fetcher

import "errors"

// Sentinel errors for the fetch pipeline. Transport-level failures, HTTP
// completions and validation failures are distinct kinds: a response that
// arrived with any status code is never a network failure.
var (
	// ErrInvalidURL indicates the URL is malformed or uses an unsupported
	// scheme. The candidate is rejected before any network call.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrNetwork indicates a transport-level failure (DNS, connect,
	// timeout) on both the minimal and the browser-emulating attempt.
	ErrNetwork = errors.New("network failure")

	// ErrRedirectNotFollowed indicates the response was a redirect but
	// policy disables redirect following. The error message carries the
	// target location.
	ErrRedirectNotFollowed = errors.New("redirect not followed by policy")

	// ErrMissingLocation indicates a 3xx response without a Location
	// header.
	ErrMissingLocation = errors.New("redirect without Location header")

	// ErrInsecureRedirect indicates a redirect attempted to downgrade from
	// https to http.
	ErrInsecureRedirect = errors.New("redirect downgrades to insecure scheme")

	// ErrCircularRedirect indicates the chain revisited a URL it already
	// contains.
	ErrCircularRedirect = errors.New("circular redirect")

	// ErrTooManyRedirects indicates the chain exceeded the configured
	// maximum hop count. The error message reports the full chain.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")
)
