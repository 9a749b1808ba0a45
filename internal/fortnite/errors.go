package fortnite

import "errors"

// Sentinel outcomes for upstream API calls. Callers classify with errors.Is;
// the run orchestrator decides which of these abort the run and which stay
// scoped to a single player.
var (
	// ErrPlayerNotFound covers HTTP 404 and 200-with-no-account responses.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrPlayerPrivate means the player hides their stats. A skip, not a failure.
	ErrPlayerPrivate = errors.New("player stats are private")

	// ErrAuthFailure means the API rejected the token. Fatal to the run.
	ErrAuthFailure = errors.New("API authentication failed")

	// ErrRateLimited means the API was still throttling after all retries.
	ErrRateLimited = errors.New("rate limited by upstream API")

	// ErrUpstream covers 5xx and transport failures that survived the retry budget.
	ErrUpstream = errors.New("upstream API error")

	// ErrMalformedResponse covers bodies that cannot be decoded or violate the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed API response")
)
