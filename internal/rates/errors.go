package rates

import "errors"

// ErrNotConfigured is returned when no upstream credential is configured.
// The condition is permanent for the life of the process.
var ErrNotConfigured = errors.New("rates: upstream credential not configured")

// UpstreamError reports a failed refresh with no cached snapshot to fall back on.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "rates upstream unavailable: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
