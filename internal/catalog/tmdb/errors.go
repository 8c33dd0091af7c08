package tmdb

import (
	"fmt"
	"time"

	"reelcache/internal/services"
)

// TransportError describes a failed TMDB request: the network call itself,
// a non-200 response, or an undecodable body.
type TransportError struct {
	Operation  string
	Path       string
	StatusCode int
	Latency    time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("tmdb %s %s", e.Operation, e.Path)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" returned %d", e.StatusCode)
	}
	msg += fmt.Sprintf(" (latency=%v)", e.Latency.Round(time.Millisecond))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the transport marker and the underlying cause.
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrTransport}
	}
	return []error{services.ErrTransport, e.Err}
}

// NotFound reports whether TMDB answered 404.
func (e *TransportError) NotFound() bool {
	return e.StatusCode == 404
}

// Unauthorized reports whether TMDB rejected the token.
func (e *TransportError) Unauthorized() bool {
	return e.StatusCode == 401
}
