// Package transport implements the HTTP Sink collaborator described in
// spec §4.5: a pluggable interface that takes a URL, headers, and a JSON
// body, and yields either a completed response or a stream of chunks,
// honoring a cancellation predicate. The default implementation
// generalizes the teacher's internal/utils/http.go and http_stream.go
// away from a single fixed Authorization-header scheme, since headers are
// now built generically by chatctx.Context.BuildHeaders.
package transport

import "context"

// CancelPredicate is polled by a Sink between I/O slices; returning true
// aborts the in-flight request with a cancelled TransportError.
type CancelPredicate func() bool

// Response is what a completed, non-streaming POST yields.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    map[string][]string
	Success    bool
	ErrorMsg   string
	Cancelled  bool
}

// Sink is the transport collaborator the core depends on. Implementations
// own timeouts, TLS verification, redirect following, and connection
// reuse; none of that is the core's concern (spec §4.5, §5).
type Sink interface {
	// Post performs a blocking POST of jsonBody to url with headers, and
	// polls cancel between I/O slices.
	Post(ctx context.Context, url string, headers map[string]string, jsonBody []byte, cancel CancelPredicate) (*Response, error)

	// PostStream performs a streaming POST. onChunk is invoked once per
	// decoded SSE data line in arrival order; returning false from onChunk
	// requests early termination. onComplete fires exactly once, with the
	// final Response, when the stream ends normally, via [DONE], via
	// onChunk returning false, via cancellation, or with a non-2xx status.
	// It is not called when the request fails with a network, timeout, or
	// read error; that failure is reported only through the returned error.
	PostStream(ctx context.Context, url string, headers map[string]string, jsonBody []byte, onChunk func(string) bool, onComplete func(*Response), cancel CancelPredicate) error

	// PostAsync performs the same request as Post but returns a channel
	// that receives exactly one (*Response, error) pair.
	PostAsync(ctx context.Context, url string, headers map[string]string, jsonBody []byte, cancel CancelPredicate) <-chan AsyncResult
}

// AsyncResult is the single value delivered by the channel PostAsync returns.
type AsyncResult struct {
	Response *Response
	Err      error
}
