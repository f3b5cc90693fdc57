package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/llmbridge/llmbridge/llmerr"
)

// maxResponseBodySize caps how much of a response body is read into
// memory, guarding against an unbounded allocation from a rogue or
// misbehaving endpoint. Mirrors the teacher's internal/utils/http_stream.go.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// defaultTimeout is the Sink's default per-request timeout, satisfying
// spec §4.5's "default >= 60s".
const defaultTimeout = 60 * time.Second

// cancelPollInterval is how often HTTPSink polls a CancelPredicate while a
// request is in flight.
const cancelPollInterval = 20 * time.Millisecond

// HTTPSink is the default Sink implementation, built on net/http. TLS
// verification, redirect following, and HTTP/2 negotiation are whatever
// the supplied *http.Client / its Transport are configured for — by
// default, net/http's zero-value behavior already satisfies spec §4.5
// (verify on, redirects on, HTTP/2 when available via http2.Transport
// auto-negotiation on TLS connections).
type HTTPSink struct {
	client *http.Client
}

// NewHTTPSink returns an HTTPSink using client, or a freshly constructed
// *http.Client with defaultTimeout when client is nil.
func NewHTTPSink(client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPSink{client: client}
}

// Post performs a blocking POST and polls cancel while the request is in
// flight. A non-nil error means the request never produced an HTTP
// response (network failure, timeout, or cancellation); a non-2xx status
// is reported through Response.Success/ErrorMsg with a nil error, leaving
// the decision to treat it as a TransportError to the caller (the facade).
func (s *HTTPSink) Post(ctx context.Context, url string, headers map[string]string, jsonBody []byte, cancel CancelPredicate) (*Response, error) {
	reqCtx, cancelReq := context.WithCancel(ctx)
	defer cancelReq()

	var cancelled atomic.Bool
	stopPoll := make(chan struct{})
	if cancel != nil {
		go pollCancel(reqCtx, cancelReq, cancel, &cancelled, stopPoll)
		defer close(stopPoll)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &llmerr.TransportError{Cause: err}
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if cancelled.Load() {
			return nil, llmerr.Cancelled()
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, &llmerr.TransportError{Timeout: true, Cause: err}
		}
		return nil, &llmerr.TransportError{Cause: err}
	}
	defer closeWithLog(resp.Body, url)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &llmerr.TransportError{Cause: err}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
		Success:    success,
		ErrorMsg:   errorMsgFor(success, resp.StatusCode, body),
	}, nil
}

// PostStream performs a streaming POST and decodes the response body as
// Server-Sent Events, invoking onChunk once per data payload (excluding
// the [DONE] sentinel) in arrival order. cancel is polled between chunks,
// exactly as Post polls it between I/O slices; onChunk returning false
// requests the same early termination a positive cancel check would. In
// both cases onComplete still fires exactly once, with whatever partial
// Response accumulated, satisfying the Sink contract.
func (s *HTTPSink) PostStream(ctx context.Context, url string, headers map[string]string, jsonBody []byte, onChunk func(string) bool, onComplete func(*Response), cancel CancelPredicate) error {
	reqCtx, cancelReq := context.WithCancel(ctx)
	defer cancelReq()

	var cancelled atomic.Bool
	stopPoll := make(chan struct{})
	if cancel != nil {
		go pollCancel(reqCtx, cancelReq, cancel, &cancelled, stopPoll)
		defer close(stopPoll)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return &llmerr.TransportError{Cause: err}
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if cancelled.Load() {
			result := &Response{Cancelled: true}
			onComplete(result)
			return llmerr.Cancelled()
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return &llmerr.TransportError{Timeout: true, Cause: err}
		}
		return &llmerr.TransportError{Cause: err}
	}
	defer closeWithLog(resp.Body, url)

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !success {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		result := &Response{StatusCode: resp.StatusCode, Body: body, Headers: resp.Header, Success: false, ErrorMsg: errorMsgFor(false, resp.StatusCode, body)}
		onComplete(result)
		return nil
	}

	scanner := newSSEScanner(bufio.NewReader(resp.Body))
	var lastChunk string
	for {
		if cancelled.Load() {
			onComplete(&Response{StatusCode: resp.StatusCode, Headers: resp.Header, Success: true, Cancelled: true})
			return llmerr.Cancelled()
		}

		chunk, done, scanErr := scanner.next()
		if scanErr != nil {
			return &llmerr.TransportError{Cause: scanErr}
		}
		if done {
			break
		}

		lastChunk = chunk
		if !onChunk(chunk) {
			onComplete(&Response{StatusCode: resp.StatusCode, Headers: resp.Header, Success: true, Body: []byte(lastChunk)})
			return nil
		}
	}

	onComplete(&Response{StatusCode: resp.StatusCode, Headers: resp.Header, Success: true, Body: []byte(lastChunk)})
	return nil
}

// PostAsync runs Post on a dedicated goroutine and delivers its result
// through the returned channel, satisfying spec §4.5's post_async.
func (s *HTTPSink) PostAsync(ctx context.Context, url string, headers map[string]string, jsonBody []byte, cancel CancelPredicate) <-chan AsyncResult {
	out := make(chan AsyncResult, 1)
	go func() {
		resp, err := s.Post(ctx, url, headers, jsonBody, cancel)
		out <- AsyncResult{Response: resp, Err: err}
		close(out)
	}()
	return out
}

func errorMsgFor(success bool, status int, body []byte) string {
	if success {
		return ""
	}
	return http.StatusText(status) + ": " + string(body)
}

// pollCancel checks pred every cancelPollInterval and calls cancelReq (and
// sets cancelled) the first time it returns true, then stops.
func pollCancel(ctx context.Context, cancelReq context.CancelFunc, pred CancelPredicate, cancelled *atomic.Bool, stop <-chan struct{}) {
	ticker := time.NewTicker(cancelPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pred() {
				cancelled.Store(true)
				cancelReq()
				return
			}
		}
	}
}

func closeWithLog(body io.Closer, url string) {
	if err := body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error(), "url", url)
	}
}
