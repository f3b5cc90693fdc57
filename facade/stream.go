package facade

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/llmbridge/llmbridge/llmerr"
	"github.com/llmbridge/llmbridge/transport"
)

// SendStream appends text as a user turn and streams the reply through
// onChunk, per spec §4.4's streaming-send mode. The schema must declare
// streaming support. onChunk is invoked once per non-empty delta, in
// arrival order; returning false requests early termination (the partial
// text accumulated so far is still passed to onComplete, but no assistant
// message is appended, mirroring the blocking path's "only on success"
// rule). onComplete always fires exactly once when SendStream returns nil.
func (f *Facade) SendStream(ctxGo context.Context, text string, onChunk func(string) bool, onComplete func(string), cancel transport.CancelPredicate) error {
	if !f.ctx.Schema().Features.Streaming {
		return llmerr.NewValidationError("streaming", "schema does not declare streaming support")
	}

	if _, err := f.ctx.AddUserMessage(text, "", ""); err != nil {
		return err
	}

	body, err := f.ctx.BuildRequest(true)
	if err != nil {
		return err
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return llmerr.NewSchemaError(f.ctx.Schema().Provider.Name, "request body does not marshal to JSON", err)
	}

	parser := &streamParser{facade: f, onChunk: onChunk}
	headers := f.ctx.BuildHeaders()

	var sinkErr error
	err = f.sink.PostStream(ctxGo, f.ctx.Schema().API.Endpoint, headers, jsonBody, parser.feed, func(resp *transport.Response) {
		sinkErr = parser.finish(resp)
	}, cancel)
	if err != nil {
		return err
	}
	if sinkErr != nil {
		return sinkErr
	}

	final := parser.accumulated.String()
	if !parser.terminatedEarly {
		if _, err := f.ctx.AddAssistantMessage(final); err != nil {
			return err
		}
	}
	onComplete(final)
	return nil
}

// streamParser decodes one SSE data payload at a time into a delta string,
// accumulating the full reply and tracking consecutive malformed frames.
// Grounded on the teacher's core/parse/parse.go jsonrepair fallback: a
// frame that fails strict encoding/json unmarshalling is retried once
// through jsonrepair before being counted as malformed.
type streamParser struct {
	facade  *Facade
	onChunk func(string) bool

	accumulated     strings.Builder
	consecutiveBad  int
	terminatedEarly bool
	shapeErr        error
}

// feed is called by the Sink once per decoded SSE data line (the Sink
// already stripped the "data:" prefix and intercepted [DONE] itself).
func (p *streamParser) feed(payload string) bool {
	if p.terminatedEarly {
		return false
	}

	frame, err := decodeFrame(payload)
	if err != nil {
		p.consecutiveBad++
		if p.consecutiveBad > MaxConsecutiveMalformedFrames {
			p.shapeErr = llmerr.NewResponseShapeError(nil, "too many consecutive malformed streaming frames")
			p.terminatedEarly = true
			return false
		}
		return true
	}
	p.consecutiveBad = 0

	delta, err := p.facade.ctx.ExtractDelta(frame)
	if err != nil {
		// A frame that parses as JSON but whose delta path doesn't resolve
		// the way the schema expects is noise, not a hard failure — spec
		// §4.4 only asks for malformed *lines* to be dropped, and a frame
		// with an unexpected but well-formed shape (e.g. a usage-only
		// event) is exactly the kind of partial frame streaming tolerates.
		return true
	}
	if delta == "" {
		return true
	}

	p.accumulated.WriteString(delta)
	if !p.onChunk(delta) {
		p.terminatedEarly = true
		return false
	}
	return true
}

func (p *streamParser) finish(resp *transport.Response) error {
	if resp != nil && !resp.Success && !resp.Cancelled {
		message := ""
		var decoded any
		if json.Unmarshal(resp.Body, &decoded) == nil {
			message = p.facade.ctx.ExtractError(decoded)
		}
		return &llmerr.TransportError{StatusCode: resp.StatusCode, Message: message, Body: string(resp.Body)}
	}
	return p.shapeErr
}

// decodeFrame strictly JSON-decodes payload, falling back to jsonrepair
// once before giving up. A frame only counts as malformed if both fail.
func decodeFrame(payload string) (any, error) {
	var decoded any
	if err := json.Unmarshal([]byte(payload), &decoded); err == nil {
		return decoded, nil
	}

	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(repaired), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
