// Package facade implements the Chat Facade described in spec §4.4: a
// thin orchestrator that combines a chatctx.Context with a transport.Sink
// to send a conversational turn, parse the provider's response, and
// append the assistant turn on success. Modeled on the teacher's
// core/client.Client, generalized away from a single hardcoded provider
// interface toward the schema-driven Context/Sink pair.
package facade

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/llmbridge/llmbridge/chatctx"
	"github.com/llmbridge/llmbridge/llmerr"
	"github.com/llmbridge/llmbridge/transport"
)

// MaxConsecutiveMalformedFrames bounds how many SSE frames in a row may
// fail both strict JSON parsing and jsonrepair before the stream is
// judged to be carrying a genuinely broken response rather than momentary
// partial-frame noise, per spec §9's suggested threshold.
const MaxConsecutiveMalformedFrames = 16

// Facade sends chat turns through ctx using sink, per spec §4.4.
type Facade struct {
	ctx  *chatctx.Context
	sink transport.Sink
}

// New binds a Facade to ctx and sink. Both are used for the lifetime of
// the Facade; ctx accumulates the conversation across sends.
func New(ctx *chatctx.Context, sink transport.Sink) *Facade {
	return &Facade{ctx: ctx, sink: sink}
}

// Context returns the bound Context, for callers that need to inspect or
// export its state alongside sending turns.
func (f *Facade) Context() *chatctx.Context { return f.ctx }

// Send appends text as a user turn, builds a request, performs a blocking
// POST, and extracts the assistant's reply. The user turn is added before
// the network call; on any failure (transport or shape) the user turn
// remains in the conversation but no assistant turn is appended, matching
// spec §4.4's "appends the extracted text as an assistant Message" only
// "on successful parse."
func (f *Facade) Send(ctxGo context.Context, text string, cancel transport.CancelPredicate) (string, error) {
	if _, err := f.ctx.AddUserMessage(text, "", ""); err != nil {
		return "", err
	}

	body, err := f.ctx.BuildRequest(false)
	if err != nil {
		return "", err
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", llmerr.NewSchemaError(f.ctx.Schema().Provider.Name, "request body does not marshal to JSON", err)
	}

	headers := f.ctx.BuildHeaders()
	resp, err := f.sink.Post(ctxGo, f.ctx.Schema().API.Endpoint, headers, jsonBody, cancel)
	if err != nil {
		return "", err
	}

	text, transportErr := f.parseBlockingResponse(resp)
	if transportErr != nil {
		return "", transportErr
	}

	if _, err := f.ctx.AddAssistantMessage(text); err != nil {
		return "", err
	}
	return text, nil
}

// parseBlockingResponse interprets a completed transport.Response per
// spec §4.4's blocking-send rule: a non-2xx status (or a sink-reported
// failure) raises TransportError using the schema's error_path when the
// body yields one; a 2xx body that does not match the schema's
// extraction paths raises ResponseShapeError.
func (f *Facade) parseBlockingResponse(resp *transport.Response) (string, error) {
	var decoded any
	decodeErr := json.Unmarshal(resp.Body, &decoded)

	if !resp.Success {
		message := ""
		if decodeErr == nil {
			message = f.ctx.ExtractError(decoded)
		}
		return "", &llmerr.TransportError{StatusCode: resp.StatusCode, Message: message, Body: string(resp.Body)}
	}

	if decodeErr != nil {
		return "", llmerr.NewResponseShapeError(nil, fmt.Sprintf("response body is not valid JSON: %v", decodeErr))
	}

	return f.ctx.ExtractTextResponse(decoded)
}

// SendAsync runs Send on a dedicated goroutine and delivers its result
// through the returned channel, per spec §4.4's async-send mode.
func (f *Facade) SendAsync(ctxGo context.Context, text string, cancel transport.CancelPredicate) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		reply, err := f.Send(ctxGo, text, cancel)
		out <- Result{Text: reply, Err: err}
		close(out)
	}()
	return out
}

// Result is the value delivered by the channel SendAsync returns.
type Result struct {
	Text string
	Err  error
}
