package facade

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendStreamConcatenatesDeltasAndAppendsAssistantMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, line := range []string{
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			`data: {"choices":[{"delta":{"content":"lo"}}]}`,
			`data: [DONE]`,
		} {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}))
	defer server.Close()

	f := newFacade(t, server)

	var chunks []string
	var final string
	err := f.SendStream(context.Background(), "hi", func(delta string) bool {
		chunks = append(chunks, delta)
		return true
	}, func(text string) {
		final = text
	}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(chunks, "") != "Hello" {
		t.Errorf("expected chunks to concatenate to %q, got %v", "Hello", chunks)
	}
	if final != "Hello" {
		t.Errorf("expected on_complete(%q), got %q", "Hello", final)
	}

	messages := f.Context().GetMessages()
	if len(messages) != 2 || messages[1].Text() != "Hello" {
		t.Fatalf("expected the assistant message to be appended, got %v", messages)
	}
}

func TestSendStreamRequiresStreamingFeature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("the sink should never be reached when the schema declares no streaming support")
	}))
	defer server.Close()

	f := newFacade(t, server)
	f.Context().Schema().Features.Streaming = false

	err := f.SendStream(context.Background(), "hi", func(string) bool { return true }, func(string) {}, nil)
	if err == nil {
		t.Fatal("expected a ValidationError when the schema does not declare streaming support")
	}
}

func TestSendStreamToleratesMalformedFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, line := range []string{
			`data: {"choices":[{"delta":{"content":"a"}}]}`,
			`data: {not valid json at all`,
			`data: {"choices":[{"delta":{"content":"b"}}]}`,
			`data: [DONE]`,
		} {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}))
	defer server.Close()

	f := newFacade(t, server)

	var chunks []string
	err := f.SendStream(context.Background(), "hi", func(delta string) bool {
		chunks = append(chunks, delta)
		return true
	}, func(string) {}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(chunks, "") != "ab" {
		t.Errorf("expected the malformed frame to be dropped and the rest concatenated to %q, got %v", "ab", chunks)
	}
}

func TestSendStreamOnChunkFalseStopsWithoutAppendingAssistantMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, line := range []string{
			`data: {"choices":[{"delta":{"content":"a"}}]}`,
			`data: {"choices":[{"delta":{"content":"b"}}]}`,
			`data: [DONE]`,
		} {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}))
	defer server.Close()

	f := newFacade(t, server)

	var chunks []string
	err := f.SendStream(context.Background(), "hi", func(delta string) bool {
		chunks = append(chunks, delta)
		return false
	}, func(string) {}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected onChunk to stop after the first delta, got %v", chunks)
	}

	messages := f.Context().GetMessages()
	if len(messages) != 1 || messages[0].Role != "user" {
		t.Fatalf("expected no assistant message to be appended after early termination, got %v", messages)
	}
}
