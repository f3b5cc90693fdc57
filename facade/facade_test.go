package facade

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/llmbridge/llmbridge/chatctx"
	"github.com/llmbridge/llmbridge/schema"
	"github.com/llmbridge/llmbridge/transport"
)

func stringPath(elems ...any) schema.ExtractionPath {
	path := make(schema.ExtractionPath, 0, len(elems))
	for _, e := range elems {
		switch v := e.(type) {
		case string:
			path = append(path, schema.PathElem{Key: v})
		case int:
			path = append(path, schema.PathElem{Index: v, IsIndex: true})
		}
	}
	return path
}

func openAIShapedDoc(endpoint string) *schema.Doc {
	return &schema.Doc{
		Provider:        schema.ProviderInfo{Name: "openai"},
		API:             schema.APIInfo{Endpoint: endpoint, Method: "POST"},
		Authentication:  &schema.AuthInfo{Type: "bearer", KeyName: "Authorization", KeyPrefix: "Bearer ", KeyPlaceholder: "<API_KEY>"},
		Models:          schema.ModelsInfo{Default: "gpt-4o-mini"},
		RequestTemplate: map[string]any{"model": nil, "messages": nil},
		MessageRoles:    []string{"system", "user", "assistant"},
		MessageFormat:   schema.MessageFormatInfo{Structure: map[string]any{"role": "<ROLE>", "content": "<TEXT_CONTENT>"}},
		ResponseFormat: schema.ResponseFormatInfo{
			Success: schema.SuccessPaths{TextPath: stringPath("choices", 0, "message", "content")},
			Error:   schema.ErrorPaths{ErrorPath: stringPath("error", "message")},
			Stream:  schema.StreamPaths{ContentDeltaPath: stringPath("choices", 0, "delta", "content")},
		},
		Features: schema.FeaturesInfo{Streaming: true},
	}
}

func newFacade(t *testing.T, server *httptest.Server) *Facade {
	t.Helper()
	doc := openAIShapedDoc(server.URL)
	ctx, err := chatctx.New(doc, chatctx.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx.SetAPIKey("test-key")
	return New(ctx, transport.NewHTTPSink(server.Client()))
}

func TestSendSingleTurnOpenAIShaped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Pong"}}]}`)
	}))
	defer server.Close()

	f := newFacade(t, server)
	reply, err := f.Send(context.Background(), "Ping", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Pong" {
		t.Errorf("expected %q, got %q", "Pong", reply)
	}
	if len(f.Context().GetMessages()) != 2 {
		t.Errorf("expected 2 messages after a successful send, got %d", len(f.Context().GetMessages()))
	}
}

func TestSendNon2xxRaisesTransportErrorAndLeavesOnlyUserTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad request"}}`)
	}))
	defer server.Close()

	f := newFacade(t, server)
	_, err := f.Send(context.Background(), "Ping", nil)
	if err == nil {
		t.Fatal("expected a TransportError")
	}

	messages := f.Context().GetMessages()
	if len(messages) != 1 || messages[0].Role != "user" {
		t.Fatalf("expected only the user turn to remain after a failed send, got %v", messages)
	}
}

func TestSendAsyncDeliversResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Pong"}}]}`)
	}))
	defer server.Close()

	f := newFacade(t, server)
	result := <-f.SendAsync(context.Background(), "Ping", nil)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Text != "Pong" {
		t.Errorf("expected %q, got %q", "Pong", result.Text)
	}
}

func TestSendAsyncCancellationLeavesNoAssistantTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Block until the client cancels, but never longer than the test
		// needs, so the handler returns and the server can shut down even
		// if this connection's context isn't observed as canceled.
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f := newFacade(t, server)
	cancel := func() bool { return true }

	result := <-f.SendAsync(context.Background(), "Ping", cancel)
	if result.Err == nil {
		t.Fatal("expected a cancellation error")
	}

	messages := f.Context().GetMessages()
	if len(messages) != 1 || messages[0].Role != "user" {
		t.Fatalf("expected only the user turn to remain after cancellation, got %v", messages)
	}
}
