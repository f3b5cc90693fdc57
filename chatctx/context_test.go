package chatctx

import (
	"testing"

	"github.com/llmbridge/llmbridge/schema"
)

// openAIShapedDoc returns a minimal flat-string-content schema modeled on
// the OpenAI chat-completions shape, used across the package's tests.
func openAIShapedDoc() *schema.Doc {
	maxTemp := 2.0
	minTemp := 0.0
	return &schema.Doc{
		Provider: schema.ProviderInfo{Name: "openai"},
		API:      schema.APIInfo{Endpoint: "https://api.openai.com/v1/chat/completions", Method: "POST"},
		Authentication: &schema.AuthInfo{
			Type: "bearer", KeyName: "Authorization", KeyPrefix: "Bearer ", KeyPlaceholder: "<API_KEY>",
		},
		Models:        schema.ModelsInfo{Available: []string{"gpt-4o-mini"}, Default: "gpt-4o-mini"},
		RequestTemplate: map[string]any{"model": nil, "messages": nil},
		Parameters: map[string]schema.ParamConstraint{
			"temperature": {Kind: schema.KindFloat, Min: &minTemp, Max: &maxTemp},
		},
		MessageRoles:  []string{"system", "user", "assistant"},
		SystemMessage: schema.SystemMessageInfo{Supported: true, Role: "system"},
		Multimodal:    schema.MultimodalInfo{Supported: false},
		MessageFormat: schema.MessageFormatInfo{
			Structure: map[string]any{"role": "<ROLE>", "content": "<TEXT_CONTENT>"},
		},
		ResponseFormat: schema.ResponseFormatInfo{
			Success: schema.SuccessPaths{TextPath: stringPath("choices", 0, "message", "content")},
			Error:    schema.ErrorPaths{ErrorPath: stringPath("error", "message")},
			Stream:   schema.StreamPaths{ContentDeltaPath: stringPath("choices", 0, "delta", "content")},
		},
		Features: schema.FeaturesInfo{Streaming: true, SystemMessages: true},
		Validation: schema.ValidationInfo{
			RequiredFields:    []string{"model", "messages"},
			MessageValidation: schema.MessageValidationInfo{MinMessages: 1},
		},
	}
}

// anthropicShapedDoc returns a minimal array-of-content-parts schema with a
// top-level system field and alternating-role enforcement.
func anthropicShapedDoc() *schema.Doc {
	return &schema.Doc{
		Provider: schema.ProviderInfo{Name: "anthropic"},
		API:      schema.APIInfo{Endpoint: "https://api.anthropic.com/v1/messages", Method: "POST"},
		Authentication: &schema.AuthInfo{
			Type: "api_key", KeyName: "x-api-key", KeyPlaceholder: "<API_KEY>",
		},
		RequestTemplate: map[string]any{"model": nil, "max_tokens": 1024.0, "messages": nil},
		MessageRoles:    []string{"user", "assistant"},
		SystemMessage:   schema.SystemMessageInfo{Supported: true, Field: "system"},
		Multimodal:      schema.MultimodalInfo{Supported: true},
		MessageFormat: schema.MessageFormatInfo{
			Structure: map[string]any{"role": "<ROLE>", "content": []any{}},
			ContentTypes: map[string]any{
				"text":  map[string]any{"type": "text", "text": "<TEXT_CONTENT>"},
				"image": map[string]any{"type": "image", "source": map[string]any{"type": "base64", "media_type": "<MEDIA_TYPE>", "data": "<MEDIA_DATA>"}},
			},
		},
		ResponseFormat: schema.ResponseFormatInfo{
			Success: schema.SuccessPaths{TextPath: stringPath("content", 0, "text")},
		},
		Validation: schema.ValidationInfo{
			MessageValidation: schema.MessageValidationInfo{AlternatingRoles: true},
		},
	}
}

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

func TestNewRejectsNilDoc(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); err == nil {
		t.Fatal("expected an error constructing a Context from a nil schema")
	}
}

func TestNewSeedsDefaultModel(t *testing.T) {
	c, err := New(openAIShapedDoc(), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Model() != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %q", c.Model())
	}
}

func TestSetModelValidatesAgainstSchema(t *testing.T) {
	c, _ := New(openAIShapedDoc(), DefaultConfig())
	if _, err := c.SetModel("not-a-real-model"); err == nil {
		t.Fatal("expected a ValidationError for an unknown model")
	}
	if _, err := c.SetModel("gpt-4o-mini"); err != nil {
		t.Fatalf("unexpected error setting a known model: %v", err)
	}
}

func TestSetParameterEnforcesRange(t *testing.T) {
	c, _ := New(openAIShapedDoc(), DefaultConfig())

	if _, err := c.SetParameter("temperature", 2.0); err != nil {
		t.Fatalf("expected temperature=2.0 to be accepted at the max boundary: %v", err)
	}
	before := c.GetParameters()

	if _, err := c.SetParameter("temperature", 3.0); err == nil {
		t.Fatal("expected a ValidationError for temperature above max")
	}
	after := c.GetParameters()
	if after["temperature"] != before["temperature"] {
		t.Error("expected a rejected SetParameter to leave the context unmodified")
	}
}

func TestAddMessageRejectsUnknownRole(t *testing.T) {
	c, _ := New(openAIShapedDoc(), DefaultConfig())
	if _, err := c.AddMessage("narrator", "hi", "", ""); err == nil {
		t.Fatal("expected a ValidationError for a role outside message_roles")
	}
}

func TestAddUserMessageRejectsMediaWithoutMultimodalSupport(t *testing.T) {
	c, _ := New(openAIShapedDoc(), DefaultConfig())
	if _, err := c.AddUserMessage("what is this", "image/png", "aGVsbG8gd29ybGQ="); err == nil {
		t.Fatal("expected a ValidationError when multimodal is unsupported")
	}
}

func TestAlternatingRolesEnforced(t *testing.T) {
	c, _ := New(anthropicShapedDoc(), DefaultConfig())
	if _, err := c.AddMessage("user", "one", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.AddMessage("user", "two", "", ""); err == nil {
		t.Fatal("expected a ValidationError for two consecutive user messages")
	}
}

func TestResetClearsMessagesAndRestoresDefaults(t *testing.T) {
	defaultTemp := any(0.7)
	doc := openAIShapedDoc()
	doc.Parameters["temperature"] = schema.ParamConstraint{Kind: schema.KindFloat, Default: defaultTemp}

	c, _ := New(doc, DefaultConfig())
	if _, err := c.AddMessage("user", "hi", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.SetParameter("temperature", 0.1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.Reset()

	if len(c.GetMessages()) != 0 {
		t.Error("expected no messages after Reset")
	}
	if got, _ := c.GetParameter("temperature"); got != defaultTemp {
		t.Errorf("expected temperature to return to its schema default after Reset, got %v", got)
	}
}

func TestGetMessagesReturnsACopy(t *testing.T) {
	c, _ := New(openAIShapedDoc(), DefaultConfig())
	if _, err := c.AddMessage("user", "hi", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := c.GetMessages()
	msgs[0].Content[0].Text = "mutated"

	if c.GetMessages()[0].Text() == "mutated" {
		t.Error("expected GetMessages to return an independent copy")
	}
}
