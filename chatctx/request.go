package chatctx

import (
	"fmt"

	"github.com/llmbridge/llmbridge/llmerr"
)

// BuildRequest synthesizes a provider-shaped request body from the
// Context's current state, following spec §4.2's eight-step recipe.
// streaming selects whether the schema's stream flag is set to true or
// false; the field itself is only emitted when the schema declares
// streaming support at all (spec §8: "includes field stream = streaming
// iff S.features.streaming").
func (c *Context) BuildRequest(streaming bool) (map[string]any, error) {
	body, ok := cloneJSON(c.doc.RequestTemplate).(map[string]any)
	if !ok {
		return nil, llmerr.NewSchemaError(c.doc.Provider.Name, "request_template is not a JSON object", nil)
	}

	body["model"] = c.model

	for key, value := range c.parameters {
		body[key] = value
	}

	var messagesJSON []any

	if c.systemMessage != nil {
		if field := c.doc.SystemMessage.Field; field != "" {
			body[field] = *c.systemMessage
		} else {
			sysMsg, err := c.buildSystemMessageJSON(*c.systemMessage)
			if err != nil {
				return nil, err
			}
			messagesJSON = append(messagesJSON, sysMsg)
		}
	}

	for _, msg := range c.messages {
		built, err := buildMessageJSON(c, msg)
		if err != nil {
			return nil, err
		}
		messagesJSON = append(messagesJSON, built)
	}

	body["messages"] = messagesJSON

	if c.doc.Features.Streaming {
		body["stream"] = streaming
	}

	stripNulls(body)

	if c.config.EnableValidation {
		if err := c.checkRequestShape(body); err != nil {
			return nil, err
		}
	}

	return body, nil
}

// buildSystemMessageJSON renders the system message as a standalone
// message object, used when the schema has no top-level system field
// (spec §4.2 step 5's "else" branch).
func (c *Context) buildSystemMessageJSON(text string) (map[string]any, error) {
	role := c.doc.SystemMessage.Role
	if role == "" {
		role = "system"
	}

	if len(c.doc.MessageFormat.SystemStructure) > 0 {
		rendered := cloneJSON(map[string]any(c.doc.MessageFormat.SystemStructure))
		rendered = substitutePlaceholders(rendered, map[string]string{
			"<ROLE>":         role,
			"<TEXT_CONTENT>": text,
		})
		obj, ok := rendered.(map[string]any)
		if !ok {
			return nil, llmerr.NewSchemaError(c.doc.Provider.Name, "system_structure is not a JSON object", nil)
		}
		return obj, nil
	}

	return buildMessageJSON(c, Message{Role: role, Content: []ContentPart{TextPart(text)}})
}

// buildMessageJSON renders one Message into its schema-shaped JSON object,
// per spec §4.2 step 4. The schema's message_format.structure is cloned
// and its "content" field is replaced with either the concatenated text
// (when the schema uses a flat string content shape) or an array of
// rendered content parts (when the schema uses an array-of-parts shape,
// e.g. Anthropic's). <ROLE> is substituted last so it also reaches any
// other occurrence in the structure besides the conventional "role" key.
func buildMessageJSON(c *Context, msg Message) (map[string]any, error) {
	structure, ok := cloneJSON(map[string]any(c.doc.MessageFormat.Structure)).(map[string]any)
	if !ok {
		return nil, llmerr.NewSchemaError(c.doc.Provider.Name, "message_format.structure is not a JSON object", nil)
	}

	contentTemplate, hasContent := structure["content"]

	var contentValue any
	switch template := contentTemplate.(type) {
	case []any:
		parts, err := renderContentParts(c, msg)
		if err != nil {
			return nil, err
		}
		_ = template // the template array itself is just a shape marker
		contentValue = parts
	default:
		if msg.hasImage() {
			return nil, llmerr.NewSchemaError(c.doc.Provider.Name, "message_format.structure uses a flat string content shape, which cannot carry an image content part", nil)
		}
		contentValue = msg.Text()
	}

	if hasContent {
		structure["content"] = contentValue
	}

	rendered := substitutePlaceholders(structure, map[string]string{"<ROLE>": msg.Role})
	out, ok := rendered.(map[string]any)
	if !ok {
		return nil, llmerr.NewSchemaError(c.doc.Provider.Name, "message_format.structure is not a JSON object", nil)
	}

	return out, nil
}

// renderContentParts instantiates one content_types template per
// ContentPart in msg, substituting <TEXT_CONTENT> for text parts and
// <MEDIA_TYPE>/<MEDIA_DATA>/<MEDIA_DATA_URL> for image parts.
// <MEDIA_DATA_URL> is a convenience for schemas (e.g. OpenAI's) that embed
// the image as a single "data:<type>;base64,<data>" URL rather than as
// separate media-type/data fields.
func renderContentParts(c *Context, msg Message) ([]any, error) {
	parts := make([]any, 0, len(msg.Content))

	for _, part := range msg.Content {
		var templateKey string
		var subs map[string]string

		if part.IsImage {
			templateKey = "image"
			subs = map[string]string{
				"<MEDIA_TYPE>":     part.MediaType,
				"<MEDIA_DATA>":     part.Base64Data,
				"<MEDIA_DATA_URL>": fmt.Sprintf("data:%s;base64,%s", part.MediaType, part.Base64Data),
			}
		} else {
			templateKey = "text"
			subs = map[string]string{"<TEXT_CONTENT>": part.Text}
		}

		template, ok := c.doc.MessageFormat.ContentTypes[templateKey]
		if !ok {
			return nil, llmerr.NewSchemaError(c.doc.Provider.Name, fmt.Sprintf("message_format.content_types.%s is not declared", templateKey), nil)
		}

		parts = append(parts, substitutePlaceholders(cloneJSON(template), subs))
	}

	return parts, nil
}

// checkRequestShape enforces spec §4.2 step 8's assertions over the
// synthesized body.
func (c *Context) checkRequestShape(body map[string]any) error {
	if issues := c.validationIssues(); len(issues) > 0 {
		return issues[0]
	}

	for _, field := range c.doc.Validation.RequiredFields {
		if _, ok := body[field]; !ok {
			return llmerr.NewValidationError(field, "required field missing from synthesized request")
		}
	}

	return nil
}

// IsValidRequest reports whether the Context's current message list would
// pass build_request's structural checks.
func (c *Context) IsValidRequest() bool {
	return len(c.validationIssues()) == 0
}

// GetValidationErrors returns every structural issue with the Context's
// current message list, in check order. An empty slice means the Context
// would build successfully.
func (c *Context) GetValidationErrors() []string {
	var out []string
	for _, err := range c.validationIssues() {
		out = append(out, err.Error())
	}
	return out
}

func (c *Context) validationIssues() []error {
	var issues []error

	minMessages := c.doc.Validation.MessageValidation.MinMessages
	if minMessages == 0 {
		minMessages = 1
	}
	if len(c.messages) < minMessages {
		issues = append(issues, llmerr.NewValidationError("messages", fmt.Sprintf("at least %d message(s) required, got %d", minMessages, len(c.messages))))
	}

	if want := c.doc.Validation.MessageValidation.LastMessageRole; want != "" && len(c.messages) > 0 {
		if got := c.messages[len(c.messages)-1].Role; got != want {
			issues = append(issues, llmerr.NewValidationError("messages", fmt.Sprintf("last message role must be %q, got %q", want, got)))
		}
	}

	if c.doc.Validation.MessageValidation.AlternatingRoles {
		for i := 1; i < len(c.messages); i++ {
			if c.messages[i].Role == c.messages[i-1].Role {
				issues = append(issues, llmerr.NewValidationError("messages", fmt.Sprintf("messages %d and %d both have role %q, violating alternating-roles", i-1, i, c.messages[i].Role)))
			}
		}
	}

	return issues
}
